package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"incomecast/internal/logging"
	"incomecast/internal/orchestrator"
)

// progressView renders session events while a prediction runs. OnEvent is
// called with the session locked, so implementations only write output.
type progressView interface {
	orchestrator.Listener
	Close()
}

func newProgressView(w io.Writer, quiet bool) progressView {
	switch {
	case quiet:
		return silentView{}
	case isTerminal(w):
		return newBarView(w)
	default:
		return newLineView(w)
	}
}

type silentView struct{}

func (silentView) OnEvent(orchestrator.Event) {}
func (silentView) Close()                     {}

// barView draws an in-place bar whose description follows the phase message.
type barView struct {
	bar      *progressbar.ProgressBar
	desc     string
	finished bool
}

func newBarView(w io.Writer) *barView {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &barView{bar: bar}
}

// OnEvent keeps the bar at the session's progress; phase changes move it
// forward without waiting for the next progress tick.
func (v *barView) OnEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventStarted, orchestrator.EventPhase:
		v.describe(ev.PhaseMessage)
		_ = v.bar.Set(int(ev.Progress))
	case orchestrator.EventAttempt:
		if ev.Attempt > 1 {
			v.describe(fmt.Sprintf("%s (attempt %d)", ev.PhaseMessage, ev.Attempt))
		}
	case orchestrator.EventProgress:
		_ = v.bar.Set(int(ev.Progress))
	case orchestrator.EventRetrying:
		v.describe(fmt.Sprintf("%s (next attempt in %s)", ev.Message, ev.RetryDelay.Round(time.Second)))
	case orchestrator.EventCompleted:
		_ = v.bar.Set(100)
		_ = v.bar.Finish()
		v.finished = true
	case orchestrator.EventFailed:
		_ = v.bar.Clear()
		v.finished = true
	}
}

func (v *barView) describe(desc string) {
	v.desc = desc
	v.bar.Describe(desc)
}

func (v *barView) Close() {
	if !v.finished {
		_ = v.bar.Clear()
	}
}

// lineView prints one line per phase change or progress bucket, for logs and
// pipes where carriage returns would be noise.
type lineView struct {
	w       io.Writer
	sampler *logging.ProgressSampler
}

func newLineView(w io.Writer) *lineView {
	return &lineView{w: w, sampler: logging.NewProgressSampler(25)}
}

func (v *lineView) OnEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventStarted:
		fmt.Fprintf(v.w, "[%3.0f%%] %s\n", ev.Progress, ev.PhaseMessage)
		v.sampler.ShouldLog(ev.Progress, ev.PhaseMessage)
	case orchestrator.EventAttempt:
		if ev.Attempt > 1 {
			fmt.Fprintf(v.w, "Attempt %d...\n", ev.Attempt)
		}
	case orchestrator.EventPhase, orchestrator.EventProgress:
		if v.sampler.ShouldLog(ev.Progress, ev.PhaseMessage) {
			fmt.Fprintf(v.w, "[%3.0f%%] %s\n", ev.Progress, ev.PhaseMessage)
		}
	case orchestrator.EventRetrying:
		fmt.Fprintf(v.w, "%s Next attempt in %s (%s).\n", ev.Message, ev.RetryDelay.Round(time.Millisecond), ev.Kind)
	case orchestrator.EventCompleted:
		fmt.Fprintln(v.w, "[100%] Prediction ready")
	}
}

func (v *lineView) Close() {}
