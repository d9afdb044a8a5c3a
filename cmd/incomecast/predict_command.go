package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"incomecast/internal/config"
	"incomecast/internal/demographics"
	"incomecast/internal/history"
	"incomecast/internal/logging"
	"incomecast/internal/notifications"
	"incomecast/internal/orchestrator"
	"incomecast/internal/phase"
	"incomecast/internal/runlock"
)

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var (
		record  recordFlags
		jsonOut bool
		quiet   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify a demographic record as <=50K or >50K",
		Long: "Submit one demographic record to the prediction backend. Answers start " +
			"from the form defaults, then --file, then individual flags. Cold-start " +
			"failures are retried automatically while progress is shown.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := record.build(cmd)
			if err != nil {
				return err
			}
			var extra []string
			if verbose {
				extra = append(extra, "stderr")
			}
			return runPredict(cmd, ctx, rec, predictOutputOptions{
				json:    jsonOut,
				quiet:   quiet || jsonOut,
				logDest: extra,
			})
		},
	}

	record.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the session outcome as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide progress output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")
	return cmd
}

type predictOutputOptions struct {
	json    bool
	quiet   bool
	logDest []string
}

func runPredict(cmd *cobra.Command, ctx *commandContext, rec demographics.Record, out predictOutputOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	logger, err := ctx.logger(out.logDest...)
	if err != nil {
		return err
	}
	client, err := ctx.backendClient()
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
	}

	view := newProgressView(cmd.ErrOrStderr(), out.quiet)
	opts := sessionOptions(cfg, logger)
	opts.Listeners = []orchestrator.Listener{view}
	opts.OnFinish = func(snap orchestrator.Snapshot) {
		if store == nil {
			return
		}
		if err := store.Record(context.Background(), history.FromSnapshot(snap, client.BaseURL())); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_record_failed",
				logging.String(logging.FieldSessionID, snap.ID),
				logging.Error(err),
			)
		}
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(client, opts)
	snap := orch.Start(runCtx, rec).Wait()
	view.Close()

	notifyOutcome(notifications.NewService(cfg), snap, logger)

	if out.json {
		if err := writeJSON(cmd, newPredictResult(snap)); err != nil {
			return err
		}
	} else if snap.State == orchestrator.StateCompleted {
		fmt.Fprint(cmd.OutOrStdout(), renderPrediction(snap))
	}

	switch snap.State {
	case orchestrator.StateCompleted:
		return nil
	case orchestrator.StateCancelled:
		return context.Canceled
	default:
		return &predictionError{message: snap.Message, attempts: len(snap.Attempts)}
	}
}

// sessionOptions translates configuration into orchestrator settings.
func sessionOptions(cfg *config.Config, logger *slog.Logger) orchestrator.Options {
	return orchestrator.Options{
		Phases:         phase.Sequence(cfg.PhaseSpecs()),
		Policy:         cfg.RetryPolicy(),
		MinVisible:     cfg.MinVisible(),
		AttemptTimeout: cfg.AttemptTimeout(),
		TickInterval:   cfg.TickInterval(),
		Logger:         logger,
	}
}

func notifyOutcome(notifier notifications.Service, snap orchestrator.Snapshot, logger *slog.Logger) {
	ctx := context.Background()
	var err error
	switch snap.State {
	case orchestrator.StateCompleted:
		if snap.Result != nil {
			err = notifier.NotifyPredictionCompleted(ctx, *snap.Result, snap.Elapsed(), len(snap.Attempts))
		}
	case orchestrator.StateFailed:
		err = notifier.NotifyPredictionFailed(ctx, snap.ErrorKind, snap.Message, len(snap.Attempts))
	}
	if err != nil {
		logger.Warn("notification failed",
			logging.String(logging.FieldSessionID, snap.ID),
			logging.Error(err),
		)
	}
}

type predictionError struct {
	message  string
	attempts int
}

func (e *predictionError) Error() string {
	if e.attempts > 1 {
		return fmt.Sprintf("prediction failed after %d attempts: %s", e.attempts, e.message)
	}
	return "prediction failed: " + e.message
}

// predictResult is the --json shape of a finished session.
type predictResult struct {
	SessionID     string              `json:"session_id"`
	State         string              `json:"state"`
	Prediction    string              `json:"prediction,omitempty"`
	Confidence    float64             `json:"confidence,omitempty"`
	Probabilities map[string]float64  `json:"probabilities,omitempty"`
	ErrorKind     string              `json:"error_kind,omitempty"`
	Message       string              `json:"message,omitempty"`
	Attempts      int                 `json:"attempts"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	Record        demographics.Record `json:"record"`
}

func newPredictResult(snap orchestrator.Snapshot) predictResult {
	res := predictResult{
		SessionID: snap.ID,
		State:     snap.State.String(),
		Message:   snap.Message,
		Attempts:  len(snap.Attempts),
		ElapsedMS: snap.Elapsed().Milliseconds(),
		Record:    snap.Record,
	}
	if snap.Result != nil {
		res.Prediction = snap.Result.Label
		res.Confidence = snap.Result.Confidence
		res.Probabilities = snap.Result.Probabilities
	}
	if snap.State == orchestrator.StateFailed {
		res.ErrorKind = snap.ErrorKind.String()
	}
	return res
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
