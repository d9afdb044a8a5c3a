package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"incomecast/internal/demographics"
	"incomecast/internal/history"
	"incomecast/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past prediction sessions",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]historyEntryView, 0, len(entries))
					for _, e := range entries {
						views = append(views, newHistoryEntryView(e))
					}
					return writeJSON(cmd, views)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No prediction sessions recorded")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "State", "Result", "Attempts", "Elapsed"},
					buildHistoryRows(entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print sessions as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session with its attempts and inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withHistory(func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), id)
				if errors.Is(err, history.ErrAmbiguousID) {
					return services.Wrap(services.ErrValidation, "history", "show", fmt.Sprintf("%q matches more than one session; use a longer prefix", id), nil)
				}
				if err != nil {
					return err
				}
				if entry == nil {
					return services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("no session matches %q", id), nil)
				}
				if jsonOut {
					return writeJSON(cmd, newHistoryEntryView(*entry))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderHistoryEntry(*entry))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the session as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d sessions\n", removed)
				return nil
			})
		},
	}
}

func buildHistoryRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			shortID(e.SessionID),
			formatTimestamp(e.StartedAt),
			e.State,
			historyResult(e),
			strconv.Itoa(e.AttemptCount),
			formatElapsed(e.Duration()),
		})
	}
	return rows
}

func historyResult(e history.Entry) string {
	switch {
	case e.Prediction != "":
		return fmt.Sprintf("%s (%s)", e.Prediction, formatPercent(e.Confidence))
	case e.ErrorKind != "":
		return e.ErrorKind
	default:
		return ""
	}
}

func renderHistoryEntry(e history.Entry) string {
	var b strings.Builder
	pairs := [][2]string{
		{"Session", e.SessionID},
		{"State", e.State},
		{"Started", formatTimestamp(e.StartedAt)},
		{"Elapsed", formatElapsed(e.Duration())},
		{"Backend", e.BackendURL},
	}
	if e.Prediction != "" {
		pairs = append(pairs,
			[2]string{"Prediction", e.Prediction},
			[2]string{"Confidence", formatPercent(e.Confidence)},
		)
	}
	if e.Message != "" {
		pairs = append(pairs, [2]string{"Message", e.Message})
	}
	b.WriteString(renderKeyValues(pairs))

	if len(e.Attempts) > 0 {
		rows := make([][]string, 0, len(e.Attempts))
		for _, a := range e.Attempts {
			duration := ""
			if !a.FinishedAt.IsZero() {
				duration = formatElapsed(a.FinishedAt.Sub(a.StartedAt))
			}
			rows = append(rows, []string{strconv.Itoa(a.Number), a.Outcome, a.ErrorKind, duration, a.Error})
		}
		b.WriteString("Attempts\n")
		b.WriteString(renderTable(
			[]string{"#", "Outcome", "Kind", "Duration", "Error"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}

	b.WriteString("Inputs\n")
	b.WriteString(renderRecord(e.Record))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// historyEntryView is the --json shape of a history entry.
type historyEntryView struct {
	SessionID        string               `json:"session_id"`
	State            string               `json:"state"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       *time.Time           `json:"finished_at,omitempty"`
	Prediction       string               `json:"prediction,omitempty"`
	Confidence       float64              `json:"confidence,omitempty"`
	ProbabilityAbove float64              `json:"probability_above,omitempty"`
	ErrorKind        string               `json:"error_kind,omitempty"`
	Message          string               `json:"message,omitempty"`
	BackendURL       string               `json:"backend_url,omitempty"`
	AttemptCount     int                  `json:"attempt_count"`
	Attempts         []historyAttemptView `json:"attempts,omitempty"`
	Record           demographics.Record  `json:"record"`
}

type historyAttemptView struct {
	Number    int    `json:"number"`
	Outcome   string `json:"outcome"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newHistoryEntryView(e history.Entry) historyEntryView {
	view := historyEntryView{
		SessionID:        e.SessionID,
		State:            e.State,
		StartedAt:        e.StartedAt,
		Prediction:       e.Prediction,
		Confidence:       e.Confidence,
		ProbabilityAbove: e.ProbabilityAbove,
		ErrorKind:        e.ErrorKind,
		Message:          e.Message,
		BackendURL:       e.BackendURL,
		AttemptCount:     e.AttemptCount,
		Record:           e.Record,
	}
	if !e.FinishedAt.IsZero() {
		finished := e.FinishedAt
		view.FinishedAt = &finished
	}
	for _, a := range e.Attempts {
		view.Attempts = append(view.Attempts, historyAttemptView{
			Number:    a.Number,
			Outcome:   a.Outcome,
			ErrorKind: a.ErrorKind,
			Error:     a.Error,
		})
	}
	return view
}
