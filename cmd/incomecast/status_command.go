package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"incomecast/internal/backend"
	"incomecast/internal/config"
	"incomecast/internal/history"
)

const statusProbeTimeout = 5 * time.Second

type statusReport struct {
	BackendURL   string             `json:"backend_url"`
	Ready        bool               `json:"ready"`
	Health       *backend.Health    `json:"health,omitempty"`
	HealthError  string             `json:"health_error,omitempty"`
	Model        *backend.ModelInfo `json:"model,omitempty"`
	ModelError   string             `json:"model_error,omitempty"`
	ConfigPath   string             `json:"config_path,omitempty"`
	HistoryPath  string             `json:"history_path,omitempty"`
	HistoryCount int                `json:"history_sessions"`
	Notify       bool               `json:"notifications"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the backend and summarize local state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.backendClient()
			if err != nil {
				return err
			}
			report := collectStatus(cmd.Context(), cfg, client)
			if ctx.configSeen {
				report.ConfigPath = ctx.configPath
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(report, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print status as JSON")
	return cmd
}

// collectStatus probes /health and /model-info concurrently. Probe failures
// land in the report; Ready is set only when both probes come back healthy.
func collectStatus(ctx context.Context, cfg *config.Config, client *backend.Client) statusReport {
	report := statusReport{
		BackendURL: client.BaseURL(),
		Notify:     strings.TrimSpace(cfg.Notifications.NtfyTopic) != "",
	}

	probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		health, err := client.Health(probeCtx)
		if err != nil {
			report.HealthError = backendErrorText(err)
			return fmt.Errorf("health probe: %w", err)
		}
		report.Health = &health
		if health.Status != "healthy" {
			return fmt.Errorf("health probe: backend reports %q", health.Status)
		}
		return nil
	})
	g.Go(func() error {
		info, err := client.ModelInfo(probeCtx)
		if err != nil {
			report.ModelError = backendErrorText(err)
			return fmt.Errorf("model probe: %w", err)
		}
		report.Model = &info
		if !info.ModelTrained {
			return errors.New("model probe: model not trained")
		}
		return nil
	})
	report.Ready = g.Wait() == nil

	if cfg.History.Enabled {
		report.HistoryPath = cfg.HistoryPath()
		if _, err := os.Stat(report.HistoryPath); err == nil {
			if store, err := history.Open(report.HistoryPath); err == nil {
				if entries, err := store.List(ctx, 0); err == nil {
					report.HistoryCount = len(entries)
				}
				store.Close()
			}
		}
	}
	return report
}

func backendErrorText(err error) string {
	if msg := backend.UserMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

func renderStatus(r statusReport, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Backend", colorize)...)
	lines = append(lines, renderStatusLine("URL", statusInfo, r.BackendURL, colorize))
	switch {
	case r.Health != nil && r.Health.Status == "healthy":
		lines = append(lines, renderStatusLine("Health", statusOK, r.Health.Message, colorize))
	case r.Health != nil:
		lines = append(lines, renderStatusLine("Health", statusWarn, r.Health.Status, colorize))
	default:
		lines = append(lines, renderStatusLine("Health", statusError, r.HealthError, colorize))
	}
	switch {
	case r.Model != nil && r.Model.ModelTrained:
		detail := r.Model.ModelType
		if r.Model.Accuracy > 0 {
			detail = fmt.Sprintf("%s, accuracy %s", detail, formatPercent(r.Model.Accuracy))
		}
		lines = append(lines, renderStatusLine("Model", statusOK, detail, colorize))
	case r.Model != nil:
		lines = append(lines, renderStatusLine("Model", statusWarn, "not trained", colorize))
	default:
		lines = append(lines, renderStatusLine("Model", statusError, r.ModelError, colorize))
	}
	if r.Ready {
		lines = append(lines, renderStatusLine("Ready", statusOK, "yes", colorize))
	} else {
		lines = append(lines, renderStatusLine("Ready", statusWarn, "no, predictions will retry until the backend is up", colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Local", colorize)...)
	configPath := r.ConfigPath
	if configPath == "" {
		configPath = "defaults"
	}
	lines = append(lines, renderStatusLine("Config", statusInfo, configPath, colorize))
	if r.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, fmt.Sprintf("%d sessions in %s", r.HistoryCount, r.HistoryPath), colorize))
	} else {
		lines = append(lines, renderStatusLine("History", statusWarn, "disabled", colorize))
	}
	lines = append(lines, renderStatusLine("Notifications", statusInfo, yesNo(r.Notify), colorize))
	return strings.Join(lines, "\n") + "\n"
}
