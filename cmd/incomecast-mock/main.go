// Command incomecast-mock serves a local stand-in for the prediction backend
// with a configurable cold start, for trying the CLI without the model service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"incomecast/internal/logging"
	"incomecast/internal/mockserver"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		addr      string
		warmUp    time.Duration
		latency   time.Duration
		failFirst int
		logFormat string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:           "incomecast-mock",
		Short:         "Run a mock income prediction backend",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: logLevel, Format: logFormat})
			if err != nil {
				return err
			}
			srv := mockserver.New(mockserver.Options{
				WarmUp:    warmUp,
				Latency:   latency,
				FailFirst: failFirst,
				Logger:    logger,
			})
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("mock backend listening",
					logging.String("addr", addr),
					logging.Duration("warm_up", warmUp),
					logging.Duration("latency", latency),
					logging.Int("fail_first", failFirst),
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down mock backend")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().DurationVar(&warmUp, "warm-up", 45*time.Second, "Answer 503 for this long after start")
	cmd.Flags().DurationVar(&latency, "latency", 800*time.Millisecond, "Delay added to each prediction")
	cmd.Flags().IntVar(&failFirst, "fail-first", 0, "Fail this many predictions with 500 after warm-up")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format (console or json)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	return cmd
}
