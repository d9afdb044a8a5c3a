package config

import (
	"incomecast/internal/phase"
	"incomecast/internal/retry"
)

const (
	defaultConfigPath            = "~/.config/incomecast/config.toml"
	projectConfigName            = "incomecast.toml"
	defaultBackendURL            = "http://127.0.0.1:8000"
	defaultRequestTimeoutSeconds = 120
	defaultUserAgent             = "incomecast/dev"
	defaultMinVisibleMS          = 2000
	defaultTickIntervalMS        = 250
	defaultStateDir              = "~/.local/share/incomecast"
	defaultLogDir                = "~/.local/share/incomecast/logs"
	defaultNotifyTimeout         = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	policy := retry.DefaultPolicy()
	return Config{
		Backend: Backend{
			URL:                   defaultBackendURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			UserAgent:             defaultUserAgent,
		},
		Retry: Retry{
			MaxRetries:   policy.MaxRetries,
			FirstDelayMS: int(policy.FirstRetryDelay.Milliseconds()),
			DelayMS:      int(policy.RetryDelay.Milliseconds()),
		},
		Progress: Progress{
			MinVisibleMS:   defaultMinVisibleMS,
			TickIntervalMS: defaultTickIntervalMS,
			Phases:         defaultPhaseSteps(),
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		History: History{Enabled: true},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultPhaseSteps() []PhaseStep {
	specs := phase.DefaultSpecs()
	steps := make([]PhaseStep, 0, len(specs))
	for _, spec := range specs {
		steps = append(steps, PhaseStep{Message: spec.Message, DurationMS: int(spec.Planned.Milliseconds())})
	}
	return steps
}
