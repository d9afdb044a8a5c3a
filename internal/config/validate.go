package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateBackend,
		c.validateRetry,
		c.validateProgress,
		c.validateNotifications,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", c.Backend.URL)
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		return errors.New("backend.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	if c.Retry.FirstDelayMS < 0 {
		return errors.New("retry.first_delay_ms must not be negative")
	}
	if c.Retry.DelayMS < 0 {
		return errors.New("retry.delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateProgress() error {
	if c.Progress.MinVisibleMS < 0 {
		return errors.New("progress.min_visible_ms must not be negative")
	}
	if c.Progress.TickIntervalMS <= 0 {
		return errors.New("progress.tick_interval_ms must be positive")
	}
	for i, step := range c.Progress.Phases {
		if step.Message == "" {
			return fmt.Errorf("progress.phases[%d].message must be set", i)
		}
		if step.DurationMS < 0 {
			return fmt.Errorf("progress.phases[%d].duration_ms must not be negative", i)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains([]string{"console", "json"}, c.Logging.Format) {
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
