package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeProgress()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimSpace(c.Backend.URL)
	if c.Backend.URL == "" || c.Backend.URL == defaultBackendURL {
		for _, key := range []string{"INCOMECAST_BACKEND_URL", "BACKEND_URL"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Backend.URL = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaultBackendURL
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	c.Backend.UserAgent = strings.TrimSpace(c.Backend.UserAgent)
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = defaultUserAgent
	}
	if c.Backend.RequestTimeoutSeconds == 0 {
		c.Backend.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.TickIntervalMS == 0 {
		c.Progress.TickIntervalMS = defaultTickIntervalMS
	}
	if len(c.Progress.Phases) == 0 {
		c.Progress.Phases = defaultPhaseSteps()
	}
	for i := range c.Progress.Phases {
		c.Progress.Phases[i].Message = strings.TrimSpace(c.Progress.Phases[i].Message)
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("INCOMECAST_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
