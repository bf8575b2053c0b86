package scheduler

import (
	"time"

	"github.com/smallbiznis/timesheet/internal/config"
)

// Config controls housekeeping job cadence.
type Config struct {
	Enabled          bool
	Interval         time.Duration
	JobTimeout       time.Duration
	SessionRetention time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		Interval:         time.Hour,
		JobTimeout:       30 * time.Second,
		SessionRetention: 7 * 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:          cfg.Scheduler.Enabled,
		Interval:         cfg.Scheduler.Interval,
		JobTimeout:       cfg.Scheduler.JobTimeout,
		SessionRetention: cfg.Scheduler.SessionRetention,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SessionRetention < 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	return c
}
