package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/timesheet/internal/invoice/format"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScheduleConfig carries the operator tunable defaults for new weeks and
// invoices. It is read from timesheet.yml and hot reloaded.
type ScheduleConfig struct {
	DefaultStart        string  `mapstructure:"default_start"`
	DefaultFinish       string  `mapstructure:"default_finish"`
	DefaultBreakMinutes int     `mapstructure:"default_break_minutes"`
	Weekdays            int     `mapstructure:"weekdays"`
	GSTFallback         float64 `mapstructure:"gst_fallback"`
	InvoiceNumberFormat string  `mapstructure:"invoice_number_format"`
}

func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		DefaultStart:        "08:30",
		DefaultFinish:       "17:00",
		DefaultBreakMinutes: 30,
		Weekdays:            5,
		GSTFallback:         0.1,
		InvoiceNumberFormat: "{YY}{MM}{DD}{RAND2}",
	}
}

type ScheduleConfigHolder struct {
	current atomic.Value // holds ScheduleConfig
}

// NewStaticScheduleConfigHolder returns a holder that never reloads.
func NewStaticScheduleConfigHolder(cfg ScheduleConfig) *ScheduleConfigHolder {
	holder := &ScheduleConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewScheduleConfigHolder(cfg Config) (*ScheduleConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("timesheet")
	v.SetConfigType("yml")
	if cfg.ConfigDir != "" {
		v.AddConfigPath(cfg.ConfigDir)
	}
	v.AddConfigPath("/etc/timesheet")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TIMESHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScheduleConfig()
	v.SetDefault("timesheet.default_start", defaults.DefaultStart)
	v.SetDefault("timesheet.default_finish", defaults.DefaultFinish)
	v.SetDefault("timesheet.default_break_minutes", defaults.DefaultBreakMinutes)
	v.SetDefault("timesheet.weekdays", defaults.Weekdays)
	v.SetDefault("timesheet.gst_fallback", defaults.GSTFallback)
	v.SetDefault("timesheet.invoice_number_format", defaults.InvoiceNumberFormat)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var current ScheduleConfig
	if err := v.UnmarshalKey("timesheet", &current); err != nil {
		return nil, err
	}
	if err := ValidateScheduleConfig(current); err != nil {
		return nil, err
	}

	holder := NewStaticScheduleConfigHolder(current)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ScheduleConfig
		if err := v.UnmarshalKey("timesheet", &updated); err != nil {
			zap.L().Warn("timesheet config reload failed", zap.Error(err))
			return
		}
		if err := ValidateScheduleConfig(updated); err != nil {
			zap.L().Warn("invalid timesheet config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("timesheet config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ScheduleConfigHolder) Get() ScheduleConfig {
	return h.current.Load().(ScheduleConfig)
}

func ValidateScheduleConfig(cfg ScheduleConfig) error {
	start, err := time.Parse("15:04", strings.TrimSpace(cfg.DefaultStart))
	if err != nil {
		return fmt.Errorf("timesheet.default_start: %w", err)
	}
	finish, err := time.Parse("15:04", strings.TrimSpace(cfg.DefaultFinish))
	if err != nil {
		return fmt.Errorf("timesheet.default_finish: %w", err)
	}
	if !finish.After(start) {
		return errors.New("timesheet.default_finish must be after default_start")
	}
	if cfg.DefaultBreakMinutes < 0 {
		return errors.New("timesheet.default_break_minutes cannot be negative")
	}
	if cfg.Weekdays < 0 || cfg.Weekdays > 7 {
		return errors.New("timesheet.weekdays must be between 0 and 7")
	}
	if cfg.GSTFallback < 0 || cfg.GSTFallback > 1 {
		return errors.New("timesheet.gst_fallback must be a fraction between 0 and 1")
	}
	if strings.TrimSpace(cfg.InvoiceNumberFormat) == "" {
		return errors.New("timesheet.invoice_number_format cannot be empty")
	}
	if _, err := format.FormatInvoiceNumber(cfg.InvoiceNumberFormat, time.Now(), 0); err != nil {
		return fmt.Errorf("timesheet.invoice_number_format: %w", err)
	}
	return nil
}
