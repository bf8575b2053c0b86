package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheduleConfigIsValid(t *testing.T) {
	require.NoError(t, ValidateScheduleConfig(DefaultScheduleConfig()))
}

func TestValidateScheduleConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScheduleConfig)
	}{
		{"bad start", func(c *ScheduleConfig) { c.DefaultStart = "8h30" }},
		{"finish before start", func(c *ScheduleConfig) { c.DefaultFinish = "07:00" }},
		{"negative break", func(c *ScheduleConfig) { c.DefaultBreakMinutes = -1 }},
		{"too many weekdays", func(c *ScheduleConfig) { c.Weekdays = 8 }},
		{"gst as percent", func(c *ScheduleConfig) { c.GSTFallback = 10 }},
		{"empty number format", func(c *ScheduleConfig) { c.InvoiceNumberFormat = " " }},
		{"unknown number token", func(c *ScheduleConfig) { c.InvoiceNumberFormat = "INV-{SEQ}" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScheduleConfig()
			tt.mutate(&cfg)
			assert.Error(t, ValidateScheduleConfig(cfg))
		})
	}
}

func TestValidateScheduleConfigAcceptsZeroGST(t *testing.T) {
	cfg := DefaultScheduleConfig()
	cfg.GSTFallback = 0
	cfg.InvoiceNumberFormat = "INV-{YYYY}{MM}-{RAND4}"
	assert.NoError(t, ValidateScheduleConfig(cfg))
}

func TestNewScheduleConfigHolderFallsBackToDefaults(t *testing.T) {
	holder, err := NewScheduleConfigHolder(Config{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DefaultScheduleConfig(), holder.Get())
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, "1m30s", getenvDuration("TEST_DURATION", 0).String())

	t.Setenv("TEST_DURATION", "nope")
	assert.Equal(t, "1h0m0s", getenvDuration("TEST_DURATION", 3600e9).String())
}
