package observability

import (
	"strings"

	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/smallbiznis/timesheet/internal/observability/logger"
	"github.com/smallbiznis/timesheet/internal/observability/metrics"
	"github.com/smallbiznis/timesheet/internal/observability/tracing"
)

// Config is the resolved telemetry identity shared by the logger, tracer and
// meter.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Telemetry   config.TelemetryConfig
}

var devEnvironments = map[string]bool{
	"dev":         true,
	"development": true,
	"local":       true,
	"test":        true,
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "timesheet"
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Telemetry:   cfg.Telemetry,
	}
}

// Debug is true for debug logging or any development environment.
func (c Config) Debug() bool {
	return c.Telemetry.LogLevel == "debug" || devEnvironments[strings.ToLower(c.Environment)]
}

func (c Config) loggerConfig() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.Telemetry.LogLevel,
		Format:              c.Telemetry.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.Telemetry.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Telemetry.OTLPEndpoint,
		ExporterProtocol: c.Telemetry.OTLPProtocol,
		SamplingRatio:    c.Telemetry.SamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.Telemetry.OtelEnabled,
		ExporterEndpoint: c.Telemetry.OTLPEndpoint,
		ExporterProtocol: c.Telemetry.OTLPProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
