package observability

import (
	"github.com/smallbiznis/timesheet/internal/observability/logger"
	"github.com/smallbiznis/timesheet/internal/observability/metrics"
	"github.com/smallbiznis/timesheet/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.loggerConfig,
		Config.tracingConfig,
		Config.metricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// Force construction so the global tracer and scheduler collectors exist
	// before the first request or job.
	fx.Invoke(
		func(*sdktrace.TracerProvider) {},
		func(cfg metrics.Config) { metrics.SchedulerWithConfig(cfg) },
	),
)
