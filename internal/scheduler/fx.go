package scheduler

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(Register),
)

func Register(lc fx.Lifecycle, cfg Config, sched *Scheduler, log *zap.Logger) {
	if !cfg.Enabled {
		log.Info("scheduler disabled")
		return
	}

	log.Info("scheduler enabled", zap.Duration("interval", cfg.Interval))
	lc.Append(fx.StartStopHook(sched.Start, sched.Stop))
}
