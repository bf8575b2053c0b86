package session

import (
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config config.Config
	Clock  clock.Clock `optional:"true"`
}

var Module = fx.Module("auth.session",
	fx.Provide(func(p Params) *Manager { return NewManager(p.Config, p.Clock) }),
)
