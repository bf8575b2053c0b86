package timesheet

import (
	"github.com/smallbiznis/timesheet/internal/timesheet/repository"
	"github.com/smallbiznis/timesheet/internal/timesheet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timesheet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
