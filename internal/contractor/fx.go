package contractor

import (
	"github.com/smallbiznis/timesheet/internal/contractor/repository"
	"github.com/smallbiznis/timesheet/internal/contractor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contractor.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
