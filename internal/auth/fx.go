package auth

import (
	"github.com/smallbiznis/timesheet/internal/auth/oauth"
	"github.com/smallbiznis/timesheet/internal/auth/repository"
	"github.com/smallbiznis/timesheet/internal/auth/service"
	"github.com/smallbiznis/timesheet/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	oauth.Module,
	session.Module,
)
