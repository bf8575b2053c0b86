package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/admin"
	"github.com/smallbiznis/timesheet/internal/auth"
	"github.com/smallbiznis/timesheet/internal/authorization"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/smallbiznis/timesheet/internal/contractor"
	"github.com/smallbiznis/timesheet/internal/invoice"
	"github.com/smallbiznis/timesheet/internal/invoicetemplate"
	"github.com/smallbiznis/timesheet/internal/metricspush"
	"github.com/smallbiznis/timesheet/internal/migration"
	"github.com/smallbiznis/timesheet/internal/observability"
	"github.com/smallbiznis/timesheet/internal/providers"
	"github.com/smallbiznis/timesheet/internal/ratelimit"
	"github.com/smallbiznis/timesheet/internal/scheduler"
	"github.com/smallbiznis/timesheet/internal/server"
	"github.com/smallbiznis/timesheet/internal/timesheet"
	"github.com/smallbiznis/timesheet/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		auth.Module,
		authorization.Module,
		ratelimit.Module,
		timesheet.Module,
		contractor.Module,
		invoicetemplate.Module,
		providers.Module,
		invoice.Module,
		admin.Module,
		metricspush.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
