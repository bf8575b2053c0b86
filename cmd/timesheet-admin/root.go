package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/admin"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	"github.com/smallbiznis/timesheet/internal/auth"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/smallbiznis/timesheet/internal/migration"
	"github.com/smallbiznis/timesheet/internal/observability"
	"github.com/smallbiznis/timesheet/internal/timesheet"
	"github.com/smallbiznis/timesheet/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const startTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "timesheet-admin",
	Short: "Administer timesheet user accounts",
	Long: `timesheet-admin manages accounts directly against the timesheet
database. It reads the same environment as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(usersCmd)
}

// withAdminService starts just enough of the application to run fn.
func withAdminService(ctx context.Context, fn func(context.Context, admindomain.Service) error) error {
	var svc admindomain.Service
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		auth.Module,
		timesheet.Module,
		admin.Module,
		fx.Populate(&svc),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx, svc)
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}
