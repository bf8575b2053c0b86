package main

import (
	"context"
	"fmt"

	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	"github.com/spf13/cobra"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Make an existing user an active admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromote,
}

func runPromote(cmd *cobra.Command, args []string) error {
	email := args[0]
	return withAdminService(cmd.Context(), func(ctx context.Context, svc admindomain.Service) error {
		user, err := svc.Promote(ctx, email)
		if err != nil {
			return fmt.Errorf("promote %s: %w", email, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (%s)\n", user.Email, user.Role, user.Status)
		return nil
	})
}
