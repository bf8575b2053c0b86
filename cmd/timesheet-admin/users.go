package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users with their role, status and timesheet count",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	return withAdminService(cmd.Context(), func(ctx context.Context, svc admindomain.Service) error {
		users, err := svc.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return printUsers(cmd.OutOrStdout(), users)
	})
}

func printUsers(out io.Writer, users []admindomain.UserSummary) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tSTATUS\tTIMESHEETS\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			u.ID, u.Email, u.Name, u.Role, u.Status, u.TimesheetCount, lastLogin)
	}
	return w.Flush()
}
