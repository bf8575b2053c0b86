package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintUsers(t *testing.T) {
	login := time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := printUsers(&buf, []admindomain.UserSummary{
		{ID: "1", Email: "a@example.com", Name: "Ann", Role: authdomain.RoleAdmin, Status: authdomain.StatusActive, TimesheetCount: 4, LastLoginAt: &login},
		{ID: "2", Email: "b@example.com", Name: "Bob", Role: authdomain.RoleUser, Status: authdomain.StatusPending},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "2025-02-03 09:30")
	assert.Contains(t, lines[2], "never")
	assert.Contains(t, lines[2], "PENDING")
}

func TestPrintUsersEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsers(&buf, nil))
	assert.Equal(t, "No users found.\n", buf.String())
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["promote"])
	assert.True(t, names["users"])
}
