package authorization

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ObjectTimesheet  = "timesheet"
	ObjectSettings   = "settings"
	ObjectTemplate   = "invoice_template"
	ObjectInvoice    = "invoice"
	ObjectAdminUsers = "admin_users"
)

const (
	ActionTimesheetView   = "timesheet.view"
	ActionTimesheetUpdate = "timesheet.update"

	ActionSettingsView   = "settings.view"
	ActionSettingsUpdate = "settings.update"

	ActionTemplateView   = "invoice_template.view"
	ActionTemplateCreate = "invoice_template.create"
	ActionTemplateUpdate = "invoice_template.update"
	ActionTemplateDelete = "invoice_template.delete"

	ActionInvoiceGenerate = "invoice.generate"

	ActionAdminUsersView   = "admin_users.view"
	ActionAdminUsersUpdate = "admin_users.update"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks the casbin policy for the user's current role. The role
// stored on the user row is authoritative, so the subject's role link is
// rewritten whenever it differs.
func (s *ServiceImpl) Authorize(_ context.Context, userID snowflake.ID, role string, object string, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	object, action = strings.TrimSpace(object), strings.TrimSpace(action)
	if object == "" {
		return ErrInvalidObject
	}
	if action == "" {
		return ErrInvalidAction
	}

	roleName, ok := casbinRoles[strings.ToUpper(strings.TrimSpace(role))]
	if !ok {
		return ErrInvalidActor
	}

	subject := "user:" + userID.String()
	if err := s.link(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

var casbinRoles = map[string]string{
	"USER":  roleUser,
	"ADMIN": roleAdmin,
}

func (s *ServiceImpl) link(subject, roleName string) error {
	current, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return err
	}
	if len(current) == 1 && current[0] == roleName {
		return nil
	}
	if len(current) > 0 {
		if _, err := s.enforcer.DeleteRolesForUser(subject); err != nil {
			return err
		}
	}
	_, err = s.enforcer.AddRoleForUser(subject, roleName)
	return err
}
