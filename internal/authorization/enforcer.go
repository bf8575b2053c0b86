package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	roleUser  = "role:user"
	roleAdmin = "role:admin"
)

type grant struct {
	object  string
	actions []string
}

// grants lists the direct permissions of each role. role:admin also inherits
// everything role:user holds.
var grants = map[string][]grant{
	roleUser: {
		{ObjectTimesheet, []string{ActionTimesheetView, ActionTimesheetUpdate}},
		{ObjectSettings, []string{ActionSettingsView, ActionSettingsUpdate}},
		{ObjectTemplate, []string{ActionTemplateView, ActionTemplateCreate, ActionTemplateUpdate, ActionTemplateDelete}},
		{ObjectInvoice, []string{ActionInvoiceGenerate}},
	},
	roleAdmin: {
		{ObjectAdminUsers, []string{ActionAdminUsersView, ActionAdminUsersUpdate}},
	},
}

// NewEnforcer loads policy from the casbin_rule table and adds any built-in
// grant that is missing. Running it against a seeded table is a no-op.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	for role, list := range grants {
		for _, g := range list {
			for _, action := range g.actions {
				if err := ensurePolicy(enforcer, role, g.object, action); err != nil {
					return nil, err
				}
			}
		}
	}
	if ok, err := enforcer.HasGroupingPolicy(roleAdmin, roleUser); err != nil {
		return nil, err
	} else if !ok {
		if _, err := enforcer.AddGroupingPolicy(roleAdmin, roleUser); err != nil {
			return nil, err
		}
	}

	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func ensurePolicy(enforcer *casbin.SyncedEnforcer, rule ...string) error {
	ok, err := enforcer.HasPolicy(rule)
	if err != nil || ok {
		return err
	}
	_, err = enforcer.AddPolicy(rule)
	return err
}
