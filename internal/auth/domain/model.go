// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ParseRole returns the role for raw, accepting any letter case.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// ParseStatus returns the account status for raw, accepting any letter case.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusActive:
		return StatusActive, true
	case StatusInactive:
		return StatusInactive, true
	}
	return "", false
}

// User represents a signed-in account.
type User struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID        string            `gorm:"column:external_id;type:text;uniqueIndex" json:"-"`
	Provider          string            `gorm:"column:provider;type:text;not null;default:'google'" json:"provider"`
	Email             string            `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	Name              string            `gorm:"column:name;type:text" json:"name"`
	Image             string            `gorm:"column:image;type:text" json:"image,omitempty"`
	Role              Role              `gorm:"column:role;type:text;not null;default:'USER'" json:"role"`
	Status            Status            `gorm:"column:status;type:text;not null;default:'PENDING'" json:"status"`
	DefaultTemplateID *snowflake.ID     `gorm:"column:default_template_id" json:"defaultTemplateId,omitempty"`
	LastLoginAt       *time.Time        `gorm:"column:last_login_at" json:"lastLoginAt"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata" json:"-"`
	CreatedAt         time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Identity is the verified profile returned by an OAuth provider.
type Identity struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
	Picture    string
	Verified   bool
}
