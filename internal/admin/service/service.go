package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       admindomain.Repository
	Users      authdomain.Repository
	Auth       authdomain.Service
	Timesheets timesheetdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       admindomain.Repository
	users      authdomain.Repository
	auth       authdomain.Service
	timesheets timesheetdomain.Repository
}

func New(p Params) admindomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("admin.service"),
		repo:       p.Repo,
		users:      p.Users,
		auth:       p.Auth,
		timesheets: p.Timesheets,
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]admindomain.UserSummary, error) {
	users, err := s.repo.ListUsers(ctx, s.db)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	counts, err := s.timesheets.CountByUser(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]admindomain.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, toSummary(&users[i], counts[users[i].ID]))
	}
	return out, nil
}

func (s *Service) UpdateUser(ctx context.Context, req admindomain.UpdateRequest) (*admindomain.UserSummary, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID <= 0 {
		return nil, admindomain.ErrInvalidUserID
	}

	fields := map[string]any{}
	if raw := strings.TrimSpace(req.Role); raw != "" {
		role, ok := authdomain.ParseRole(raw)
		if !ok {
			return nil, admindomain.ErrInvalidRole
		}
		fields["role"] = role
	}

	var status authdomain.Status
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, ok := authdomain.ParseStatus(raw)
		if !ok {
			return nil, admindomain.ErrInvalidStatus
		}
		status = parsed
		fields["status"] = parsed
	}

	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}

	if status == authdomain.StatusInactive {
		if err := s.auth.RevokeUserSessions(ctx, userID); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user updated by admin",
		zap.String("actor_id", req.ActorID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)),
	)
	return s.summary(ctx, user)
}

func (s *Service) Promote(ctx context.Context, email string) (*admindomain.UserSummary, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, admindomain.ErrInvalidEmail
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	err = s.users.UpdateFields(ctx, user.ID, map[string]any{
		"role":   authdomain.RoleAdmin,
		"status": authdomain.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	user, err = s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user promoted to admin", zap.String("user_id", user.ID.String()))
	return s.summary(ctx, user)
}

func (s *Service) summary(ctx context.Context, user *authdomain.User) (*admindomain.UserSummary, error) {
	counts, err := s.timesheets.CountByUser(ctx, s.db, []snowflake.ID{user.ID})
	if err != nil {
		return nil, err
	}
	out := toSummary(user, counts[user.ID])
	return &out, nil
}

func toSummary(u *authdomain.User, timesheets int64) admindomain.UserSummary {
	return admindomain.UserSummary{
		ID:             u.ID.String(),
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Status:         u.Status,
		TimesheetCount: timesheets,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
