package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/auth/domain"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 30 * 24 * time.Hour
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Config      config.Config
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
}

type Service struct {
	log         *zap.Logger
	adminEmail  string
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		adminEmail:  strings.ToLower(strings.TrimSpace(p.Config.AdminEmail)),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
		clock:       c,
	}
}

// SignIn finds or creates the user for a verified identity and opens a
// session. New accounts start PENDING unless they match the admin email.
// INACTIVE accounts are refused; the admin email is never refused.
func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Identity.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !req.Identity.Verified {
		return nil, domain.ErrEmailNotVerified
	}

	now := s.clock.Now().UTC()
	isAdmin := s.adminEmail != "" && email == s.adminEmail

	created := false
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = s.newUser(req.Identity, email, isAdmin, now)
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
		created = true
		s.log.Info("user created",
			zap.String("user_id", user.ID.String()),
			zap.String("role", string(user.Role)),
			zap.String("status", string(user.Status)),
		)
	case err != nil:
		return nil, err
	default:
		if user.Status == domain.StatusInactive && !isAdmin {
			s.log.Info("sign in refused", zap.String("user_id", user.ID.String()), zap.String("reason", "inactive"))
			return nil, domain.ErrAccountInactive
		}
		fields := map[string]any{
			"last_login_at": now,
			"updated_at":    now,
		}
		if name := strings.TrimSpace(req.Identity.Name); name != "" && name != user.Name {
			fields["name"] = name
			user.Name = name
		}
		if picture := strings.TrimSpace(req.Identity.Picture); picture != "" && picture != user.Image {
			fields["image"] = picture
			user.Image = picture
		}
		if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
		user.LastLoginAt = &now
		user.UpdatedAt = now
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		Created:   created,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) newUser(identity domain.Identity, email string, isAdmin bool, now time.Time) *domain.User {
	role, status := domain.RoleUser, domain.StatusPending
	if isAdmin {
		role, status = domain.RoleAdmin, domain.StatusActive
	}

	provider := strings.TrimSpace(identity.Provider)
	if provider == "" {
		provider = "google"
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = defaultDisplayName(email)
	}

	user := &domain.User{
		ID:          s.genID.Generate(),
		Provider:    provider,
		Email:       email,
		Name:        name,
		Image:       strings.TrimSpace(identity.Picture),
		Role:        role,
		Status:      status,
		LastLoginAt: &now,
		Metadata:    datatypes.JSONMap{"email_verified": identity.Verified},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	externalID := strings.TrimSpace(identity.ExternalID)
	if externalID == "" {
		externalID = email
	}
	user.ExternalID = provider + ":" + externalID
	return user
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now().UTC())
}

// Authenticate resolves a raw session token to its live session and user.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, *domain.User, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}

	now := s.clock.Now().UTC()
	if session.RevokedAt != nil {
		return nil, nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, nil, err
	}
	session.LastSeenAt = now

	return session, user, nil
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) RevokeUserSessions(ctx context.Context, userID snowflake.ID) error {
	n, err := s.sessionRepo.RevokeUserSessions(ctx, userID, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("sessions revoked", zap.String("user_id", userID.String()), zap.Int64("count", n))
	}
	return nil
}

// PurgeSessions removes sessions that expired or were revoked more than
// retention ago.
func (s *Service) PurgeSessions(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	return s.sessionRepo.PurgeSessions(ctx, s.clock.Now().UTC().Add(-retention))
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
