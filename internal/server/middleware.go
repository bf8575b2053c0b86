package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	obscontext "github.com/smallbiznis/timesheet/internal/observability/context"
	"github.com/smallbiznis/timesheet/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	contextUserKey    = "auth_user"
	contextSessionKey = "auth_session"
)

// AuthRequired resolves the session cookie to a user. Account status is not
// checked here so pending users can still read /auth/me.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithUser(c.Request.Context(), user.ID.String(), string(user.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserKey, user)
		c.Set(contextSessionKey, session)
		c.Next()
	}
}

// RequireActive refuses PENDING and INACTIVE accounts. An INACTIVE account
// also loses every session and its cookie. The configured admin email is
// never refused.
func (s *Server) RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.isAdminEmail(user.Email) {
			c.Next()
			return
		}

		switch user.Status {
		case authdomain.StatusActive:
			c.Next()
		case authdomain.StatusInactive:
			if err := s.authsvc.RevokeUserSessions(c.Request.Context(), user.ID); err != nil {
				logger.FromContext(c.Request.Context()).Warn("revoke inactive sessions failed", zap.Error(err))
			}
			s.sessions.Clear(c)
			AbortWithError(c, authdomain.ErrAccountInactive)
		default:
			AbortWithError(c, authdomain.ErrAccountPending)
		}
	}
}

// APIRateLimit budgets authenticated calls per user when redis is configured.
func (s *Server) APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		user, ok := currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		result, err := s.limiter.AllowAPI(ctx, user.ID.String())
		if err != nil {
			// Redis outages do not block the API.
			logger.FromContext(ctx).Warn("api rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, "api")
			setRetryAfter(c, result.RetryAfter.Seconds())
			AbortWithError(c, ErrRateLimited)
			return
		}
		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

// LoginRateLimit budgets sign-in attempts per client address.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		result, err := s.limiter.AllowLogin(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("login rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, "login")
			setRetryAfter(c, result.RetryAfter.Seconds())
			AbortWithError(c, ErrRateLimited)
			return
		}
		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*authdomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*authdomain.User)
	if !ok || user == nil || user.ID == 0 {
		return nil, false
	}
	return user, true
}

func (s *Server) isAdminEmail(email string) bool {
	admin := strings.ToLower(strings.TrimSpace(s.cfg.AdminEmail))
	return admin != "" && strings.ToLower(strings.TrimSpace(email)) == admin
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	route := strings.TrimSpace(c.FullPath())
	if route == "" {
		route = "unknown"
	}
	return route
}

func setRetryAfter(c *gin.Context, seconds float64) {
	if seconds <= 0 {
		return
	}
	c.Header("Retry-After", strconv.Itoa(int(seconds+0.999)))
}
