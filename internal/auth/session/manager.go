package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
)

const (
	DefaultCookieName = "_sid"
	bearerPrefix      = "bearer "
)

// Manager carries the opaque session token in an HttpOnly cookie. Requests
// without the cookie may present the same token as a bearer credential.
type Manager struct {
	cookie string
	secure bool
	clock  clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		cookie: DefaultCookieName,
		secure: cfg.AuthCookieSecure,
		clock:  clk,
	}
}

func (m *Manager) CookieName() string {
	return m.cookie
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(m.cookie); err == nil {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token, true
		}
	}
	return "", false
}

// Set writes the session cookie so it expires with the session row.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	ttl := expiresAt.Sub(m.clock.Now())
	if ttl < time.Second {
		m.Clear(c)
		return
	}
	http.SetCookie(c.Writer, m.newCookie(token, int(ttl/time.Second), expiresAt.UTC()))
}

func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.newCookie("", -1, time.Unix(0, 0).UTC()))
}

func (m *Manager) newCookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
