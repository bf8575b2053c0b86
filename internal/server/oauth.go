package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	authoauth "github.com/smallbiznis/timesheet/internal/auth/oauth"
	"github.com/smallbiznis/timesheet/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthVerifierCookie = "oauth_code_verifier"
	oauthRedirectCookie = "oauth_redirect_to"
	oauthFlowTTL        = 10 * time.Minute

	loginFailedRedirect   = "/login?error=oauth_login"
	loginInactiveRedirect = "/login?error=account_inactive"
)

// oauthFlow is the short-lived state carried in cookies between the redirect
// to Google and the callback.
type oauthFlow struct {
	state    string
	verifier string
	redirect string
}

func readOAuthFlow(c *gin.Context) oauthFlow {
	var f oauthFlow
	f.state, _ = c.Cookie(oauthStateCookie)
	f.verifier, _ = c.Cookie(oauthVerifierCookie)
	f.redirect, _ = c.Cookie(oauthRedirectCookie)
	return f
}

func (f oauthFlow) write(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	for name, value := range f.cookies() {
		if value != "" {
			c.SetCookie(name, value, int(oauthFlowTTL.Seconds()), "/", "", secure, true)
		}
	}
}

func (f oauthFlow) cookies() map[string]string {
	return map[string]string{
		oauthStateCookie:    f.state,
		oauthVerifierCookie: f.verifier,
		oauthRedirectCookie: f.redirect,
	}
}

func clearOAuthFlow(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	for name := range (oauthFlow{}).cookies() {
		c.SetCookie(name, "", -1, "/", "", secure, true)
	}
}

// OAuthLogin serves both legs of the Google flow. Without a code it redirects
// to the consent screen; with one it completes sign-in.
func (s *Server) OAuthLogin(c *gin.Context) {
	ctx := c.Request.Context()

	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		logger.FromContext(ctx).Warn("oauth provider returned error",
			zap.String("error", providerErr),
			zap.String("description", strings.TrimSpace(c.Query("error_description"))),
		)
		clearOAuthFlow(c, s.cfg.AuthCookieSecure)
		s.obsMetrics.RecordLogin(ctx, authoauth.ProviderGoogle, "denied")
		c.Redirect(http.StatusFound, loginFailedRedirect)
		return
	}

	var err error
	if code := strings.TrimSpace(c.Query("code")); code == "" {
		err = s.beginOAuth(c)
	} else {
		err = s.completeOAuth(c, code)
	}
	if err != nil {
		s.failOAuth(c, err)
	}
}

func (s *Server) beginOAuth(c *gin.Context) error {
	result, err := s.oauthsvc.RedirectURL(c.Request.Context(), authoauth.RedirectRequest{
		RedirectURI: s.oauthRedirectURI(c),
	})
	if err != nil {
		return err
	}

	redirect := c.Query("redirectTo")
	if strings.TrimSpace(redirect) == "" {
		redirect = c.Query("callbackUrl")
	}
	oauthFlow{
		state:    result.State,
		verifier: strings.TrimSpace(result.CodeVerifier),
		redirect: sanitizeRedirectPath(redirect),
	}.write(c, s.cfg.AuthCookieSecure)

	c.Redirect(http.StatusFound, result.URL)
	return nil
}

func (s *Server) completeOAuth(c *gin.Context, code string) error {
	flow := readOAuthFlow(c)
	clearOAuthFlow(c, s.cfg.AuthCookieSecure)

	state := strings.TrimSpace(c.Query("state"))
	if state == "" || flow.state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(flow.state)) != 1 {
		return ErrUnauthorized
	}

	ctx := c.Request.Context()
	identity, err := s.oauthsvc.Login(ctx, authoauth.LoginRequest{
		Code:         code,
		RedirectURI:  s.oauthRedirectURI(c),
		CodeVerifier: flow.verifier,
	})
	if err != nil {
		return err
	}

	result, err := s.authsvc.SignIn(ctx, authdomain.SignInRequest{
		Identity:  *identity,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		return err
	}
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	outcome := "ok"
	if result.Created {
		outcome = "created"
	}
	s.obsMetrics.RecordLogin(ctx, authoauth.ProviderGoogle, outcome)
	logger.FromContext(ctx).Info("user signed in",
		zap.String("user_id", result.User.ID.String()),
		zap.String("status", string(result.User.Status)),
		zap.Bool("created", result.Created),
	)

	target := sanitizeRedirectPath(flow.redirect)
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
	return nil
}

func (s *Server) failOAuth(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, authoauth.ErrNotConfigured):
		AbortWithError(c, err)
	case errors.Is(err, authdomain.ErrAccountInactive):
		s.obsMetrics.RecordLogin(ctx, authoauth.ProviderGoogle, "inactive")
		c.Redirect(http.StatusFound, loginInactiveRedirect)
	default:
		s.obsMetrics.RecordLogin(ctx, authoauth.ProviderGoogle, "failed")
		logger.FromContext(ctx).Warn("oauth login failed", zap.Error(err))
		c.Redirect(http.StatusFound, loginFailedRedirect)
	}
}

// oauthRedirectURI prefers the configured public URL and otherwise rebuilds
// the origin from the request, honouring proxy headers.
func (s *Server) oauthRedirectURI(c *gin.Context) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicBaseURL), "/")
	if base != "" {
		return base + authoauth.CallbackPath
	}

	scheme, host := "http", c.Request.Host
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := forwardedValue(c.GetHeader("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(proto)
	}
	if fwdHost := forwardedValue(c.GetHeader("X-Forwarded-Host")); fwdHost != "" {
		host = fwdHost
	}
	return scheme + "://" + host + authoauth.CallbackPath
}

// forwardedValue returns the first entry of a comma separated proxy header.
func forwardedValue(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// sanitizeRedirectPath only admits same-origin absolute paths.
func sanitizeRedirectPath(raw string) string {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.HasPrefix(value, "/\\") {
		return ""
	}
	return value
}
