package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/timesheet/internal/auth/domain"
	"github.com/smallbiznis/timesheet/internal/config"
	obstracing "github.com/smallbiznis/timesheet/internal/observability/tracing"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle   = "google"
	CallbackPath     = "/login/google"
	defaultTokenSize = 32

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var googleScopes = []string{"openid", "email", "profile"}

type Service interface {
	Enabled() bool
	RedirectURL(ctx context.Context, req RedirectRequest) (*RedirectResult, error)
	Login(ctx context.Context, req LoginRequest) (*domain.Identity, error)
}

type RedirectRequest struct {
	RedirectURI string
}

type RedirectResult struct {
	URL          string
	State        string
	CodeVerifier string
}

type LoginRequest struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// Config describes an OAuth2 client. Endpoint and UserInfoURL default to
// Google's when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	Scopes       []string
}

func NewConfig(cfg config.Config) Config {
	return Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		UserInfoURL:  googleUserInfoURL,
		Scopes:       googleScopes,
	}
}

type service struct {
	cfg        Config
	httpClient *http.Client
}

func NewService(cfg Config) Service {
	if cfg.Endpoint.AuthURL == "" && cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if strings.TrimSpace(cfg.UserInfoURL) == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = googleScopes
	}
	return &service{
		cfg:        cfg,
		httpClient: obstracing.WrapHTTPClient(http.DefaultClient),
	}
}

func (s *service) Enabled() bool {
	return strings.TrimSpace(s.cfg.ClientID) != "" && strings.TrimSpace(s.cfg.ClientSecret) != ""
}

func (s *service) oauth2Config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     s.cfg.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       s.cfg.Scopes,
	}
}

func (s *service) RedirectURL(ctx context.Context, req RedirectRequest) (*RedirectResult, error) {
	_ = ctx

	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(req.RedirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	state, err := randomToken(defaultTokenSize)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := s.oauth2Config(req.RedirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)

	return &RedirectResult{
		URL:          authURL,
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*domain.Identity, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrInvalidRequest
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	oc := s.oauth2Config(req.RedirectURI)

	opts := []oauth2.AuthCodeOption{}
	if strings.TrimSpace(req.CodeVerifier) != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}
	token, err := oc.Exchange(ctx, req.Code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return s.fetchIdentity(ctx, oc.Client(ctx, token))
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *service) fetchIdentity(ctx context.Context, client *http.Client) (*domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, ErrUnauthorized
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(info.Sub) == "" || strings.TrimSpace(info.Email) == "" {
		return nil, ErrUnauthorized
	}

	return &domain.Identity{
		Provider:   ProviderGoogle,
		ExternalID: strings.TrimSpace(info.Sub),
		Email:      strings.TrimSpace(info.Email),
		Name:       strings.TrimSpace(info.Name),
		Picture:    strings.TrimSpace(info.Picture),
		Verified:   claimTrue(info.EmailVerified),
	}, nil
}

// Google returns email_verified as a bool, older endpoints as a string.
func claimTrue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func randomToken(size int) (string, error) {
	if size <= 0 {
		size = defaultTokenSize
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
