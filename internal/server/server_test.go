package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	authoauth "github.com/smallbiznis/timesheet/internal/auth/oauth"
	"github.com/smallbiznis/timesheet/internal/auth/session"
	"github.com/smallbiznis/timesheet/internal/authorization"
	"github.com/smallbiznis/timesheet/internal/config"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"github.com/smallbiznis/timesheet/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeAuthService struct {
	authdomain.Service

	users   map[string]*authdomain.User
	revoked []snowflake.ID
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, *authdomain.User, error) {
	user, ok := f.users[rawToken]
	if !ok {
		return nil, nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{UserID: user.ID}, user, nil
}

func (f *fakeAuthService) RevokeUserSessions(ctx context.Context, userID snowflake.ID) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

func (f *fakeAuthService) SignIn(ctx context.Context, req authdomain.SignInRequest) (*authdomain.LoginResult, error) {
	if req.Identity.Email == "inactive@example.com" {
		return nil, authdomain.ErrAccountInactive
	}
	user := &authdomain.User{ID: 20, Email: req.Identity.Email, Role: authdomain.RoleUser, Status: authdomain.StatusActive}
	f.users["fresh"] = user
	return &authdomain.LoginResult{User: user, Created: true, RawToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeOAuthService struct {
	email    string
	verifier string
}

func (f *fakeOAuthService) Enabled() bool { return true }

func (f *fakeOAuthService) RedirectURL(ctx context.Context, req authoauth.RedirectRequest) (*authoauth.RedirectResult, error) {
	return &authoauth.RedirectResult{
		URL:          "https://accounts.example.com/auth?redirect_uri=" + req.RedirectURI,
		State:        "state-123",
		CodeVerifier: "verifier-456",
	}, nil
}

func (f *fakeOAuthService) Login(ctx context.Context, req authoauth.LoginRequest) (*authdomain.Identity, error) {
	f.verifier = req.CodeVerifier
	return &authdomain.Identity{Provider: authoauth.ProviderGoogle, ExternalID: "sub-1", Email: f.email, Verified: true}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	if _, ok := f.users[rawToken]; !ok {
		return authdomain.ErrInvalidSession
	}
	delete(f.users, rawToken)
	return nil
}

type fakeTimesheetService struct {
	timesheetdomain.Service

	saved *timesheetdomain.SaveRequest
}

func (f *fakeTimesheetService) Get(ctx context.Context, userID snowflake.ID, weekStart string) (*timesheetdomain.Record, error) {
	return nil, timesheetdomain.ErrNotFound
}

func (f *fakeTimesheetService) Save(ctx context.Context, req timesheetdomain.SaveRequest) (*timesheetdomain.Record, error) {
	f.saved = &req
	start, err := timecalc.ParseWeekKey(req.WeekStart)
	if err != nil {
		return nil, err
	}
	return &timesheetdomain.Record{
		ID:   snowflake.ID(77),
		Week: timecalc.Week{WeekStart: start, WeeklyTotal: "7:30"},
	}, nil
}

type fakeTemplateService struct {
	templatedomain.Service

	update *templatedomain.UpdateRequest
}

func (f *fakeTemplateService) Update(ctx context.Context, req templatedomain.UpdateRequest) (*templatedomain.Response, error) {
	f.update = &req
	return &templatedomain.Response{}, nil
}

type fakeInvoiceService struct {
	invoicedomain.Service

	err error
}

func (f *fakeInvoiceService) Preview(ctx context.Context, req invoicedomain.Request) (invoicedomain.View, error) {
	if f.err != nil {
		return invoicedomain.View{}, f.err
	}
	start := req.WeekStart
	return invoicedomain.View{
		Number:        "25020399",
		WeekStart:     start,
		WeekEnding:    invoicedomain.WeekEnding(start),
		WeeklyMinutes: 2400,
		DaysWorked:    5,
		DayRateCents:  125000,
		SubtotalCents: 625000,
		GSTPercentage: 0.1,
		GSTCents:      62500,
		TotalCents:    687500,
		TemplateID:    snowflake.ID(9),
		TemplateName:  "Acme",
		ClientName:    "Acme Pty Ltd",
	}, nil
}

type fakeAdminService struct {
	admindomain.Service
}

func (f *fakeAdminService) ListUsers(ctx context.Context) ([]admindomain.UserSummary, error) {
	return []admindomain.UserSummary{{ID: "1", Email: "a@example.com"}}, nil
}

type testHarness struct {
	engine     *gin.Engine
	auth       *fakeAuthService
	timesheets *fakeTimesheetService
	templates  *fakeTemplateService
	invoices   *fakeInvoiceService
	oauth      *fakeOAuthService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	h := &testHarness{
		engine: gin.New(),
		auth: &fakeAuthService{users: map[string]*authdomain.User{
			"active":   {ID: 10, Email: "active@example.com", Role: authdomain.RoleUser, Status: authdomain.StatusActive},
			"pending":  {ID: 11, Email: "pending@example.com", Role: authdomain.RoleUser, Status: authdomain.StatusPending},
			"inactive": {ID: 12, Email: "inactive@example.com", Role: authdomain.RoleUser, Status: authdomain.StatusInactive},
			"admin":    {ID: 13, Email: "boss@example.com", Role: authdomain.RoleAdmin, Status: authdomain.StatusActive},
			"owner":    {ID: 14, Email: "Owner@Example.com", Role: authdomain.RoleAdmin, Status: authdomain.StatusPending},
		}},
		timesheets: &fakeTimesheetService{},
		templates:  &fakeTemplateService{},
		invoices:   &fakeInvoiceService{},
		oauth:      &fakeOAuthService{email: "new@example.com"},
	}
	h.engine.Use(ErrorHandlingMiddleware())

	cfg := config.Config{AdminEmail: "owner@example.com"}
	srv := NewServer(ServerParams{
		Gin:          h.engine,
		Cfg:          cfg,
		Log:          zap.NewNop(),
		Authsvc:      h.auth,
		OAuthsvc:     h.oauth,
		Sessions:     session.NewManager(cfg, nil),
		AuthzSvc:     authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		TimesheetSvc: h.timesheets,
		TemplateSvc:  h.templates,
		InvoiceSvc:   h.invoices,
		AdminSvc:     &fakeAdminService{},
	})
	RegisterRoutes(srv)
	return h
}

func (h *testHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestAPIRequiresSession(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/timesheet?weekStart=2025-01-27", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)

	w = h.do(http.MethodGet, "/api/timesheet?weekStart=2025-01-27", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPendingUserIsRefused(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/templates", "pending", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_pending", decodeError(t, w).Type)
}

func TestPendingUserCanReadProfile(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/auth/me", "pending", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data meResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, authdomain.StatusPending, resp.Data.Status)
}

func TestInactiveUserLosesSession(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/templates", "inactive", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_inactive", decodeError(t, w).Type)
	assert.Equal(t, []snowflake.ID{12}, h.auth.revoked)

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, session.DefaultCookieName+"=;")
	assert.Contains(t, cookie, "Max-Age=0")
}

func TestAdminEmailBypassesStatus(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/admin/users", "owner", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/admin/users", "active", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Type)

	w = h.do(http.MethodGet, "/api/admin/users", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a@example.com"`)
}

func TestGetTimesheet(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/timesheet", "active", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "weekStart", payload.Errors[0].Field)

	w = h.do(http.MethodGet, "/api/timesheet?weekStart=2025-01-27", "active", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}

func TestSaveTimesheetAcceptsStringBreaks(t *testing.T) {
	h := newTestHarness(t)

	body := map[string]any{
		"weekStart":   "2025-01-27",
		"weeklyTotal": "99:00",
		"data": map[string]any{
			"Mon": map[string]any{
				"date":         "2025-01-27",
				"start":        "09:00",
				"finish":       "17:00",
				"breakHours":   "0",
				"breakMinutes": "30",
			},
			"tue": map[string]any{
				"date":         "2025-01-28",
				"breakHours":   1,
				"breakMinutes": "",
			},
		},
	}
	w := h.do(http.MethodPost, "/api/timesheet", "active", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, h.timesheets.saved)
	saved := h.timesheets.saved
	assert.Equal(t, snowflake.ID(10), saved.UserID)
	assert.Equal(t, 30, saved.Days["mon"].BreakMinutes)
	assert.Equal(t, "09:00", saved.Days["mon"].Start)
	assert.Equal(t, 1, saved.Days["tue"].BreakHours)
	assert.Equal(t, 0, saved.Days["tue"].BreakMinutes)

	var resp struct {
		Data savedTimesheetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "77", resp.Data.ID)
	assert.Equal(t, "7:30", resp.Data.WeeklyTotal)
}

func TestSaveTimesheetRequiresData(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodPost, "/api/timesheet", "active", map[string]any{"weekStart": "2025-01-27"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, h.timesheets.saved)
}

func TestUpdateTemplateGSTNullClears(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodPut, "/api/templates/5", "active", map[string]any{"gstPercentage": nil})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, h.templates.update)
	assert.True(t, h.templates.update.ClearGST)
	assert.Nil(t, h.templates.update.GSTPercentage)
	assert.Equal(t, "5", h.templates.update.ID)

	w = h.do(http.MethodPut, "/api/templates/5", "active", map[string]any{"gstPercentage": 0.15})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, h.templates.update.ClearGST)
	require.NotNil(t, h.templates.update.GSTPercentage)
	assert.InDelta(t, 0.15, *h.templates.update.GSTPercentage, 1e-9)
}

func TestPreviewInvoice(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/invoice?weekStart=2025-02-03&templateId=9", "active", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data invoiceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-02-09", resp.Data.WeekEnding)
	assert.Equal(t, "09 Feb", resp.Data.WeekEndingLabel)
	assert.Equal(t, "40.00", resp.Data.TotalHours)
	assert.InDelta(t, 6875.0, resp.Data.Total, 1e-9)
	assert.Equal(t, "6,875.00", resp.Data.Formatted.Total)
	assert.Equal(t, "10", resp.Data.Formatted.GSTPercentage)
}

func TestPreviewInvoiceErrors(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodGet, "/api/invoice?templateId=abc", "active", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/invoice?weekStart=27-01-2025", "active", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h.invoices.err = invoicedomain.ErrMissingTemplate
	w = h.do(http.MethodGet, "/api/invoice", "active", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "missing_template", decodeError(t, w).Type)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(http.MethodPost, "/auth/logout", "active", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = h.do(http.MethodGet, "/auth/me", "active", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		typ    string
	}{
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{authdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthorized"},
		{authdomain.ErrAccountPending, http.StatusForbidden, "account_pending"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("wrap: %w", timecalc.ErrInvalidFormat), http.StatusBadRequest, "validation_error"},
		{invoicedomain.ErrMissingSettings, http.StatusConflict, "missing_settings"},
		{timesheetdomain.ErrSaveInFlight, http.StatusConflict, "conflict"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{templatedomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, payload := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.typ, payload.Type, tt.err.Error())
	}
}

func TestMapErrorValidationField(t *testing.T) {
	_, payload := mapError(timecalc.ErrInvalidWeekStart)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "week_start", payload.Errors[0].Field)
	assert.Equal(t, "invalid_week_start", payload.Errors[0].Code)
	assert.Equal(t, "weekStart must be YYYY-MM-DD", payload.Errors[0].Message)
}

func TestFlexIntDecoding(t *testing.T) {
	tests := map[string]int{
		`5`:      5,
		`"12"`:   12,
		`" 3 "`:  3,
		`""`:     0,
		`null`:   0,
		`"30.0"`: 30,
		`-2`:     -2,
	}
	for raw, want := range tests {
		var got flexInt
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.Equal(t, want, int(got), raw)
	}

	for _, raw := range []string{`"abc"`, `1.9`, `"1e30"`, `1e30`, `true`} {
		var got flexInt
		err := json.Unmarshal([]byte(raw), &got)
		assert.ErrorIs(t, err, timecalc.ErrInvalidBreak, raw)
	}
}

func TestSaveTimesheetRejectsMalformedBreak(t *testing.T) {
	h := newTestHarness(t)

	body := map[string]any{
		"weekStart": "2025-01-27",
		"data": map[string]any{
			"mon": map[string]any{"start": "08:30", "finish": "17:00", "breakHours": "abc", "breakMinutes": "1e30"},
		},
	}
	w := h.do(http.MethodPost, "/api/timesheet", "active", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_break", payload.Errors[0].Code)
	assert.Nil(t, h.timesheets.saved)
}

func TestSanitizeRedirectPath(t *testing.T) {
	assert.Equal(t, "/timesheet?week=1", sanitizeRedirectPath(" /timesheet?week=1 "))
	assert.Empty(t, sanitizeRedirectPath("//evil.example.com"))
	assert.Empty(t, sanitizeRedirectPath("https://evil.example.com"))
	assert.Empty(t, sanitizeRedirectPath("timesheet"))
	assert.Empty(t, sanitizeRedirectPath("/\\evil.example.com"))
	assert.True(t, strings.HasPrefix(sanitizeRedirectPath("/"), "/"))
}

func TestParseOptionalWeekStart(t *testing.T) {
	got, err := parseOptionalWeekStart("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseOptionalWeekStart("2025-01-27")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC), got)

	_, err = parseOptionalWeekStart("nope")
	assert.ErrorIs(t, err, timecalc.ErrInvalidWeekStart)
}

func TestOAuthLoginRoundTrip(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, authoauth.CallbackPath+"?redirectTo=/timesheet", nil)
	req.Host = "app.example.com"
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "redirect_uri=http://app.example.com/login/google")

	callback := httptest.NewRequest(http.MethodGet, authoauth.CallbackPath+"?code=abc&state=state-123", nil)
	for _, cookie := range w.Result().Cookies() {
		callback.AddCookie(cookie)
	}
	w = httptest.NewRecorder()
	h.engine.ServeHTTP(w, callback)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/timesheet", w.Header().Get("Location"))
	assert.Equal(t, "verifier-456", h.oauth.verifier)

	var sessionSet bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == session.DefaultCookieName && cookie.Value == "fresh" {
			sessionSet = true
		}
	}
	assert.True(t, sessionSet)
}

func TestOAuthLoginRejectsStateMismatch(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, authoauth.CallbackPath+"?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-123"})
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, loginFailedRedirect, w.Header().Get("Location"))
	assert.Empty(t, h.oauth.verifier)
}

func TestOAuthLoginInactiveAccount(t *testing.T) {
	h := newTestHarness(t)
	h.oauth.email = "inactive@example.com"

	req := httptest.NewRequest(http.MethodGet, authoauth.CallbackPath+"?code=abc&state=state-123", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-123"})
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, loginInactiveRedirect, w.Header().Get("Location"))
}
