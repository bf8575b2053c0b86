package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	authoauth "github.com/smallbiznis/timesheet/internal/auth/oauth"
	"github.com/smallbiznis/timesheet/internal/authorization"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// Each entry is a domain sentinel named "invalid_<field>". Wrapped errors
// still resolve to the sentinel's code.
var validationSentinels = []error{
	ErrInvalidRequest,
	timecalc.ErrInvalidFormat,
	timecalc.ErrInvalidBreak,
	timecalc.ErrInvalidWeekStart,
	timesheetdomain.ErrInvalidUser,
	timesheetdomain.ErrInvalidDays,
	timesheetdomain.ErrInvalidDay,
	timesheetdomain.ErrInvalidDate,
	contractordomain.ErrInvalidUser,
	contractordomain.ErrInvalidABN,
	contractordomain.ErrInvalidBankBSB,
	contractordomain.ErrInvalidBankAccount,
	contractordomain.ErrInvalidPostcode,
	templatedomain.ErrInvalidUser,
	templatedomain.ErrInvalidID,
	templatedomain.ErrInvalidTemplateName,
	templatedomain.ErrInvalidClientName,
	templatedomain.ErrInvalidDayRate,
	templatedomain.ErrInvalidGSTPercentage,
	invoicedomain.ErrInvalidTemplate,
	invoicedomain.ErrInvalidUser,
	admindomain.ErrInvalidUserID,
	admindomain.ErrInvalidRole,
	admindomain.ErrInvalidStatus,
	admindomain.ErrInvalidEmail,
	authdomain.ErrInvalidEmail,
}

// errorKind is one row of the error to response mapping. The first kind
// whose sentinel matches wins.
type errorKind struct {
	status  int
	typ     string
	message string
	matches []error
}

var errorKinds = []errorKind{
	{http.StatusUnauthorized, "unauthorized", "unauthorized", []error{
		ErrUnauthorized,
		authdomain.ErrInvalidSession,
		authdomain.ErrSessionExpired,
		authdomain.ErrSessionRevoked,
		authoauth.ErrUnauthorized,
	}},
	{http.StatusForbidden, "account_pending", "account is awaiting approval", []error{authdomain.ErrAccountPending}},
	{http.StatusForbidden, "account_inactive", "account is inactive", []error{authdomain.ErrAccountInactive}},
	{http.StatusForbidden, "forbidden", "forbidden", []error{
		ErrForbidden,
		authorization.ErrForbidden,
		authorization.ErrInvalidActor,
		authdomain.ErrEmailNotVerified,
	}},
	{http.StatusConflict, "missing_template", "create an invoice template first", []error{invoicedomain.ErrMissingTemplate}},
	{http.StatusConflict, "missing_settings", "save contractor settings first", []error{invoicedomain.ErrMissingSettings}},
	{http.StatusConflict, "conflict", "conflict", []error{ErrConflict, timesheetdomain.ErrSaveInFlight}},
	{http.StatusNotFound, "not_found", "not found", []error{
		ErrNotFound,
		timesheetdomain.ErrNotFound,
		templatedomain.ErrNotFound,
		authdomain.ErrUserNotFound,
		gorm.ErrRecordNotFound,
	}},
	{http.StatusTooManyRequests, "rate_limited", "too many requests", []error{ErrRateLimited}},
	{http.StatusServiceUnavailable, "service_unavailable", "service unavailable", []error{
		ErrServiceUnavailable,
		authoauth.ErrNotConfigured,
	}},
}

var internalError = errorPayload{Type: "internal_error", Message: "internal server error"}

// ErrorHandlingMiddleware renders the last error a handler attached, unless
// the handler already wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, validationPayload(vErr.Errors)
	}
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, validationPayload([]ValidationError{sentinelViolation(sentinel.Error())})
		}
	}

	for _, kind := range errorKinds {
		for _, target := range kind.matches {
			if errors.Is(err, target) {
				return kind.status, errorPayload{Type: kind.typ, Message: kind.message}
			}
		}
	}
	return http.StatusInternalServerError, internalError
}

func validationPayload(violations []ValidationError) errorPayload {
	return errorPayload{Type: "validation_error", Message: "validation error", Errors: violations}
}

// classifyErrorForLog reports the response type and the most specific code
// for the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

var violationMessages = map[string]string{
	"invalid_request":     "invalid request",
	"invalid_time_format": "times must be HH:MM",
	"invalid_week_start":  "weekStart must be YYYY-MM-DD",
}

// sentinelViolation derives field and message from an "invalid_<field>" code.
func sentinelViolation(code string) ValidationError {
	field := strings.TrimPrefix(code, "invalid_")
	if code == "invalid_request" {
		field = "request"
	}
	message, ok := violationMessages[code]
	if !ok {
		message = "invalid value"
	}
	return ValidationError{Field: field, Code: code, Message: message}
}
