package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	admindomain "github.com/smallbiznis/timesheet/internal/admin/domain"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	authoauth "github.com/smallbiznis/timesheet/internal/auth/oauth"
	"github.com/smallbiznis/timesheet/internal/auth/session"
	"github.com/smallbiznis/timesheet/internal/authorization"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/smallbiznis/timesheet/internal/observability"
	obsmiddleware "github.com/smallbiznis/timesheet/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/timesheet/internal/observability/metrics"
	obstracing "github.com/smallbiznis/timesheet/internal/observability/tracing"
	"github.com/smallbiznis/timesheet/internal/ratelimit"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	authsvc      authdomain.Service
	oauthsvc     authoauth.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	timesheetSvc timesheetdomain.Service
	settingsSvc  contractordomain.Service
	templateSvc  templatedomain.Service
	invoiceSvc   invoicedomain.Service
	adminSvc     admindomain.Service
	limiter      *ratelimit.Limiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Clock        clock.Clock
	Authsvc      authdomain.Service
	OAuthsvc     authoauth.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	TimesheetSvc timesheetdomain.Service
	SettingsSvc  contractordomain.Service
	TemplateSvc  templatedomain.Service
	InvoiceSvc   invoicedomain.Service
	AdminSvc     admindomain.Service
	Limiter      *ratelimit.Limiter  `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          log.Named("http"),
		clock:        c,
		authsvc:      p.Authsvc,
		oauthsvc:     p.OAuthsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		timesheetSvc: p.TimesheetSvc,
		settingsSvc:  p.SettingsSvc,
		templateSvc:  p.TemplateSvc,
		invoiceSvc:   p.InvoiceSvc,
		adminSvc:     p.AdminSvc,
		limiter:      p.Limiter,
		obsMetrics:   p.ObsMetrics,
	}
}

func RegisterRoutes(s *Server) {
	s.RegisterAuthRoutes()
	s.RegisterAPIRoutes()
	s.RegisterAdminRoutes()
	s.RegisterPrintRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAuthRoutes() {
	s.engine.GET(authoauth.CallbackPath, s.LoginRateLimit(), s.OAuthLogin)

	auth := s.engine.Group("/auth")
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/logout", s.Logout)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired(), s.RequireActive(), s.APIRateLimit())

	// -------- Timesheet --------
	api.GET("/week", s.authorize(authorization.ObjectTimesheet, authorization.ActionTimesheetView), s.GetWeek)
	api.GET("/timesheet", s.authorize(authorization.ObjectTimesheet, authorization.ActionTimesheetView), s.GetTimesheet)
	api.POST("/timesheet", s.authorize(authorization.ObjectTimesheet, authorization.ActionTimesheetUpdate), s.SaveTimesheet)

	// -------- Settings --------
	api.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetSettings)
	api.POST("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpsertSettings)

	// -------- Invoice Templates --------
	api.GET("/templates", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateView), s.ListInvoiceTemplates)
	api.POST("/templates", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateCreate), s.CreateInvoiceTemplate)
	api.GET("/templates/:id", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateView), s.GetInvoiceTemplateByID)
	api.PUT("/templates/:id", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateUpdate), s.UpdateInvoiceTemplate)
	api.DELETE("/templates/:id", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateDelete), s.DeleteInvoiceTemplate)
	api.POST("/templates/:id/default", s.authorize(authorization.ObjectTemplate, authorization.ActionTemplateUpdate), s.SetDefaultInvoiceTemplate)

	// -------- Invoices --------
	api.GET("/invoice", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceGenerate), s.PreviewInvoice)
	api.GET("/invoice/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceGenerate), s.DownloadInvoicePDF)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireActive(), s.APIRateLimit())

	admin.GET("/users", s.authorize(authorization.ObjectAdminUsers, authorization.ActionAdminUsersView), s.ListAdminUsers)
	admin.PATCH("/users", s.authorize(authorization.ObjectAdminUsers, authorization.ActionAdminUsersUpdate), s.UpdateAdminUser)
}

func (s *Server) RegisterPrintRoutes() {
	s.engine.GET("/invoice/print",
		s.AuthRequired(),
		s.RequireActive(),
		s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceGenerate),
		s.PrintInvoice,
	)
}
