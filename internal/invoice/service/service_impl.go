package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	"github.com/smallbiznis/timesheet/internal/invoice/format"
	"github.com/smallbiznis/timesheet/internal/invoice/render"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/smallbiznis/timesheet/internal/observability/metrics"
	"github.com/smallbiznis/timesheet/internal/providers/pdf"
	"github.com/smallbiznis/timesheet/internal/providers/storage"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Schedule   *config.ScheduleConfigHolder
	Settings   contractordomain.Service
	Templates  templatedomain.Service
	Timesheets timesheetdomain.Service
	Renderer   render.Renderer
	PDF        pdf.Provider
	Archive    storage.Archive  `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	schedule   *config.ScheduleConfigHolder
	settings   contractordomain.Service
	templates  templatedomain.Service
	timesheets timesheetdomain.Service
	renderer   render.Renderer
	pdf        pdf.Provider
	archive    storage.Archive
	metrics    *metrics.Metrics

	// intn is the invoice number random source; nil uses math/rand/v2.
	intn func(n int) int
}

func NewService(p ServiceParam) invoicedomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:        p.Log.Named("invoice.service"),
		clock:      c,
		schedule:   p.Schedule,
		settings:   p.Settings,
		templates:  p.Templates,
		timesheets: p.Timesheets,
		renderer:   p.Renderer,
		pdf:        p.PDF,
		archive:    p.Archive,
		metrics:    p.Metrics,
	}
}

func (s *Service) Preview(ctx context.Context, req invoicedomain.Request) (invoicedomain.View, error) {
	view, err := s.build(ctx, req)
	if err != nil {
		return invoicedomain.View{}, err
	}
	s.metrics.RecordInvoice(ctx, "json")
	return view, nil
}

func (s *Service) RenderHTML(ctx context.Context, req invoicedomain.Request) (string, error) {
	view, err := s.build(ctx, req)
	if err != nil {
		return "", err
	}
	html, err := s.renderer.RenderHTML(render.RenderInput{Invoice: view})
	if err != nil {
		return "", err
	}
	s.metrics.RecordInvoice(ctx, "html")
	return html, nil
}

func (s *Service) RenderPDF(ctx context.Context, req invoicedomain.Request) (invoicedomain.Document, error) {
	view, err := s.build(ctx, req)
	if err != nil {
		return invoicedomain.Document{}, err
	}

	body, err := s.pdf.GenerateInvoice(ctx, toPDFData(view))
	if err != nil {
		return invoicedomain.Document{}, fmt.Errorf("generate invoice pdf: %w", err)
	}

	doc := invoicedomain.Document{
		Filename:    Filename(view),
		ContentType: pdfContentType,
		Body:        bytes.NewReader(body),
		Size:        int64(len(body)),
	}

	if s.archive != nil && s.archive.Enabled() {
		key := ObjectKey(req.UserID, view, ulid.MustNew(ulid.Timestamp(s.clock.Now()), ulid.DefaultEntropy()))
		url, err := s.archive.Put(ctx, key, pdfContentType, body)
		if err != nil {
			s.log.Warn("invoice archive failed",
				zap.String("user_id", req.UserID.String()),
				zap.String("key", key),
				zap.Error(err),
			)
		} else {
			doc.ArchiveURL = url
		}
	}

	s.metrics.RecordInvoice(ctx, "pdf")
	return doc, nil
}

func (s *Service) build(ctx context.Context, req invoicedomain.Request) (invoicedomain.View, error) {
	if req.UserID == 0 {
		return invoicedomain.View{}, invoicedomain.ErrInvalidUser
	}

	now := s.clock.Now().UTC()
	weekStart := req.WeekStart
	if weekStart.IsZero() {
		weekStart = now
	}
	weekStart = timecalc.StartOfWeek(weekStart.UTC())

	settings, err := s.settings.Get(ctx, req.UserID)
	if err != nil {
		return invoicedomain.View{}, err
	}
	if settings == nil {
		return invoicedomain.View{}, invoicedomain.ErrMissingSettings
	}

	templates, defaultID, err := s.templates.Active(ctx, req.UserID)
	if err != nil {
		return invoicedomain.View{}, err
	}
	tmpl, err := invoicedomain.SelectTemplate(templates, defaultID, req.TemplateID)
	if err != nil {
		return invoicedomain.View{}, err
	}

	week, err := s.timesheets.FindWeek(ctx, req.UserID, weekStart)
	if err != nil {
		return invoicedomain.View{}, err
	}
	minutes := s.weekMinutes(req.UserID, week)

	sched := s.scheduleConfig()
	number, err := format.NewGenerator(sched.InvoiceNumberFormat, s.intn).Generate(now)
	if err != nil {
		return invoicedomain.View{}, err
	}

	return invoicedomain.ComputeInvoice(invoicedomain.ComputeInput{
		Number:        number,
		WeekStart:     weekStart,
		WeeklyMinutes: minutes,
		Settings:      settings,
		Template:      &tmpl,
		GSTFallback:   sched.GSTFallback,
	})
}

// weekMinutes is 0 when the week was never saved. Days with malformed
// stored times are priced at zero; the stored weekly total is never read.
func (s *Service) weekMinutes(userID snowflake.ID, week *timecalc.Week) int {
	if week == nil {
		return 0
	}
	minutes, err := timecalc.TotalMinutes(*week)
	if err != nil {
		s.log.Warn("stored week has malformed times",
			zap.String("user_id", userID.String()),
			zap.String("week_start", week.Key()),
			zap.Error(err),
		)
	}
	return minutes
}

func (s *Service) scheduleConfig() config.ScheduleConfig {
	if s.schedule == nil {
		return config.DefaultScheduleConfig()
	}
	return s.schedule.Get()
}

// Filename is the download name, e.g. invoice-25013147-acme-pty-ltd.pdf.
func Filename(view invoicedomain.View) string {
	return slug.Make("invoice "+view.Number+" "+view.ClientName) + ".pdf"
}

// ObjectKey places archived invoices under invoices/<user>/<week>/. The
// ULID prefix keeps every download as its own object in time order.
func ObjectKey(userID snowflake.ID, view invoicedomain.View, id ulid.ULID) string {
	return fmt.Sprintf("invoices/%s/%s/%s-%s", userID.String(), timecalc.WeekKey(view.WeekStart), id.String(), Filename(view))
}

func toPDFData(view invoicedomain.View) pdf.InvoiceData {
	return pdf.InvoiceData{
		Number:         view.Number,
		ContractorName: view.Contractor.Name,
		ABN:            view.Contractor.ABN,
		BankBSB:        view.Contractor.BankBSB,
		BankAccount:    view.Contractor.BankAccount,
		Address:        view.Contractor.Address,
		ClientName:     view.ClientName,
		WeekEnding:     view.WeekEndingLabel(),
		Days:           format.Days(view.DaysWorked),
		DayRate:        format.Money(view.DayRateCents),
		Subtotal:       format.Money(view.SubtotalCents),
		GSTLabel:       "GST " + format.Percent(view.GSTPercentage) + "% ($)",
		GST:            format.Money(view.GSTCents),
		Total:          format.Money(view.TotalCents),
		TotalHours:     format.Hours(view.WeeklyMinutes),
	}
}
