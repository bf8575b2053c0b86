package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/config"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	"github.com/smallbiznis/timesheet/internal/invoice/render"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/smallbiznis/timesheet/internal/providers/pdf"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	monday = time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	issued = time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
)

type fakeSettings struct {
	contractordomain.Service
	settings *contractordomain.Settings
}

func (f fakeSettings) Get(context.Context, snowflake.ID) (*contractordomain.Settings, error) {
	return f.settings, nil
}

type fakeTemplates struct {
	templatedomain.Service
	items     []templatedomain.Template
	defaultID snowflake.ID
}

func (f fakeTemplates) Active(context.Context, snowflake.ID) ([]templatedomain.Template, snowflake.ID, error) {
	return f.items, f.defaultID, nil
}

type fakeTimesheets struct {
	timesheetdomain.Service
	week *timecalc.Week
	got  time.Time
}

func (f *fakeTimesheets) FindWeek(_ context.Context, _ snowflake.ID, weekStart time.Time) (*timecalc.Week, error) {
	f.got = weekStart
	return f.week, nil
}

type fakePDF struct {
	data pdf.InvoiceData
}

func (f *fakePDF) GenerateInvoice(_ context.Context, data pdf.InvoiceData) ([]byte, error) {
	f.data = data
	return []byte("%PDF-1.3 fake"), nil
}

type fakeArchive struct {
	key  string
	body []byte
	err  error
}

func (f *fakeArchive) Enabled() bool { return true }

func (f *fakeArchive) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	f.key = key
	f.body = body
	if f.err != nil {
		return "", f.err
	}
	return "https://archive.example.com/" + key, nil
}

func gst(v float64) *float64 { return &v }

type fixture struct {
	svc        *Service
	timesheets *fakeTimesheets
	pdf        *fakePDF
	archive    *fakeArchive
}

func newFixture(t *testing.T, week *timecalc.Week, templates ...templatedomain.Template) fixture {
	t.Helper()

	ts := &fakeTimesheets{week: week}
	pdfProvider := &fakePDF{}
	archive := &fakeArchive{}
	svc := NewService(ServiceParam{
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(issued),
		Schedule: config.NewStaticScheduleConfigHolder(config.DefaultScheduleConfig()),
		Settings: fakeSettings{settings: &contractordomain.Settings{
			ContractorName: "Jane Contractor",
			ABN:            "51 824 753 556",
			BankBSB:        "062-000",
			BankAccount:    "12345678",
			AddressLine1:   "1 Main St",
			City:           "Sydney",
			State:          "NSW",
			Postcode:       "2000",
		}},
		Templates:  fakeTemplates{items: templates},
		Timesheets: ts,
		Renderer:   render.NewRenderer(),
		PDF:        pdfProvider,
		Archive:    archive,
	}).(*Service)
	svc.intn = func(int) int { return 47 }

	return fixture{svc: svc, timesheets: ts, pdf: pdfProvider, archive: archive}
}

func fullWeek() *timecalc.Week {
	week := timecalc.InitializeWeek(monday)
	return &week
}

func TestPreviewFullWeek(t *testing.T) {
	f := newFixture(t, fullWeek(), templatedomain.Template{
		ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1250, GSTPercentage: gst(0.1), IsActive: true,
	})

	view, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday.AddDate(0, 0, 2)})
	require.NoError(t, err)

	assert.Equal(t, monday, f.timesheets.got)
	assert.Equal(t, "25013147", view.Number)
	assert.Equal(t, 5.0, view.DaysWorked)
	assert.Equal(t, int64(625000), view.SubtotalCents)
	assert.Equal(t, int64(62500), view.GSTCents)
	assert.Equal(t, int64(687500), view.TotalCents)
	assert.Equal(t, "02 Feb", view.WeekEndingLabel())
	assert.Equal(t, "1 Main St Sydney NSW 2000", view.Contractor.Address)
}

func TestPreviewWithoutTimesheetUsesEmptyWeek(t *testing.T) {
	f := newFixture(t, nil, templatedomain.Template{
		ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1250, IsActive: true,
	})

	view, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)
	assert.Equal(t, 0.0, view.DaysWorked)
	assert.Equal(t, int64(0), view.TotalCents)
	assert.Equal(t, 0.1, view.GSTPercentage)
}

func TestPreviewPricesDaysThatRecompute(t *testing.T) {
	week := fullWeek()
	week.Days[1].Start = "8.30"
	week.WeeklyTotal = "40:00"
	f := newFixture(t, week, templatedomain.Template{
		ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1000, GSTPercentage: gst(0), IsActive: true,
	})

	view, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)
	assert.Equal(t, 4*8*60, view.WeeklyMinutes)
	assert.Equal(t, 4.0, view.DaysWorked)
	assert.Equal(t, int64(400000), view.SubtotalCents)
}

func TestPreviewHonoursZeroGSTFallback(t *testing.T) {
	f := newFixture(t, fullWeek(), templatedomain.Template{
		ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1000, IsActive: true,
	})
	sched := config.DefaultScheduleConfig()
	sched.GSTFallback = 0
	require.NoError(t, config.ValidateScheduleConfig(sched))
	f.svc.schedule = config.NewStaticScheduleConfigHolder(sched)

	view, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)
	assert.Equal(t, 0.0, view.GSTPercentage)
	assert.Equal(t, int64(0), view.GSTCents)
	assert.Equal(t, view.SubtotalCents, view.TotalCents)
}

func TestPreviewDefaultsToCurrentWeek(t *testing.T) {
	f := newFixture(t, nil, templatedomain.Template{ID: 1, TemplateName: "A", ClientName: "B", DayRate: 100, IsActive: true})

	_, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, monday, f.timesheets.got)
}

func TestPreviewMissingPrerequisites(t *testing.T) {
	f := newFixture(t, fullWeek())
	_, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	assert.ErrorIs(t, err, invoicedomain.ErrMissingTemplate)

	f.svc.settings = fakeSettings{}
	_, err = f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	assert.ErrorIs(t, err, invoicedomain.ErrMissingSettings)

	_, err = f.svc.Preview(context.Background(), invoicedomain.Request{WeekStart: monday})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidUser)
}

func TestPreviewHonoursRequestedTemplate(t *testing.T) {
	f := newFixture(t, fullWeek(),
		templatedomain.Template{ID: 1, TemplateName: "Acme", ClientName: "Acme", DayRate: 1000, IsActive: true},
		templatedomain.Template{ID: 2, TemplateName: "Globex", ClientName: "Globex", DayRate: 1000, GSTPercentage: gst(0.15), IsActive: true},
	)

	view, err := f.svc.Preview(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday, TemplateID: 2})
	require.NoError(t, err)
	assert.Equal(t, "Globex", view.ClientName)
	assert.Equal(t, int64(500000), view.SubtotalCents)
	assert.Equal(t, int64(75000), view.GSTCents)
	assert.Equal(t, view.SubtotalCents+view.GSTCents, view.TotalCents)
}

func TestRenderHTML(t *testing.T) {
	f := newFixture(t, fullWeek(), templatedomain.Template{ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1250, IsActive: true})

	html, err := f.svc.RenderHTML(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)
	assert.Contains(t, html, "TAX INVOICE")
	assert.Contains(t, html, "$6,875.00")
}

func TestRenderPDFArchivesDocument(t *testing.T) {
	f := newFixture(t, fullWeek(), templatedomain.Template{ID: 1, TemplateName: "Acme", ClientName: "Acme Pty Ltd", DayRate: 1250, IsActive: true})

	doc, err := f.svc.RenderPDF(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)

	assert.Equal(t, "invoice-25013147-acme-pty-ltd.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	body, err := io.ReadAll(doc.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
	assert.Equal(t, int64(len(body)), doc.Size)

	assert.Regexp(t, `^invoices/7/2025-01-27/[0-9A-Z]{26}-invoice-25013147-acme-pty-ltd\.pdf$`, f.archive.key)
	id, err := ulid.ParseStrict(strings.Split(f.archive.key, "/")[3][:ulid.EncodedSize])
	require.NoError(t, err)
	assert.Equal(t, issued.UnixMilli(), int64(id.Time()))
	assert.Equal(t, "https://archive.example.com/"+f.archive.key, doc.ArchiveURL)

	assert.Equal(t, "6,875.00", f.pdf.data.Total)
	assert.Equal(t, "GST 10% ($)", f.pdf.data.GSTLabel)
	assert.Equal(t, "40.00", f.pdf.data.TotalHours)
}

func TestRenderPDFArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, fullWeek(), templatedomain.Template{ID: 1, TemplateName: "Acme", ClientName: "Acme", DayRate: 1250, IsActive: true})
	f.archive.err = errors.New("bucket unavailable")

	doc, err := f.svc.RenderPDF(context.Background(), invoicedomain.Request{UserID: 7, WeekStart: monday})
	require.NoError(t, err)
	assert.Empty(t, doc.ArchiveURL)
}

func TestObjectKey(t *testing.T) {
	id := ulid.MustNew(ulid.Timestamp(issued), bytes.NewReader(make([]byte, 16)))
	view := invoicedomain.View{Number: "25013147", ClientName: "Acme", WeekStart: monday}

	assert.Equal(t,
		"invoices/7/2025-01-27/"+id.String()+"-invoice-25013147-acme.pdf",
		ObjectKey(snowflake.ID(7), view, id),
	)
}
