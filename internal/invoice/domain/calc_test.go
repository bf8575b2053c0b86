package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gst(v float64) *float64 { return &v }

var weekStart = time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)

func globalSettings() *contractordomain.Settings {
	return &contractordomain.Settings{
		ContractorName: "Jane Contractor",
		ABN:            "12 345 678 901",
		BankBSB:        "062-000",
		BankAccount:    "1234 5678",
		AddressLine1:   "1 George St",
		City:           "Sydney",
		State:          "NSW",
		Postcode:       "2000",
	}
}

func TestComputeInvoiceFortyHourWeek(t *testing.T) {
	view, err := ComputeInvoice(ComputeInput{
		WeekStart:     weekStart,
		WeeklyMinutes: 40 * 60,
		Settings:      globalSettings(),
		Template:      &templatedomain.Template{ClientName: "Acme", DayRate: 1250, GSTPercentage: gst(0.1)},
		GSTFallback:   DefaultGSTPercent,
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, view.DaysWorked)
	assert.Equal(t, int64(125000), view.DayRateCents)
	assert.Equal(t, int64(625000), view.SubtotalCents)
	assert.Equal(t, int64(62500), view.GSTCents)
	assert.Equal(t, int64(687500), view.TotalCents)
	assert.Equal(t, "02 Feb", view.WeekEndingLabel())
	assert.Equal(t, "Acme", view.ClientName)
}

func TestComputeInvoiceTotalIsSubtotalPlusGST(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		rate    float64
		pct     float64
	}{
		{"ten percent", 2400, 1250, 0.1},
		{"fifteen percent", 2400, 1250, 0.15},
		{"zero gst", 1000, 980.5, 0},
		{"odd minutes", 2227, 1333.33, 0.1},
		{"partial day", 95, 777.77, 0.125},
		{"no hours", 0, 1250, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := ComputeInvoice(ComputeInput{
				WeekStart:     weekStart,
				WeeklyMinutes: tt.minutes,
				Settings:      globalSettings(),
				Template:      &templatedomain.Template{DayRate: tt.rate, GSTPercentage: gst(tt.pct)},
			})
			require.NoError(t, err)
			assert.Equal(t, view.SubtotalCents+view.GSTCents, view.TotalCents)
		})
	}
}

func TestComputeInvoiceUsesTemplateGSTNotFixedMultiplier(t *testing.T) {
	view, err := ComputeInvoice(ComputeInput{
		WeekStart:     weekStart,
		WeeklyMinutes: 2400,
		Settings:      globalSettings(),
		Template:      &templatedomain.Template{DayRate: 1250, GSTPercentage: gst(0.15)},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(93750), view.GSTCents)
	assert.Equal(t, int64(718750), view.TotalCents)
	assert.NotEqual(t, int64(687500), view.TotalCents, "total must not be subtotal * 1.1")
}

func TestComputeInvoiceGSTFallback(t *testing.T) {
	view, err := ComputeInvoice(ComputeInput{
		WeekStart:     weekStart,
		WeeklyMinutes: 480,
		Settings:      globalSettings(),
		Template:      &templatedomain.Template{DayRate: 1000},
		GSTFallback:   0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, view.GSTPercentage)
	assert.Equal(t, int64(10000), view.GSTCents)

	// An explicit zero is honoured.
	view, err = ComputeInvoice(ComputeInput{
		WeekStart:     weekStart,
		WeeklyMinutes: 480,
		Settings:      globalSettings(),
		Template:      &templatedomain.Template{DayRate: 1000, GSTPercentage: gst(0)},
		GSTFallback:   0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.GSTCents)
}

func TestComputeInvoiceMissingInputs(t *testing.T) {
	_, err := ComputeInvoice(ComputeInput{Settings: globalSettings()})
	assert.True(t, errors.Is(err, ErrMissingTemplate))

	_, err = ComputeInvoice(ComputeInput{Template: &templatedomain.Template{DayRate: 1}})
	assert.True(t, errors.Is(err, ErrMissingSettings))
}

func TestDaysWorked(t *testing.T) {
	assert.Equal(t, 5.0, DaysWorked(2400))
	assert.Equal(t, 0.5, DaysWorked(240))
	assert.Equal(t, 0.0, DaysWorked(0))
}

func TestResolveContractorDetailsUsesGlobalWhenNoOverride(t *testing.T) {
	details := ResolveContractorDetails(*globalSettings(), templatedomain.Template{})

	assert.Equal(t, "12 345 678 901", details.ABN)
	assert.Equal(t, "Jane Contractor", details.Name)
	assert.Equal(t, "062-000", details.BankBSB)
	assert.Equal(t, "1234 5678", details.BankAccount)
	assert.Equal(t, "1 George St Sydney NSW 2000", details.Address)
}

func TestResolveContractorDetailsOverrides(t *testing.T) {
	global := *globalSettings()
	global.AddressLine2 = "Level 3"

	details := ResolveContractorDetails(global, templatedomain.Template{
		CustomContractorName: "Jane Pty Ltd",
		CustomABN:            "98 765 432 109",
		CustomBankBSB:        "   ",
		CustomAddress:        "PO Box 1, Melbourne VIC 3000",
	})

	assert.Equal(t, "Jane Pty Ltd", details.Name)
	assert.Equal(t, "98 765 432 109", details.ABN)
	assert.Equal(t, "062-000", details.BankBSB, "blank override falls back to global")
	assert.Equal(t, "1234 5678", details.BankAccount)
	assert.Equal(t, "PO Box 1, Melbourne VIC 3000", details.Address)

	assert.Equal(t, "1 George St, Level 3 Sydney NSW 2000", ResolveContractorDetails(global, templatedomain.Template{}).Address)
}

func TestSelectTemplate(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	zeta := templatedomain.Template{ID: node.Generate(), TemplateName: "Zeta", IsActive: true}
	alpha := templatedomain.Template{ID: node.Generate(), TemplateName: "Alpha", IsActive: true}
	beta := templatedomain.Template{ID: node.Generate(), TemplateName: "Beta", IsActive: true}
	retired := templatedomain.Template{ID: node.Generate(), TemplateName: "Aardvark", IsActive: false}
	all := []templatedomain.Template{zeta, alpha, beta, retired}

	tests := []struct {
		name      string
		defaultID snowflake.ID
		requested snowflake.ID
		want      string
	}{
		{"requested wins", zeta.ID, beta.ID, "Beta"},
		{"default when nothing requested", zeta.ID, 0, "Zeta"},
		{"default when requested is unknown", zeta.ID, 42, "Zeta"},
		{"inactive request ignored", 0, retired.ID, "Alpha"},
		{"first by name without default", 0, 0, "Alpha"},
		{"inactive default ignored", retired.ID, 0, "Alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]templatedomain.Template(nil), all...)
			got, err := SelectTemplate(input, tt.defaultID, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TemplateName)
		})
	}

	_, err = SelectTemplate([]templatedomain.Template{retired}, 0, 0)
	assert.ErrorIs(t, err, ErrMissingTemplate)

	_, err = SelectTemplate(nil, 0, 0)
	assert.ErrorIs(t, err, ErrMissingTemplate)
}

func TestSortTemplates(t *testing.T) {
	templates := []templatedomain.Template{
		{ID: 1, TemplateName: "Charlie"},
		{ID: 2, TemplateName: "Alpha"},
		{ID: 3, TemplateName: "Bravo"},
	}
	SortTemplates(templates, 3)

	names := []string{templates[0].TemplateName, templates[1].TemplateName, templates[2].TemplateName}
	assert.Equal(t, []string{"Bravo", "Alpha", "Charlie"}, names)
}
