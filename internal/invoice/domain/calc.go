package domain

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
)

const (
	// MinutesPerDay is the length of one billable day.
	MinutesPerDay     = 8 * 60
	WeekEndingLayout  = "02 Jan"
	DefaultGSTPercent = 0.1
)

// ContractorDetails is the effective identity printed on an invoice.
type ContractorDetails struct {
	Name        string `json:"name"`
	ABN         string `json:"abn"`
	BankBSB     string `json:"bankBsb"`
	BankAccount string `json:"bankAccount"`
	Address     string `json:"address"`
}

// ComputeInput carries everything needed to price one week.
type ComputeInput struct {
	Number        string
	WeekStart     time.Time
	WeeklyMinutes int
	Settings      *contractordomain.Settings
	Template      *templatedomain.Template
	// GSTFallback applies when the template stores no GST percentage.
	GSTFallback float64
}

// View is a priced invoice. Money values are integer cents so that
// TotalCents is always exactly SubtotalCents + GSTCents.
type View struct {
	Number        string
	WeekStart     time.Time
	WeekEnding    time.Time
	WeeklyMinutes int
	DaysWorked    float64
	DayRateCents  int64
	SubtotalCents int64
	GSTPercentage float64
	GSTCents      int64
	TotalCents    int64
	TemplateID    snowflake.ID
	TemplateName  string
	ClientName    string
	Contractor    ContractorDetails
}

// WeekEndingLabel renders the week end as "02 Jan".
func (v View) WeekEndingLabel() string {
	return v.WeekEnding.Format(WeekEndingLayout)
}

// DaysWorked converts worked minutes to 8 hour days, unrounded.
func DaysWorked(weeklyMinutes int) float64 {
	return float64(weeklyMinutes) / MinutesPerDay
}

// WeekEnding is the Sunday of the week starting at weekStart.
func WeekEnding(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 6)
}

// ToCents converts a dollar amount to cents, rounding half away from zero.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ComputeInvoice prices a week from its total minutes and a template.
// The GST inclusive total is derived as subtotal + gst; no fixed
// multiplier is ever applied.
func ComputeInvoice(in ComputeInput) (View, error) {
	if in.Template == nil {
		return View{}, ErrMissingTemplate
	}
	if in.Settings == nil {
		return View{}, ErrMissingSettings
	}

	minutes := in.WeeklyMinutes
	if minutes < 0 {
		minutes = 0
	}

	pct := in.Template.GST(in.GSTFallback)
	rate := ToCents(in.Template.DayRate)
	subtotal := int64(math.Round(float64(minutes) * float64(rate) / MinutesPerDay))
	gst := int64(math.Round(float64(subtotal) * pct))

	return View{
		Number:        in.Number,
		WeekStart:     in.WeekStart,
		WeekEnding:    WeekEnding(in.WeekStart),
		WeeklyMinutes: minutes,
		DaysWorked:    DaysWorked(minutes),
		DayRateCents:  rate,
		SubtotalCents: subtotal,
		GSTPercentage: pct,
		GSTCents:      gst,
		TotalCents:    subtotal + gst,
		TemplateID:    in.Template.ID,
		TemplateName:  in.Template.TemplateName,
		ClientName:    in.Template.ClientName,
		Contractor:    ResolveContractorDetails(*in.Settings, *in.Template),
	}, nil
}

// ResolveContractorDetails overlays non-empty template overrides onto the
// global settings. A custom address is used verbatim.
func ResolveContractorDetails(global contractordomain.Settings, tmpl templatedomain.Template) ContractorDetails {
	return ContractorDetails{
		Name:        firstNonEmpty(tmpl.CustomContractorName, global.ContractorName),
		ABN:         firstNonEmpty(tmpl.CustomABN, global.ABN),
		BankBSB:     firstNonEmpty(tmpl.CustomBankBSB, global.BankBSB),
		BankAccount: firstNonEmpty(tmpl.CustomBankAccount, global.BankAccount),
		Address:     firstNonEmpty(tmpl.CustomAddress, global.Address()),
	}
}

func firstNonEmpty(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}

// SortTemplates orders templates default first, then by name.
func SortTemplates(templates []templatedomain.Template, defaultID snowflake.ID) {
	sort.SliceStable(templates, func(i, j int) bool {
		di := defaultID != 0 && templates[i].ID == defaultID
		dj := defaultID != 0 && templates[j].ID == defaultID
		if di != dj {
			return di
		}
		return templates[i].TemplateName < templates[j].TemplateName
	})
}

// SelectTemplate picks the requested template when it is active, else the
// default, else the first active template in SortTemplates order.
func SelectTemplate(templates []templatedomain.Template, defaultID, requestedID snowflake.ID) (templatedomain.Template, error) {
	active := make([]templatedomain.Template, 0, len(templates))
	for _, t := range templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return templatedomain.Template{}, ErrMissingTemplate
	}

	for _, wanted := range []snowflake.ID{requestedID, defaultID} {
		if wanted == 0 {
			continue
		}
		for _, t := range active {
			if t.ID == wanted {
				return t, nil
			}
		}
	}

	SortTemplates(active, defaultID)
	return active[0], nil
}
