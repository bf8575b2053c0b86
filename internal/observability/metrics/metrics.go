package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the domain instruments. A nil *Metrics records nothing.
type Metrics struct {
	timesheetSaves metric.Int64Counter
	weekHours      metric.Float64Histogram
	invoices       metric.Int64Counter
	logins         metric.Int64Counter
	rateLimits     metric.Int64Counter
}

// Bucket bounds for hours worked in one week.
var weekHoursBuckets = []float64{0, 8, 16, 24, 32, 38, 40, 45, 50, 60, 80}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "timesheet"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.timesheetSaves, "timesheet_saves_total", "Weekly timesheet saves by outcome."},
		{&m.invoices, "timesheet_invoices_generated_total", "Invoices produced by output format."},
		{&m.logins, "timesheet_logins_total", "Sign-in attempts by provider and outcome."},
		{&m.rateLimits, "timesheet_rate_limit_decisions_total", "Rate limit decisions by scope."},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}
	m.weekHours, err = meter.Float64Histogram("timesheet_week_hours",
		metric.WithDescription("Hours worked in each saved week."),
		metric.WithUnit("h"),
		metric.WithExplicitBucketBoundaries(weekHoursBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordTimesheetSave counts a save and, when it succeeded, observes the
// week's worked hours.
func (m *Metrics) RecordTimesheetSave(ctx context.Context, outcome string, weeklyMinutes int) {
	if m == nil {
		return
	}
	m.timesheetSaves.Add(ctx, 1, withLabels(attribute.String("outcome", outcome)))
	if outcome == "saved" {
		m.weekHours.Record(ctx, float64(weeklyMinutes)/60)
	}
}

// RecordInvoice counts generated invoices by output format (json, html, pdf).
func (m *Metrics) RecordInvoice(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.invoices.Add(ctx, 1, withLabels(attribute.String("format", format)))
}

func (m *Metrics) RecordLogin(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, withLabels(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	m.recordRateLimit(ctx, endpoint, "allowed", "")
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, scope string) {
	m.recordRateLimit(ctx, endpoint, "denied", scope)
}

func (m *Metrics) recordRateLimit(ctx context.Context, endpoint, decision, scope string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("decision", decision),
	}
	if scope != "" {
		attrs = append(attrs, attribute.String("scope", scope))
	}
	m.rateLimits.Add(ctx, 1, withLabels(attrs...))
}

func withLabels(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(FilterAttributes(attrs...)...)
}

var allowedLabelKeys = map[attribute.Key]bool{
	"endpoint": true,
	"provider": true,
	"outcome":  true,
	"format":   true,
	"decision": true,
	"scope":    true,
}

// FilterAttributes drops labels outside the allowlist and trims values, so
// ids and emails never become series.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if !allowedLabelKeys[attr.Key] {
			continue
		}
		if attr.Value.Type() == attribute.STRING {
			attr = attr.Key.String(strings.TrimSpace(attr.Value.AsString()))
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
