package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smallbiznis/timesheet/pkg/db"
	"gorm.io/gorm"
)

const schedulerNamespace = "timesheet_scheduler"

const (
	SchedulerJobReasonDeadlineExceeded     = "deadline_exceeded"
	SchedulerJobReasonDBLockTimeout        = "db_lock_timeout"
	SchedulerJobReasonSerializationFailure = "serialization_failure"
	SchedulerJobReasonUniqueViolation      = "unique_violation"
	SchedulerJobReasonDB                   = "db"
	SchedulerJobReasonUnknown              = "unknown"
)

// schedulerReasons is checked in order; the first match labels the error.
var schedulerReasons = []struct {
	reason  string
	matches func(error) bool
}{
	{SchedulerJobReasonDeadlineExceeded, func(err error) bool {
		return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	}},
	{SchedulerJobReasonDBLockTimeout, func(err error) bool { return db.HasPGCode(err, db.PGLockNotAvailable) }},
	{SchedulerJobReasonSerializationFailure, func(err error) bool { return db.HasPGCode(err, db.PGSerializationFailure) }},
	{SchedulerJobReasonUniqueViolation, func(err error) bool {
		return errors.Is(err, gorm.ErrDuplicatedKey) || db.HasPGCode(err, db.PGUniqueViolation)
	}},
	{SchedulerJobReasonDB, db.IsDriverError},
}

// SchedulerMetrics tracks housekeeping jobs. Every family is prefixed
// timesheet_scheduler_ so the metrics pusher can select them.
type SchedulerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	itemsProcessed *prometheus.CounterVec
	runLoopLag     prometheus.Histogram
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler metrics.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig registers the scheduler metrics on first use, labelled
// with the service and environment from cfg.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func NewSchedulerMetricsForTest(registerer prometheus.Registerer) *SchedulerMetrics {
	return newSchedulerMetrics(registerer, Config{ServiceName: "timesheet", Environment: "test"})
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{
		"service": orDefault(cfg.ServiceName, "timesheet"),
		"env":     orDefault(cfg.Environment, "unknown"),
	}
	factory := promauto.With(prometheus.WrapRegistererWith(labels, registerer))

	return &SchedulerMetrics{
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: schedulerNamespace,
			Name:      "job_runs_total",
			Help:      "Scheduler job runs by name.",
		}, []string{"job"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: schedulerNamespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduler job latency.",
			Buckets:   prometheus.ExponentialBucketsRange(0.01, 60, 12),
		}, []string{"job"}),
		jobTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: schedulerNamespace,
			Name:      "job_timeouts_total",
			Help:      "Scheduler jobs that hit their timeout.",
		}, []string{"job"}),
		jobErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: schedulerNamespace,
			Name:      "job_errors_total",
			Help:      "Scheduler job errors by reason.",
		}, []string{"job", "reason"}),
		itemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: schedulerNamespace,
			Name:      "items_processed_total",
			Help:      "Rows handled by scheduler jobs.",
		}, []string{"job", "resource"}),
		runLoopLag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: schedulerNamespace,
			Name:      "runloop_lag_seconds",
			Help:      "How late a tick fired relative to the configured interval.",
			Buckets:   prometheus.ExponentialBucketsRange(0.01, 300, 13),
		}),
	}
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
}

// AddItemsProcessed counts rows a job touched, e.g. purged sessions.
func (m *SchedulerMetrics) AddItemsProcessed(job, resource string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsProcessed.WithLabelValues(job, resource).Add(float64(count))
}

// ObserveRunLoopLag records lag; early ticks count as zero.
func (m *SchedulerMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(max(lag, 0).Seconds())
}

// ClassifySchedulerJobReason maps a job error to a low-cardinality reason.
func ClassifySchedulerJobReason(err error) string {
	if err == nil {
		return SchedulerJobReasonUnknown
	}
	for _, r := range schedulerReasons {
		if r.matches(err) {
			return r.reason
		}
	}
	return SchedulerJobReasonUnknown
}
