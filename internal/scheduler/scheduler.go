package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	authdomain "github.com/smallbiznis/timesheet/internal/auth/domain"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/metricspush"
	obsmetrics "github.com/smallbiznis/timesheet/internal/observability/metrics"
	"github.com/smallbiznis/timesheet/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobPurgeSessions = "purge_sessions"

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

type Params struct {
	fx.In

	Log     *zap.Logger
	Auth    authdomain.Service
	GenID   *snowflake.Node
	Clock   clock.Clock
	Limiter *ratelimit.Limiter `optional:"true"`
	Config  Config             `optional:"true"`
	Pusher  metricspush.Pusher `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	auth    authdomain.Service
	limiter *ratelimit.Limiter
	pusher  metricspush.Pusher
	jobs    map[string]func(ctx context.Context) error

	mu      sync.Mutex
	cron    gocron.Scheduler
	lastRun map[string]time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Auth == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		auth:    p.Auth,
		limiter: p.Limiter,
		pusher:  p.Pusher,
		lastRun: map[string]time.Time{},
	}
	s.jobs = map[string]func(ctx context.Context) error{
		JobPurgeSessions: s.PurgeSessionsJob,
	}
	return s, nil
}

// Start registers every job with gocron and begins ticking. The first run
// happens immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	for _, name := range s.jobNames() {
		_, err := cron.NewJob(
			gocron.DurationJob(s.cfg.Interval),
			gocron.NewTask(s.tick, name),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = cron.Shutdown()
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	cron.Start()
	s.cron = cron
	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Strings("jobs", s.jobNames()),
	)
	return nil
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cron := s.cron
	s.cron = nil
	s.mu.Unlock()
	if cron == nil {
		return nil
	}
	return cron.Shutdown()
}

// RunOnce runs every job a single time in name order.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, name := range s.jobNames() {
		err = errors.Join(err, s.runJob(parent, name, s.cfg.JobTimeout, s.jobs[name]))
	}
	s.pushMetrics(parent)
	return err
}

func (s *Scheduler) tick(name string) {
	now := s.clock.Now()
	s.mu.Lock()
	last, seen := s.lastRun[name]
	s.lastRun[name] = now
	s.mu.Unlock()
	if seen {
		obsmetrics.Scheduler().ObserveRunLoopLag(now.Sub(last) - s.cfg.Interval)
	}

	if err := s.runJob(context.Background(), name, s.cfg.JobTimeout, s.jobs[name]); err != nil {
		s.log.Warn("scheduler run failed", zap.String("job", name), zap.Error(err))
	}
	s.pushMetrics(context.Background())
}

// pushMetrics forwards the scheduler metric families when a pusher is
// configured. Failures are logged only.
func (s *Scheduler) pushMetrics(parent context.Context) {
	if s.pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()
	gatherer := metricspush.PrefixGatherer{
		Gatherer: prometheus.DefaultGatherer,
		Prefix:   metricspush.SchedulerPrefix,
	}
	if err := s.pusher.Push(ctx, gatherer); err != nil {
		s.log.Warn("scheduler metrics push failed", zap.Error(err))
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	if fn == nil {
		return fmt.Errorf("%s: unknown job", name)
	}

	token, ok, err := s.limiter.LockJob(parent, name, timeout+5*time.Second)
	if err != nil {
		s.log.Warn("job lock unavailable, running unlocked", zap.String("job", name), zap.Error(err))
	} else if !ok {
		s.log.Debug("job already running elsewhere", zap.String("job", name))
		return nil
	}
	defer func() {
		if token != "" {
			_ = s.limiter.UnlockJob(context.Background(), name, token)
		}
	}()

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startRun(ctx, name)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err = fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.finishRun(ctx, run, err)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.runLogger(ctx, run).Warn("job timed out", zap.Duration("timeout", timeout))
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// PurgeSessionsJob deletes sessions that expired or were revoked more than
// the retention window ago.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	purged, err := s.auth.PurgeSessions(ctx, s.cfg.SessionRetention)
	if err != nil {
		return err
	}
	runFromContext(ctx).addProcessed(purged)
	obsmetrics.Scheduler().AddItemsProcessed(JobPurgeSessions, "sessions", purged)
	return nil
}

func (s *Scheduler) jobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
