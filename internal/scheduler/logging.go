package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/timesheet/internal/observability/context"
	obslogger "github.com/smallbiznis/timesheet/internal/observability/logger"
	"go.uber.org/zap"
)

// runRecord accumulates one job execution for its closing log line. Its
// methods accept a nil receiver so jobs called outside runJob still work.
type runRecord struct {
	job       string
	id        string
	started   time.Time
	processed int64
	failures  int
}

type runKey struct{}

func (r *runRecord) addProcessed(n int64) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

func (r *runRecord) fail() {
	if r != nil {
		r.failures++
	}
}

func runFromContext(ctx context.Context) *runRecord {
	r, _ := ctx.Value(runKey{}).(*runRecord)
	return r
}

// startRun stamps ctx with a fresh run id and the system identity used for
// log correlation.
func (s *Scheduler) startRun(ctx context.Context, job string) (context.Context, *runRecord) {
	r := &runRecord{
		job:     job,
		id:      s.genID.Generate().String(),
		started: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, runKey{}, r)
	ctx = obscontext.WithUser(ctx, "scheduler", "system")
	s.runLogger(ctx, r).Info("scheduler job started")
	return ctx, r
}

func (s *Scheduler) finishRun(ctx context.Context, r *runRecord, err error) {
	if err != nil && r.failures == 0 {
		r.fail()
	}
	fields := []zap.Field{
		zap.Duration("duration", s.clock.Now().Sub(r.started)),
		zap.Int64("processed", r.processed),
		zap.Int("failures", r.failures),
	}
	log := s.runLogger(ctx, r)
	if r.failures > 0 {
		log.Warn("scheduler job finished with errors", append(fields, zap.Error(err))...)
		return
	}
	log.Info("scheduler job finished", fields...)
}

func (s *Scheduler) runLogger(ctx context.Context, r *runRecord) *zap.Logger {
	return obslogger.WithContext(ctx, s.log).With(
		zap.String("job", r.job),
		zap.String("run_id", r.id),
	)
}
