package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/timesheet/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyLogin     = "timesheet:rl:login:%s"
	keyAPI       = "timesheet:rl:api:%s"
	keyWeekLock  = "timesheet:lock:week:%s:%s"
	keyJobLock   = "timesheet:lock:job:%s"
	weekLockTTL  = 10 * time.Second
	perMinuteDiv = 60.0
)

// NewClient returns nil when rate limiting is disabled.
func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("redis unreachable at startup", zap.String("addr", addr), zap.Error(err))
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}
	return client, nil
}

// Limiter applies per-client request budgets and per-week save locks.
// A nil or disabled Limiter allows everything.
type Limiter struct {
	enabled bool

	bucket *bucket
	leases *leases

	login   Budget
	api     Budget
	lockTTL time.Duration
}

func NewLimiter(cfg config.Config, client *redis.Client) (*Limiter, error) {
	if client == nil {
		return &Limiter{}, nil
	}

	limitCfg := cfg.RateLimit
	login := Budget{PerSecond: float64(limitCfg.LoginPerMinute) / perMinuteDiv, Burst: limitCfg.Burst}
	api := Budget{PerSecond: float64(limitCfg.APIPerMinute) / perMinuteDiv, Burst: limitCfg.Burst}
	if err := errors.Join(login.validate(), api.validate()); err != nil {
		return nil, err
	}

	return &Limiter{
		enabled: true,
		bucket:  newBucket(client),
		leases:  newLeases(client),
		login:   login,
		api:     api,
		lockTTL: weekLockTTL,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowLogin budgets sign-in attempts per client address.
func (l *Limiter) AllowLogin(ctx context.Context, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.allow(ctx, fmt.Sprintf(keyLogin, strings.TrimSpace(clientIP)), l.login)
}

// AllowAPI budgets authenticated API calls per user.
func (l *Limiter) AllowAPI(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.allow(ctx, fmt.Sprintf(keyAPI, strings.TrimSpace(userID)), l.api)
}

// LockWeek serializes saves of one user's week. ok is false when another
// save holds the lock.
func (l *Limiter) LockWeek(ctx context.Context, userID, weekKey string) (token string, ok bool, err error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.leases.acquire(ctx, weekLockKey(userID, weekKey), l.lockTTL)
}

func (l *Limiter) UnlockWeek(ctx context.Context, userID, weekKey, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.leases.drop(ctx, weekLockKey(userID, weekKey), token)
}

func weekLockKey(userID, weekKey string) string {
	return fmt.Sprintf(keyWeekLock, strings.TrimSpace(userID), strings.TrimSpace(weekKey))
}

// LockJob keeps a scheduler job to one replica per run.
func (l *Limiter) LockJob(ctx context.Context, job string, ttl time.Duration) (token string, ok bool, err error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.leases.acquire(ctx, fmt.Sprintf(keyJobLock, strings.TrimSpace(job)), ttl)
}

func (l *Limiter) UnlockJob(ctx context.Context, job, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.leases.drop(ctx, fmt.Sprintf(keyJobLock, strings.TrimSpace(job)), token)
}
