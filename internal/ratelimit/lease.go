package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds the caller's token.
const releaseScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

type leases struct {
	client  redis.Cmdable
	scripts redis.Scripter
	release *redis.Script
}

func newLeases(client *redis.Client) *leases {
	return &leases{client: client, scripts: client, release: redis.NewScript(releaseScript)}
}

// acquire takes key for ttl. It reports false without error when the key is
// already held.
func (l *leases) acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errEmptyKey
	}
	if ttl <= 0 {
		return "", false, errors.New("ratelimit: lease ttl must be positive")
	}

	token := uuid.NewString()
	err := l.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return token, true, nil
}

func (l *leases) drop(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.scripts, []string{key}, token).Err()
}
