// Package savelock serializes plan saves across replicas with a redis lock.
// With no redis client configured the locker is nil and every lock attempt
// trivially succeeds, leaving the in-process save guard in charge.
package savelock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const DefaultTTL = 30 * time.Second

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// Key builds the lock key for one plan namespace.
func Key(namespace string) string {
	return fmt.Sprintf("rebateplan:save:%s", namespace)
}

// TryLock acquires the namespace lock. Returns the fencing token and whether
// the lock was won.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock only when the token still matches.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
