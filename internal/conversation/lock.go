package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Inbound events for the same contact must be processed one at a time or
// concurrent webhooks would double-reply and clobber lead fields. The lock
// is a Redis SET NX with a TTL so a crashed worker never wedges a contact
// permanently.

const lockRetryInterval = 100 * time.Millisecond

// releaseScript deletes the key only when it still holds our token, so an
// expired lock reacquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ContactLock serializes pipeline runs per (tenant, phone) pair.
type ContactLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContactLock(client *redis.Client, ttl time.Duration) *ContactLock {
	return &ContactLock{client: client, ttl: ttl}
}

// Acquire blocks until the pair's lock is held or the context expires.
// The returned release function is safe to call after the TTL has passed.
func (l *ContactLock) Acquire(ctx context.Context, tenantID uuid.UUID, phone string) (func(), error) {
	key := fmt.Sprintf("lock:conversation:%s:%s", tenantID, phone)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire contact lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for contact lock: %w", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
