package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrMatchInProgress = errors.New("a matching operation is already in progress for this patient")

// MatchLocker guards against two concurrent matching operations for the
// same patient.
type MatchLocker interface {
	// Acquire takes the patient's lock and returns its release func,
	// or ErrMatchInProgress when the lock is held.
	Acquire(ctx context.Context, patientID uuid.UUID) (func(), error)
}

type redisMatchLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchLocker creates a locker keyed per patient. The TTL bounds how
// long a crashed operation can keep a patient locked.
func NewMatchLocker(client *redis.Client, ttl time.Duration) MatchLocker {
	return &redisMatchLocker{client: client, ttl: ttl}
}

func (l *redisMatchLocker) Acquire(ctx context.Context, patientID uuid.UUID) (func(), error) {
	key := fmt.Sprintf("lock:match:%s", patientID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire match lock: %w", err)
	}
	if !ok {
		return nil, ErrMatchInProgress
	}

	release := func() {
		// Release must not be tied to the operation context, which
		// is cancelled by the time a cancelled run cleans up.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.release(ctx, key, token)
	}
	return release, nil
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisMatchLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release match lock: %w", err)
	}
	return nil
}
