package runguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "outreach:process-due:lock"
	DefaultTTL = 5 * time.Minute
)

var ErrInvalidRedisURL = errors.New("runguard: invalid redis url")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a guard shared by every process pointing at the same Redis.
// The TTL bounds how long a crashed holder blocks other runs.
type Redis struct {
	Client redis.UniversalClient
	Key    string
	TTL    time.Duration
	Log    *slog.Logger
}

// OpenRedis connects to url (redis:// or rediss://) and pings it.
func OpenRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrInvalidRedisURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrLockUnavailable, err)
	}
	return client, nil
}

func NewRedis(client redis.UniversalClient, log *slog.Logger) *Redis {
	return &Redis{Client: client, Key: DefaultKey, TTL: DefaultTTL, Log: log}
}

func (r *Redis) TryAcquire(ctx context.Context) (func(), bool, error) {
	key, ttl := r.Key, r.TTL
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the run context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.Client, []string{key}, token).Err(); err != nil && r.Log != nil {
			r.Log.Error("failed to release run lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}

// Healthcheck pings the lock backend.
func (r *Redis) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := r.Client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrLockUnavailable, err)
		}
		return nil
	}
}

var _ Guard = (*Redis)(nil)
