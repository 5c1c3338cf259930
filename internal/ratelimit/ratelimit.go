package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"rps_challenge/internal/logger"
	"rps_challenge/internal/metrics"

	redis "github.com/redis/go-redis/v9"
)

// Connect returns a client for addr, or nil when addr is empty or Redis does
// not answer. A nil client makes every Limiter fail open.
func Connect(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a per-user fixed-window counter using Redis INCR/EXPIRE.
// key format: rl:<scope>:<user>:<window_seconds>
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *slog.Logger
}

func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		log:    logger.With("component", "ratelimit"),
	}
}

// Allow counts one action of userID in scope. Redis errors allow the action.
func (l *Limiter) Allow(ctx context.Context, scope string, userID int64) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}
	d := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	if l.client == nil {
		return d
	}

	key := l.key(scope, userID)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("rate limiter failed open", "scope", scope, "user", userID, "error", err)
		return d
	}
	val := incr.Val()

	// -1 means the key has no TTL, either a new key or a failed EXPIRE.
	retry := ttl.Val()
	if retry < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.Error("failed to set rate limit window", "key", key, "error", err)
		}
		retry = l.window
	}

	d.Remaining = int(max(0, int64(l.limit)-val))
	if val > int64(l.limit) {
		metrics.RLBlocked.WithLabelValues(scope).Inc()
		d.Allowed = false
		d.RetryAfter = retry
		return d
	}

	metrics.RLRequests.WithLabelValues(scope).Inc()
	return d
}

func (l *Limiter) key(scope string, userID int64) string {
	return "rl:" + scope + ":" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10)
}
