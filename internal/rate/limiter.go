package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters. A zero budget disables that
// throttle.
type Config struct {
	Prefix string

	MaxSignInFailures int
	SignInWindow      time.Duration

	MaxResetRequests int
	ResetWindow      time.Duration
}

// Limiter throttles failed sign-ins per account and password reset requests
// per email with fixed-window Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "gs"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckSignIn returns [ErrRateLimited] when email has exhausted its failure
// budget for the current window.
func (l *Limiter) CheckSignIn(ctx context.Context, email string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}

	count, err := l.redis.Get(ctx, l.signInKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxSignInFailures) {
		return ErrRateLimited
	}
	return nil
}

// FailSignIn records a failed sign-in for email.
func (l *Limiter) FailSignIn(ctx context.Context, email string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.signInKey(email), l.config.SignInWindow)
	return err
}

// ResetSignIn clears the failure counter after a successful sign-in.
func (l *Limiter) ResetSignIn(ctx context.Context, email string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, l.signInKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SignInFailures returns the failure count recorded for email.
func (l *Limiter) SignInFailures(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.signInKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// AllowReset counts a password reset request for email and returns
// [ErrRateLimited] once the window budget is exceeded.
func (l *Limiter) AllowReset(ctx context.Context, email string) error {
	if l.config.MaxResetRequests <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.resetKey(email), l.config.ResetWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxResetRequests) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) signInKey(email string) string {
	return l.config.Prefix + ":signin:" + normalize(email)
}

func (l *Limiter) resetKey(email string) string {
	return l.config.Prefix + ":reset:" + normalize(email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
