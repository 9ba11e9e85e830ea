package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle verdicts returned by SignupThrottle.Allow.
var (
	ErrSignupCooldown   = errors.New("signup attempted too soon")
	ErrSignupDailyLimit = errors.New("daily signup limit reached")
)

// SignupThrottle limits account creation per client IP. Redis errors fail open.
type SignupThrottle struct {
	rc         *redis.Client
	cooldown   time.Duration
	dailyLimit int
	now        func() time.Time
}

// NewSignupThrottle returns a throttle; a nil client or zero values disable the matching rule.
func NewSignupThrottle(rc *redis.Client, cooldown time.Duration, dailyLimit int) *SignupThrottle {
	return &SignupThrottle{rc: rc, cooldown: cooldown, dailyLimit: dailyLimit, now: time.Now}
}

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// Allow is called for every signup submission. It starts the cooldown window for ip.
func (t *SignupThrottle) Allow(ctx context.Context, ip string) error {
	if t == nil || t.rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if t.dailyLimit > 0 {
		n, err := t.rc.Get(ctx, t.dailyKey(ip)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil
		}
		if n >= t.dailyLimit {
			return ErrSignupDailyLimit
		}
	}

	if t.cooldown > 0 {
		ok, err := t.rc.SetNX(ctx, regKey("cooldown", ip), "1", t.cooldown).Result()
		if err != nil {
			return nil
		}
		if !ok {
			return ErrSignupCooldown
		}
	}
	return nil
}

// RecordSuccess counts a created account against today's limit for ip.
func (t *SignupThrottle) RecordSuccess(ctx context.Context, ip string) {
	if t == nil || t.rc == nil || t.dailyLimit <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := t.dailyKey(ip)
	if err := t.rc.Incr(ctx, key).Err(); err == nil {
		now := t.now()
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		_ = t.rc.Expire(ctx, key, midnight.Sub(now)).Err()
	}
}

func (t *SignupThrottle) dailyKey(ip string) string {
	return regKey("succday", ip, t.now().Format("20060102"))
}
