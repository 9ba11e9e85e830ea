package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignupThrottle_Cooldown(t *testing.T) {
	mr, rc := newTestRedis(t)
	th := NewSignupThrottle(rc, 30*time.Second, 0)
	ctx := context.Background()

	assert.NoError(t, th.Allow(ctx, "1.2.3.4"))
	assert.ErrorIs(t, th.Allow(ctx, "1.2.3.4"), ErrSignupCooldown)
	assert.NoError(t, th.Allow(ctx, "5.6.7.8"))

	mr.FastForward(31 * time.Second)
	assert.NoError(t, th.Allow(ctx, "1.2.3.4"))
}

func TestSignupThrottle_DailyLimit(t *testing.T) {
	mr, rc := newTestRedis(t)
	th := NewSignupThrottle(rc, 0, 2)
	th.now = func() time.Time { return time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.NoError(t, th.Allow(ctx, "1.2.3.4"))
		th.RecordSuccess(ctx, "1.2.3.4")
	}
	assert.ErrorIs(t, th.Allow(ctx, "1.2.3.4"), ErrSignupDailyLimit)
	assert.NoError(t, th.Allow(ctx, "9.9.9.9"))

	key := "reg:succday:1.2.3.4:20240501"
	assert.Equal(t, 2*time.Hour, mr.TTL(key))
}

func TestSignupThrottle_Disabled(t *testing.T) {
	var nilThrottle *SignupThrottle
	assert.NoError(t, nilThrottle.Allow(context.Background(), "1.2.3.4"))
	nilThrottle.RecordSuccess(context.Background(), "1.2.3.4")

	th := NewSignupThrottle(nil, time.Minute, 1)
	assert.NoError(t, th.Allow(context.Background(), "1.2.3.4"))
	assert.NoError(t, th.Allow(context.Background(), "1.2.3.4"))
}

func TestSignupThrottle_FailsOpen(t *testing.T) {
	mr, rc := newTestRedis(t)
	th := NewSignupThrottle(rc, time.Minute, 1)
	mr.Close()

	assert.NoError(t, th.Allow(context.Background(), "1.2.3.4"))
}
