package http

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialDelay(t *testing.T) {
	assert.Equal(t, time.Second, exponentialDelay(time.Second, 0))
	assert.Equal(t, 2*time.Second, exponentialDelay(time.Second, 1))
	assert.Equal(t, 32*time.Second, exponentialDelay(time.Second, 5))
	assert.Equal(t, maxDuration, exponentialDelay(time.Hour, 200))
}

func TestNetworkDelayHasNoJitter(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 250 * time.Millisecond, MaxJitter: time.Second}
	for attempt := range 4 {
		assert.Equal(t, exponentialDelay(policy.BaseDelay, attempt), networkDelay(policy, attempt))
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", wantOK: false},
		{name: "seconds", value: "2", want: 2 * time.Second, wantOK: true},
		{name: "zero seconds", value: "0", want: 0, wantOK: true},
		{name: "padded seconds", value: " 7 ", want: 7 * time.Second, wantOK: true},
		{name: "negative seconds", value: "-3", wantOK: false},
		{name: "fractional seconds", value: "1.5", wantOK: false},
		{name: "future date", value: now.Add(90 * time.Second).Format(nethttp.TimeFormat), want: 90 * time.Second, wantOK: true},
		{name: "past date", value: now.Add(-time.Minute).Format(nethttp.TimeFormat), want: 0, wantOK: true},
		{name: "rfc850 date", value: now.Add(5 * time.Second).Format(time.RFC850), want: 5 * time.Second, wantOK: true},
		{name: "garbage", value: "later please", wantOK: false},
		{name: "huge seconds", value: "99999999999999", want: maxDuration, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRateLimitDelayPrefersRetryAfter(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxJitter: time.Second}
	noJitter := func(time.Duration) time.Duration { t.Fatal("jitter must not be drawn"); return 0 }

	assert.Equal(t, 2*time.Second, rateLimitDelay(policy, 3, "2", time.Now(), noJitter))
}

func TestRateLimitDelayBounds(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxJitter: time.Second}
	now := time.Now()

	for attempt := range 5 {
		floor := exponentialDelay(policy.BaseDelay, attempt)
		for range 200 {
			d := rateLimitDelay(policy, attempt, "", now, uniformJitter)
			assert.GreaterOrEqual(t, d, floor)
			assert.LessOrEqual(t, d, floor+policy.MaxJitter)
		}
	}
}

func TestRateLimitDelayGrowsWithAttempt(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxJitter: time.Second}
	fixed := func(time.Duration) time.Duration { return 500 * time.Millisecond }

	prev := time.Duration(0)
	for attempt := range 5 {
		d := rateLimitDelay(policy, attempt, "", time.Now(), fixed)
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestUniformJitter(t *testing.T) {
	assert.Zero(t, uniformJitter(0))
	assert.Zero(t, uniformJitter(-time.Second))

	limit := 10 * time.Millisecond
	for range 1000 {
		j := uniformJitter(limit)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, limit)
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}
