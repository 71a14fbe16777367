package http

import (
	"context"
	"math"
	"math/rand/v2"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

const maxDuration = time.Duration(math.MaxInt64)

// exponentialDelay returns base * 2^attempt, saturating instead of overflowing.
func exponentialDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for range attempt {
		if d > maxDuration/2 {
			return maxDuration
		}
		d *= 2
	}
	return d
}

// networkDelay is the wait after a transport failure. No jitter is added.
func networkDelay(policy RetryPolicy, attempt int) time.Duration {
	return exponentialDelay(policy.BaseDelay, attempt)
}

// rateLimitDelay honors Retry-After when it parses and otherwise backs off
// exponentially with up to policy.MaxJitter of uniform jitter.
func rateLimitDelay(policy RetryPolicy, attempt int, retryAfter string, now time.Time, jitter func(time.Duration) time.Duration) time.Duration {
	if d, ok := parseRetryAfter(retryAfter, now); ok {
		return d
	}
	d := exponentialDelay(policy.BaseDelay, attempt)
	j := jitter(policy.MaxJitter)
	if d > maxDuration-j {
		return maxDuration
	}
	return d + j
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Dates in the past
// yield a zero wait.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(maxDuration/time.Second) {
			return maxDuration, true
		}
		return time.Duration(secs) * time.Second, true
	}

	if at, err := nethttp.ParseTime(value); err == nil {
		return max(0, at.Sub(now)), true
	}
	return 0, false
}

// uniformJitter draws from [0, limit].
func uniformJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit + 1)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
