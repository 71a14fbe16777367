package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	obtest "github.com/gaborage/go-checkout/observability/testing"
)

func newTestTracker(t *testing.T) (*Tracker, *obtest.TestMeterProvider, *obtest.TestTraceProvider) {
	t.Helper()
	mp := obtest.NewTestMeterProvider()
	tp := obtest.NewTestTraceProvider()
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return New(mp, tp), mp, tp
}

func TestTrackerRecordsAttemptsAndWaits(t *testing.T) {
	tracker, mp, tp := newTestTracker(t)

	ctx, span := tracker.Start(context.Background(), "POST", "https://api.example.com/pay")
	tracker.Attempt(ctx, "POST", "rate_limited", 429, 20*time.Millisecond)
	tracker.Wait(ctx, "rate_limited", 2*time.Second)
	tracker.Attempt(ctx, "POST", "success", 200, 10*time.Millisecond)
	tracker.End(ctx, span, "success", 2, nil)

	rm := mp.Collect(t)
	total, err := obtest.SumInt64(rm, MetricAttempts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	limited, err := obtest.SumInt64(rm, MetricAttempts, attribute.String(AttrOutcome, "rate_limited"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), limited)

	waits, err := obtest.HistogramCount(rm, MetricBackoffWait)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), waits)

	executions, err := obtest.SumInt64(rm, MetricOutcomeFinal, attribute.String(AttrOutcome, "success"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), executions)

	s := obtest.NewSpanCollector(t, tp.Exporter).WithName(SpanName).AssertCount(1).First()
	obtest.AssertSpanAttribute(t, &s, AttrAttempts, int64(2))
	obtest.AssertSpanAttribute(t, &s, "http.request.method", "POST")
	assert.Len(t, s.Events, 2)
	obtest.AssertSpanStatus(t, &s, codes.Unset)
}

func TestTrackerEndWithError(t *testing.T) {
	tracker, _, tp := newTestTracker(t)

	ctx, span := tracker.Start(context.Background(), "GET", "https://api.example.com")
	tracker.End(ctx, span, "exhausted_retries", 6, errors.New("retries exhausted"))

	s := obtest.NewSpanCollector(t, tp.Exporter).First()
	obtest.AssertSpanStatus(t, &s, codes.Error)
	assert.Equal(t, "retries exhausted", s.Status.Description)
}

func TestNewFallsBackToGlobalProviders(t *testing.T) {
	tracker := New(nil, nil)
	require.NotNil(t, tracker)

	ctx, span := tracker.Start(context.Background(), "GET", "https://api.example.com")
	tracker.Attempt(ctx, "GET", "success", 200, time.Millisecond)
	tracker.End(ctx, span, "success", 1, nil)
}
