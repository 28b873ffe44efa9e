package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func newTestDeadlineScheduler(t *testing.T) *GocronDeadlineScheduler {
	t.Helper()
	d, err := NewGocronDeadlineScheduler(logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestGocronDeadlineFires(t *testing.T) {
	d := newTestDeadlineScheduler(t)

	fired := make(chan string, 1)
	err := d.Schedule(context.Background(), "b1", time.Now().Add(100*time.Millisecond), func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		fired <- "b1"
	})
	require.NoError(t, err)

	select {
	case id := <-fired:
		assert.Equal(t, "b1", id)
	case <-time.After(3 * time.Second):
		t.Fatal("deadline did not fire")
	}
}

func TestGocronDeadlinePastTimeRunsImmediately(t *testing.T) {
	d := newTestDeadlineScheduler(t)

	fired := make(chan struct{}, 1)
	require.NoError(t, d.Schedule(context.Background(), "b1", time.Now().Add(-time.Minute), func(context.Context) {
		fired <- struct{}{}
	}))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("overdue deadline did not fire")
	}
}

func TestGocronDeadlineRescheduleAndCancel(t *testing.T) {
	d := newTestDeadlineScheduler(t)

	var first, second, cancelled atomic.Int32
	at := time.Now().Add(200 * time.Millisecond)
	require.NoError(t, d.Schedule(context.Background(), "b1", at, func(context.Context) { first.Add(1) }))
	require.NoError(t, d.Schedule(context.Background(), "b1", at, func(context.Context) { second.Add(1) }))
	require.NoError(t, d.Schedule(context.Background(), "b2", at, func(context.Context) { cancelled.Add(1) }))
	d.Cancel("b2")

	assert.Eventually(t, func() bool { return second.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(0), cancelled.Load())
}
