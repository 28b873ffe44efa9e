package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func TestAddJobValidates(t *testing.T) {
	s := NewCronScheduler(logger.NewNopLogger())
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.AddJob(&JobConfig{CronExpr: "*/5 * * * * *", JobFunc: noop}))
	assert.Error(t, s.AddJob(&JobConfig{Name: "a", CronExpr: "*/5 * * * * *"}))
	assert.Error(t, s.AddJob(&JobConfig{Name: "a", CronExpr: "every minute", JobFunc: noop}))

	cfg := &JobConfig{Name: "a", CronExpr: "0 */1 * * * *", JobFunc: noop}
	require.NoError(t, s.AddJob(cfg))
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
}

func TestRunJobOnce(t *testing.T) {
	s := NewCronScheduler(logger.NewNopLogger())
	boom := errors.New("boom")
	require.NoError(t, s.AddJob(&JobConfig{
		Name:     "failing",
		CronExpr: "0 0 * * * *",
		JobFunc:  func(context.Context) error { return boom },
	}))
	require.NoError(t, s.AddJob(&JobConfig{
		Name:     "panicking",
		CronExpr: "0 0 * * * *",
		JobFunc:  func(context.Context) error { panic("oops") },
	}))
	require.NoError(t, s.AddJob(&JobConfig{
		Name:     "slow",
		CronExpr: "0 0 * * * *",
		Timeout:  20 * time.Millisecond,
		JobFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	assert.ErrorIs(t, s.RunJobOnce("failing"), boom)
	assert.ErrorContains(t, s.RunJobOnce("panicking"), "oops")
	assert.ErrorIs(t, s.RunJobOnce("slow"), context.DeadlineExceeded)
	assert.Error(t, s.RunJobOnce("missing"))
}

func TestSchedulerRunsEnabledJobs(t *testing.T) {
	s := NewCronScheduler(logger.NewNopLogger())
	ran := make(chan struct{}, 8)
	require.NoError(t, s.AddJob(&JobConfig{
		Name:     "tick",
		CronExpr: "* * * * * *",
		Enabled:  true,
		JobFunc: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}))
	require.NoError(t, s.AddJob(&JobConfig{
		Name:     "disabled",
		CronExpr: "* * * * * *",
		JobFunc: func(context.Context) error {
			t.Error("disabled job ran")
			return nil
		},
	}))

	require.NoError(t, s.Start())
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	s.Stop()

	status, err := s.GetJobStatus("tick")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, status.RunCount, int64(1))
	assert.NotNil(t, status.NextRun)

	status, err = s.GetJobStatus("disabled")
	require.NoError(t, err)
	assert.Zero(t, status.RunCount)
}
