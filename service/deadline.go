package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

// DeadlineScheduler 对战截止计时器, 进程重启丢失的计时器由定时任务兜底
type DeadlineScheduler interface {
	// Schedule 在 at 时刻执行 fn, 同一对战重复调度时以最后一次为准
	Schedule(ctx context.Context, battleID string, at time.Time, fn func(ctx context.Context)) error
	// Cancel 取消对战的计时器
	Cancel(battleID string)
	// Stop 停止调度器
	Stop() error
}

type GocronDeadlineScheduler struct {
	scheduler gocron.Scheduler
	log       logger.Logger
	timeout   time.Duration
}

var _ DeadlineScheduler = (*GocronDeadlineScheduler)(nil)

func NewGocronDeadlineScheduler(log logger.Logger) (*GocronDeadlineScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("NewGocronDeadlineScheduler failed: %w", err)
	}
	s.Start()
	return &GocronDeadlineScheduler{
		scheduler: s,
		log:       log,
		timeout:   30 * time.Second,
	}, nil
}

func (d *GocronDeadlineScheduler) Schedule(ctx context.Context, battleID string, at time.Time, fn func(ctx context.Context)) error {
	d.scheduler.RemoveByTags(battleID)

	start := gocron.OneTimeJobStartDateTime(at)
	if !at.After(time.Now()) {
		start = gocron.OneTimeJobStartImmediately()
	}

	fields := logger.FieldsFromContext(ctx)
	_, err := d.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			jctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			jctx = logger.ContextWithFields(jctx, fields...)
			d.log.InfoContext(jctx, "battle deadline reached", logger.String("battle_id", battleID))
			fn(jctx)
		}),
		gocron.WithName("battle-deadline-"+battleID),
		gocron.WithTags(battleID),
	)
	if err != nil {
		return fmt.Errorf("Schedule failed at new job: %w", err)
	}
	return nil
}

func (d *GocronDeadlineScheduler) Cancel(battleID string) {
	d.scheduler.RemoveByTags(battleID)
}

func (d *GocronDeadlineScheduler) Stop() error {
	return d.scheduler.Shutdown()
}
