package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

// BattleReaper 处理进程内截止计时器丢失(实例重启)的对战
type BattleReaper struct {
	battleSvc    service.BattleService
	orchestrator service.DuelOrchestrator
	log          logger.Logger
	grace        time.Duration
	batchSize    int
	now          func() time.Time
}

func NewBattleReaper(battleSvc service.BattleService, orchestrator service.DuelOrchestrator, log logger.Logger, grace time.Duration, batchSize int) *BattleReaper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BattleReaper{
		battleSvc:    battleSvc,
		orchestrator: orchestrator,
		log:          log,
		grace:        grace,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

// RunReap 对截止时间(含宽限)已过仍未结束的对战执行到期处理, 单场失败不影响其他对战
func (r *BattleReaper) RunReap(ctx context.Context) error {
	battles, err := r.battleSvc.ListOverdueBattles(ctx, r.now().Add(-r.grace), r.batchSize)
	if err != nil {
		return fmt.Errorf("RunReap failed: %w", err)
	}
	if len(battles) == 0 {
		return nil
	}

	var errs []error
	for _, b := range battles {
		if err = r.orchestrator.ExpireBattle(ctx, b.ID); err != nil {
			r.log.ErrorContext(ctx, "expire battle failed", logger.String("battle_id", b.ID), logger.Error(err))
			errs = append(errs, err)
		}
	}
	r.log.InfoContext(ctx, "Battle reap completed",
		logger.Int("overdue", len(battles)),
		logger.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}
