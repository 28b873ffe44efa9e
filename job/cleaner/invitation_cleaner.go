package cleaner

import (
	"context"
	"time"

	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

type InvitationCleaner struct {
	battleSvc service.BattleService
	log       logger.Logger
	timeRange time.Duration
}

// NewInvitationCleaner 创建邀请清理器
func NewInvitationCleaner(battleSvc service.BattleService, log logger.Logger, timeRange time.Duration) *InvitationCleaner {
	return &InvitationCleaner{
		battleSvc: battleSvc,
		log:       log,
		timeRange: timeRange,
	}
}

// RunCleanup 删除超过 timeRange 仍无人加入的邀请
func (c *InvitationCleaner) RunCleanup(ctx context.Context) error {
	c.log.InfoContext(ctx, "Starting invitation cleanup job")

	n, err := c.battleSvc.CleanStaleInvitations(ctx, time.Now().Add(-c.timeRange))
	if err != nil {
		return err
	}

	c.log.InfoContext(ctx, "Invitation cleanup completed", logger.Int64("deleted", n))
	return nil
}
