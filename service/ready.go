package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/to404hanga/online_judge_duel/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkReady 就绪屏障
//
// 事务先对 battles 行与该对战的 memberships 行加行锁, 同一对战的并发调用因此串行;
// 就绪人数取自加锁读到的最新提交数据, 人数为 2 时以 status = lobby 为条件更新为 running,
// 只有影响行数为 1 的调用者得到 started=true.
func (s *BattleServiceImpl) MarkReady(ctx context.Context, battleID, userID string) (bool, error) {
	tx := s.db.WithContext(ctx).Begin()

	var battle entity.Battle
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", battleID).
		First(&battle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady failed: battle %s: %w", battleID, ErrNotFound)
	}
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady transaction failed at lock battle: %w", err)
	}

	var members []entity.BattleMembership
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("battle_id = ?", battleID).
		Find(&members).Error
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady transaction failed at lock memberships: %w", err)
	}

	readyCnt, member := 0, false
	for _, m := range members {
		if m.UserID == userID {
			member = true
			m.Ready = true
		}
		if m.Ready {
			readyCnt++
		}
	}
	if !member {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady failed: user %s not in battle %s: %w", userID, battleID, ErrNotFound)
	}

	err = tx.Model(&entity.BattleMembership{}).
		Where("battle_id = ? AND user_id = ?", battleID, userID).
		Update("ready", true).Error
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady transaction failed at update membership: %w", err)
	}

	started := false
	if readyCnt == 2 && battle.Status == entity.BattleStatusLobby {
		now := s.now()
		res := tx.Model(&entity.Battle{}).
			Where("id = ? AND status = ?", battleID, entity.BattleStatusLobby).
			Updates(map[string]any{
				"status":     entity.BattleStatusRunning,
				"start_time": now,
				"end_time":   now.Add(s.duration),
			})
		if res.Error != nil {
			tx.Rollback()
			return false, fmt.Errorf("MarkReady transaction failed at start battle: %w", res.Error)
		}
		started = res.RowsAffected == 1
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return false, fmt.Errorf("MarkReady transaction failed at commit: %w", err)
	}
	return started, nil
}
