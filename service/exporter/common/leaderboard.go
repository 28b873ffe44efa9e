package common

import (
	"context"
	"fmt"

	"github.com/to404hanga/online_judge_duel/entity"
	"gorm.io/gorm"
)

// FetchLeaderboard 从数据库中分页获取积分榜, 积分相同时按 id 排序保证分页稳定
func FetchLeaderboard(db *gorm.DB, ctx context.Context, page, limit int) ([]entity.User, error) {
	var users []entity.User
	if err := db.WithContext(ctx).
		Model(&entity.User{}).
		Order("rating DESC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("fetch leaderboard failed: %w", err)
	}
	return users, nil
}

// StreamLeaderboard 在独立 goroutine 中按批拉取积分榜, 数据取完后关闭 userCh
func StreamLeaderboard(ctx context.Context, db *gorm.DB, batchSize int) (<-chan []entity.User, <-chan error) {
	userCh := make(chan []entity.User, 3)
	errCh := make(chan error, 1)

	go func() {
		defer close(userCh)
		defer close(errCh)
		page := 1
		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
				users, err := FetchLeaderboard(db, ctx, page, batchSize)
				if err != nil {
					errCh <- err
					return
				}
				if len(users) == 0 {
					return
				}
				select {
				case userCh <- users:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
				page++
			}
		}
	}()

	return userCh, errCh
}
