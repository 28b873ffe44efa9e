package service

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service/exporter/factory"
	"gorm.io/gorm"
)

type LeaderboardService interface {
	// GetLeaderboard 分页获取积分榜
	GetLeaderboard(ctx context.Context, page, pageSize int) ([]model.LeaderboardEntry, int, error)
	// UpdateRating 更新用户在积分榜中的分数
	UpdateRating(ctx context.Context, userID string, rating int) error
	// Remove 从积分榜移除用户
	Remove(ctx context.Context, userID string) error
	// Rebuild 以数据库为准重建积分榜
	Rebuild(ctx context.Context) error
	// Export 导出积分榜
	Export(ctx context.Context, exporterType factory.ExporterType, writer io.Writer) error
}

// LeaderboardServiceImpl 积分榜缓存, 数据库中的 users.rating 为唯一事实来源
type LeaderboardServiceImpl struct {
	db              *gorm.DB
	rdb             redis.Cmdable
	log             logger.Logger
	exporterFactory *factory.ExporterFactory
}

var _ LeaderboardService = (*LeaderboardServiceImpl)(nil)

func NewLeaderboardService(db *gorm.DB, rdb redis.Cmdable, log logger.Logger) LeaderboardService {
	return &LeaderboardServiceImpl{
		db:              db,
		rdb:             rdb,
		log:             log,
		exporterFactory: factory.NewExporterFactory(db, log),
	}
}

const (
	LeaderboardKey = "duel:leaderboard"
	rebuildBatch   = 1000
)

// GetLeaderboard 获取积分榜
func (s *LeaderboardServiceImpl) GetLeaderboard(ctx context.Context, page, pageSize int) ([]model.LeaderboardEntry, int, error) {
	total, err := s.rdb.ZCard(ctx, LeaderboardKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("get total from redis failed: %w", err)
	}
	if total == 0 {
		// 缓存丢失时从数据库重建
		if err = s.Rebuild(ctx); err != nil {
			return nil, 0, fmt.Errorf("GetLeaderboard failed at rebuild: %w", err)
		}
		if total, err = s.rdb.ZCard(ctx, LeaderboardKey).Result(); err != nil {
			return nil, 0, fmt.Errorf("get total from redis failed: %w", err)
		}
	}

	start := int64((page - 1) * pageSize)
	stop := start + int64(pageSize) - 1
	zs, err := s.rdb.ZRevRangeWithScores(ctx, LeaderboardKey, start, stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("get leaderboard from redis failed: %w", err)
	}
	if len(zs) == 0 {
		return []model.LeaderboardEntry{}, int(total), nil
	}

	userIDs := make([]string, 0, len(zs))
	for _, z := range zs {
		userIDs = append(userIDs, z.Member.(string))
	}
	var users []entity.User
	err = s.db.WithContext(ctx).
		Select("id", "nickname", "picture", "rating").
		Where("id IN ?", userIDs).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("get user detail from db failed: %w", err)
	}
	userMap := make(map[string]entity.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		id := z.Member.(string)
		u, ok := userMap[id]
		if !ok {
			s.log.WarnContext(ctx, "leaderboard member not found in db", logger.String("user_id", id))
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:     int(start) + i + 1,
			UserID:   u.ID,
			Nickname: u.Nickname,
			Picture:  u.Picture,
			Rating:   u.Rating,
		})
	}
	return entries, int(total), nil
}

// UpdateRating 更新积分
func (s *LeaderboardServiceImpl) UpdateRating(ctx context.Context, userID string, rating int) error {
	err := s.rdb.ZAdd(ctx, LeaderboardKey, redis.Z{
		Score:  float64(rating),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd leaderboard to redis failed: %w", err)
	}
	return nil
}

// Remove 移除用户
func (s *LeaderboardServiceImpl) Remove(ctx context.Context, userID string) error {
	if err := s.rdb.ZRem(ctx, LeaderboardKey, userID).Err(); err != nil {
		return fmt.Errorf("zrem leaderboard from redis failed: %w", err)
	}
	return nil
}

// Rebuild 重建积分榜
func (s *LeaderboardServiceImpl) Rebuild(ctx context.Context) error {
	var users []entity.User
	err := s.db.WithContext(ctx).
		Select("id", "rating").
		FindInBatches(&users, rebuildBatch, func(tx *gorm.DB, batch int) error {
			zs := make([]redis.Z, 0, len(users))
			for _, u := range users {
				zs = append(zs, redis.Z{Score: float64(u.Rating), Member: u.ID})
			}
			if len(zs) == 0 {
				return nil
			}
			return s.rdb.ZAdd(ctx, LeaderboardKey, zs...).Err()
		}).Error
	if err != nil {
		return fmt.Errorf("Rebuild failed: %w", err)
	}
	return nil
}

// Export 导出积分榜
func (s *LeaderboardServiceImpl) Export(ctx context.Context, exporterType factory.ExporterType, writer io.Writer) error {
	exp := s.exporterFactory.GetExporter(exporterType)
	if exp == nil {
		return fmt.Errorf("get leaderboard exporter failed: exporter %s not found: %w", exporterType, ErrInvalidState)
	}
	return exp.Export(ctx, writer)
}
