package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService interface {
	// Resolve 解析身份断言并返回对应用户, 首次出现时以初始积分创建; bound 非空时断言的 subject 必须与之一致
	Resolve(ctx context.Context, assertion string, bound *identity.Identity) (*entity.User, error)
	// GetUserByID 获取用户
	GetUserByID(ctx context.Context, userID string) (*entity.User, error)
	// GetUserByExternalID 根据外部身份获取用户
	GetUserByExternalID(ctx context.Context, externalID string) (*entity.User, error)
	// UpdateRating 覆盖写积分, 调用方需保证同一用户的写入串行
	UpdateRating(ctx context.Context, tx *gorm.DB, userID string, rating int) error
	// Remove 删除用户及其关联数据, 并在身份提供方处注销
	Remove(ctx context.Context, externalID string) error
}

type UserServiceImpl struct {
	db          *gorm.DB
	verifier    identity.Verifier
	provider    identity.Provider
	leaderboard LeaderboardService
	log         logger.Logger
	baseRating  int
}

var _ UserService = (*UserServiceImpl)(nil)

func NewUserService(db *gorm.DB, verifier identity.Verifier, provider identity.Provider, leaderboard LeaderboardService, log logger.Logger, cfg config.BattleConfig) UserService {
	base := cfg.BaseRating
	if base <= 0 {
		base = config.DefaultBattleConfig().BaseRating
	}
	return &UserServiceImpl{
		db:          db,
		verifier:    verifier,
		provider:    provider,
		leaderboard: leaderboard,
		log:         log,
		baseRating:  base,
	}
}

// Resolve 获取或创建用户
func (s *UserServiceImpl) Resolve(ctx context.Context, assertion string, bound *identity.Identity) (*entity.User, error) {
	id, err := s.verifier.DecodeAssertion(ctx, assertion)
	if err != nil {
		return nil, fmt.Errorf("Resolve failed at decode assertion: %w: %w", ErrUnauthorized, err)
	}
	if bound != nil {
		if id.Subject != bound.Subject {
			return nil, fmt.Errorf("Resolve failed: assertion subject mismatch: %w", ErrUnauthorized)
		}
		if id.Nickname == "" {
			id.Nickname = bound.Nickname
		}
		if id.Picture == "" {
			id.Picture = bound.Picture
		}
	}

	user, err := s.GetUserByExternalID(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Resolve failed at get user: %w", err)
	}

	// 并发首次出现时, 依靠 external_id 唯一索引保证只创建一条
	user = &entity.User{
		ExternalID: id.Subject,
		Nickname:   id.Nickname,
		Picture:    id.Picture,
		Rating:     s.baseRating,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("Resolve failed at create user: %w", err)
	}

	user, err = s.GetUserByExternalID(ctx, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("Resolve failed at reload user: %w", err)
	}

	if err = s.leaderboard.UpdateRating(ctx, user.ID, user.Rating); err != nil {
		s.log.WarnContext(ctx, "Resolve failed at update leaderboard", logger.Error(err))
	}
	return user, nil
}

// GetUserByID 获取用户
func (s *UserServiceImpl) GetUserByID(ctx context.Context, userID string) (*entity.User, error) {
	var user entity.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("GetUserByID failed: user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByID failed: %w", err)
	}
	return &user, nil
}

// GetUserByExternalID 根据外部身份获取用户
func (s *UserServiceImpl) GetUserByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	var user entity.User
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("GetUserByExternalID failed: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByExternalID failed: %w", err)
	}
	return &user, nil
}

// UpdateRating 覆盖写积分
func (s *UserServiceImpl) UpdateRating(ctx context.Context, tx *gorm.DB, userID string, rating int) error {
	if tx == nil {
		tx = s.db
	}
	res := tx.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Update("rating", rating)
	if res.Error != nil {
		return fmt.Errorf("UpdateRating failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("UpdateRating failed: user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// Remove 先在身份提供方处注销, 成功后再删除本地数据, 失败可整体重试
func (s *UserServiceImpl) Remove(ctx context.Context, externalID string) error {
	user, err := s.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("Remove failed at get user: %w", err)
	}
	ctx = logger.ContextWithFields(ctx, logger.String("user_id", user.ID))

	err = retry.Do(func() error {
		return s.provider.DeleteUser(ctx, externalID)
	}, retry.Context(ctx), retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("Remove failed at revoke with identity provider: %w", err)
	}

	err = retry.Do(func() error {
		return s.verifier.Revoke(ctx, externalID)
	}, retry.Context(ctx), retry.Attempts(3), retry.Delay(50*time.Millisecond), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("Remove failed at revoke tokens: %w", err)
	}

	tx := s.db.WithContext(ctx).Begin()
	if err = tx.Where("user_id = ?", user.ID).Delete(&entity.BattleInvitation{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete invitations: %w", err)
	}
	if err = tx.Where("user_id = ?", user.ID).Delete(&entity.BattleMembership{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete memberships: %w", err)
	}
	err = tx.Where("submission_id IN (?)", tx.Model(&entity.Submission{}).Select("id").Where("user_id = ?", user.ID)).
		Delete(&entity.SubmissionTestResult{}).Error
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete submission test results: %w", err)
	}
	if err = tx.Where("user_id = ?", user.ID).Delete(&entity.Submission{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete submissions: %w", err)
	}
	if err = tx.Where("user_id = ?", user.ID).Delete(&entity.BattleEvaluation{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete evaluations: %w", err)
	}
	if err = tx.Where("id = ?", user.ID).Delete(&entity.User{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at delete user: %w", err)
	}
	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Remove transaction failed at commit: %w", err)
	}

	if err = s.leaderboard.Remove(ctx, user.ID); err != nil {
		s.log.WarnContext(ctx, "Remove failed at remove from leaderboard", logger.Error(err))
	}
	return nil
}
