package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"gorm.io/gorm"
)

type BattleService interface {
	// CreateInvitation 创建邀请, 同时删除该用户此前的所有邀请
	CreateInvitation(ctx context.Context, userID string) (*entity.BattleInvitation, error)
	// GetInvitation 获取邀请
	GetInvitation(ctx context.Context, inviteCode string) (*entity.BattleInvitation, error)
	// CancelInvitation 取消用户自己的邀请
	CancelInvitation(ctx context.Context, userID, inviteCode string) error
	// GetBattleByCode 根据邀请码获取对战, 含参与者
	GetBattleByCode(ctx context.Context, inviteCode string) (*entity.Battle, error)
	// GetBattleByID 获取对战, 含参与者
	GetBattleByID(ctx context.Context, battleID string) (*entity.Battle, error)
	// CreateBattle 消费邀请并创建对战, 同一邀请码只会成功一次
	CreateBattle(ctx context.Context, joiningUserID, inviteCode string) (*entity.Battle, error)
	// IsJoinable 对战未结束且用户是参与者
	IsJoinable(battle *entity.Battle, userID string) bool
	// MarkReady 标记准备, 双方都准备后恰好一次返回 started=true
	MarkReady(ctx context.Context, battleID, userID string) (bool, error)
	// Cancel 取消未结束的对战, 删除对战及其邀请
	Cancel(ctx context.Context, battleID string) (*entity.Battle, error)
	// ListOverdueBattles 获取截止时间早于 before 且未结束的对战
	ListOverdueBattles(ctx context.Context, before time.Time, limit int) ([]entity.Battle, error)
	// ListActiveBattles 获取用户参与且未结束的对战
	ListActiveBattles(ctx context.Context, userID string) ([]entity.Battle, error)
	// CleanStaleInvitations 删除创建时间早于 before 的邀请
	CleanStaleInvitations(ctx context.Context, before time.Time) (int64, error)
}

type BattleServiceImpl struct {
	db         *gorm.DB
	issuer     InviteCodeIssuer
	problemSvc ProblemService
	log        logger.Logger
	lobby      time.Duration
	duration   time.Duration
	now        func() time.Time
}

var _ BattleService = (*BattleServiceImpl)(nil)

func NewBattleService(db *gorm.DB, issuer InviteCodeIssuer, problemSvc ProblemService, log logger.Logger, cfg config.BattleConfig, opts ...Option) BattleService {
	o := applyOptions(opts)
	def := config.DefaultBattleConfig()
	if cfg.LobbySeconds <= 0 {
		cfg.LobbySeconds = def.LobbySeconds
	}
	if cfg.DurationMinute <= 0 {
		cfg.DurationMinute = def.DurationMinute
	}
	return &BattleServiceImpl{
		db:         db,
		issuer:     issuer,
		problemSvc: problemSvc,
		log:        log,
		lobby:      time.Duration(cfg.LobbySeconds) * time.Second,
		duration:   time.Duration(cfg.DurationMinute) * time.Minute,
		now:        o.now,
	}
}

// CreateInvitation 创建邀请
func (s *BattleServiceImpl) CreateInvitation(ctx context.Context, userID string) (*entity.BattleInvitation, error) {
	tx := s.db.WithContext(ctx).Begin()
	err := tx.Where("user_id = ?", userID).Delete(&entity.BattleInvitation{}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateInvitation transaction failed at delete previous invitations: %w", err)
	}

	code, err := s.issuer.Issue(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateInvitation transaction failed at issue invite code: %w", err)
	}

	invitation := &entity.BattleInvitation{
		InviteCode: code,
		UserID:     userID,
		CreatedAt:  s.now(),
	}
	if err = tx.Create(invitation).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateInvitation transaction failed at insert into battle_invitations: %w", err)
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateInvitation transaction failed at commit: %w", err)
	}
	return invitation, nil
}

// GetInvitation 获取邀请
func (s *BattleServiceImpl) GetInvitation(ctx context.Context, inviteCode string) (*entity.BattleInvitation, error) {
	var invitation entity.BattleInvitation
	err := s.db.WithContext(ctx).
		Where("invite_code = ?", NormalizeInviteCode(inviteCode)).
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("GetInvitation failed: invitation %s: %w", inviteCode, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvitation failed: %w", err)
	}
	return &invitation, nil
}

// CancelInvitation 取消邀请
func (s *BattleServiceImpl) CancelInvitation(ctx context.Context, userID, inviteCode string) error {
	res := s.db.WithContext(ctx).
		Where("invite_code = ?", NormalizeInviteCode(inviteCode)).
		Where("user_id = ?", userID).
		Delete(&entity.BattleInvitation{})
	if res.Error != nil {
		return fmt.Errorf("CancelInvitation failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("CancelInvitation failed: invitation %s: %w", inviteCode, ErrNotFound)
	}
	return nil
}

// GetBattleByCode 根据邀请码获取对战
func (s *BattleServiceImpl) GetBattleByCode(ctx context.Context, inviteCode string) (*entity.Battle, error) {
	return s.getBattle(ctx, "invite_code = ?", NormalizeInviteCode(inviteCode))
}

// GetBattleByID 获取对战
func (s *BattleServiceImpl) GetBattleByID(ctx context.Context, battleID string) (*entity.Battle, error) {
	return s.getBattle(ctx, "id = ?", battleID)
}

func (s *BattleServiceImpl) getBattle(ctx context.Context, cond string, arg string) (*entity.Battle, error) {
	var battle entity.Battle
	err := s.db.WithContext(ctx).
		Preload("Memberships", func(db *gorm.DB) *gorm.DB {
			return db.Order("join_order ASC")
		}).
		Preload("Memberships.User").
		Where(cond, arg).
		First(&battle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("getBattle failed: battle %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getBattle failed: %w", err)
	}
	return &battle, nil
}

// CreateBattle 消费邀请并创建对战
func (s *BattleServiceImpl) CreateBattle(ctx context.Context, joiningUserID, inviteCode string) (*entity.Battle, error) {
	code := NormalizeInviteCode(inviteCode)

	problemID, err := s.problemSvc.RandomProblemID(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateBattle failed at pick problem: %w", err)
	}

	tx := s.db.WithContext(ctx).Begin()
	var invitation entity.BattleInvitation
	err = tx.Where("invite_code = ?", code).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle failed: invitation %s: %w", code, ErrNotFound)
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle transaction failed at select invitation: %w", err)
	}
	if invitation.UserID == joiningUserID {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle failed: %w", ErrOwnInvitation)
	}

	// 删除邀请即消费, 并发加入时只有一方能删除成功
	res := tx.Where("invite_code = ?", code).Delete(&entity.BattleInvitation{})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle transaction failed at consume invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle failed: invitation %s already consumed: %w", code, ErrNotFound)
	}

	now := s.now()
	startTime := now.Add(s.lobby)
	battle := &entity.Battle{
		InviteCode: code,
		ProblemID:  problemID,
		StartTime:  startTime,
		EndTime:    startTime.Add(s.duration),
		Status:     entity.BattleStatusLobby,
	}
	if err = tx.Create(battle).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle transaction failed at insert into battles: %w", err)
	}

	memberships := []entity.BattleMembership{
		{BattleID: battle.ID, UserID: invitation.UserID, JoinOrder: 1},
		{BattleID: battle.ID, UserID: joiningUserID, JoinOrder: 2},
	}
	if err = tx.Create(&memberships).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle transaction failed at insert into battle_memberships: %w", err)
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("CreateBattle transaction failed at commit: %w", err)
	}

	return s.GetBattleByID(ctx, battle.ID)
}

// IsJoinable 判断用户能否(重新)进入对战
func (s *BattleServiceImpl) IsJoinable(battle *entity.Battle, userID string) bool {
	if battle == nil || battle.Finished || battle.Status == entity.BattleStatusFinished {
		return false
	}
	return isMember(battle, userID)
}

// Cancel 取消对战
func (s *BattleServiceImpl) Cancel(ctx context.Context, battleID string) (*entity.Battle, error) {
	tx := s.db.WithContext(ctx).Begin()
	var battle entity.Battle
	err := tx.Where("id = ?", battleID).First(&battle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel failed: battle %s: %w", battleID, ErrNotFound)
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at select battle: %w", err)
	}
	if battle.Finished {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel failed: battle %s already finished: %w", battleID, ErrInvalidState)
	}

	// 条件删除, 与结算的 finished 标记互斥
	res := tx.Where("id = ? AND finished = ?", battleID, false).Delete(&entity.Battle{})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete battle: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel failed: battle %s changed concurrently: %w", battleID, ErrInvalidState)
	}

	if err = tx.Where("battle_id = ?", battleID).Delete(&entity.BattleMembership{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete memberships: %w", err)
	}
	err = tx.Where("submission_id IN (?)", tx.Model(&entity.Submission{}).Select("id").Where("battle_id = ?", battleID)).
		Delete(&entity.SubmissionTestResult{}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete submission test results: %w", err)
	}
	if err = tx.Where("battle_id = ?", battleID).Delete(&entity.Submission{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete submissions: %w", err)
	}
	err = tx.Where("result_id IN (?)", tx.Model(&entity.BattleResult{}).Select("id").Where("battle_id = ?", battleID)).
		Delete(&entity.BattleEvaluation{}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete evaluations: %w", err)
	}
	if err = tx.Where("battle_id = ?", battleID).Delete(&entity.BattleResult{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete result: %w", err)
	}
	if err = tx.Where("invite_code = ?", battle.InviteCode).Delete(&entity.BattleInvitation{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at delete invitation: %w", err)
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Cancel transaction failed at commit: %w", err)
	}
	return &battle, nil
}

// ListOverdueBattles 获取超时未结束的对战
func (s *BattleServiceImpl) ListOverdueBattles(ctx context.Context, before time.Time, limit int) ([]entity.Battle, error) {
	var battles []entity.Battle
	err := s.db.WithContext(ctx).
		Where("finished = ?", false).
		Where("end_time < ?", before).
		Order("end_time ASC").
		Limit(limit).
		Find(&battles).Error
	if err != nil {
		return nil, fmt.Errorf("ListOverdueBattles failed: %w", err)
	}
	return battles, nil
}

// ListActiveBattles 获取用户参与且未结束的对战
func (s *BattleServiceImpl) ListActiveBattles(ctx context.Context, userID string) ([]entity.Battle, error) {
	var battles []entity.Battle
	err := s.db.WithContext(ctx).
		Where("finished = ?", false).
		Where("id IN (?)", s.db.Model(&entity.BattleMembership{}).Select("battle_id").Where("user_id = ?", userID)).
		Find(&battles).Error
	if err != nil {
		return nil, fmt.Errorf("ListActiveBattles failed: %w", err)
	}
	return battles, nil
}

// CleanStaleInvitations 清理过期邀请
func (s *BattleServiceImpl) CleanStaleInvitations(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&entity.BattleInvitation{})
	if res.Error != nil {
		return 0, fmt.Errorf("CleanStaleInvitations failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
