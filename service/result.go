package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/event"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/pointer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayerRating struct {
	UserID    string
	OldRating int
	NewRating int
}

// FinalizeOutcome 结算结果, Evaluations 与 Players 均按加入顺序排列(发起人在前)
type FinalizeOutcome struct {
	Result      *entity.BattleResult
	Battle      *entity.Battle
	Evaluations []entity.BattleEvaluation
	Players     []PlayerRating
}

type ResultService interface {
	// Finalize 结算对战, 每个结果只会成功一次
	Finalize(ctx context.Context, resultID string) (*FinalizeOutcome, error)
	// ForceFinalize 截止时间到达时结算, 未提交的选手记为零分
	ForceFinalize(ctx context.Context, battleID string) (*FinalizeOutcome, error)
	// GetResultByBattleID 获取对战结果
	GetResultByBattleID(ctx context.Context, battleID string) (*entity.BattleResult, error)
}

type ResultServiceImpl struct {
	db          *gorm.DB
	userSvc     UserService
	leaderboard LeaderboardService
	producer    event.Producer
	log         logger.Logger
	k           float64
}

var _ ResultService = (*ResultServiceImpl)(nil)

func NewResultService(db *gorm.DB, userSvc UserService, leaderboard LeaderboardService, producer event.Producer, log logger.Logger, cfg config.BattleConfig) ResultService {
	k := cfg.EloK
	if k <= 0 {
		k = DefaultEloK
	}
	return &ResultServiceImpl{
		db:          db,
		userSvc:     userSvc,
		leaderboard: leaderboard,
		producer:    producer,
		log:         log,
		k:           k,
	}
}

// GetResultByBattleID 获取对战结果
func (s *ResultServiceImpl) GetResultByBattleID(ctx context.Context, battleID string) (*entity.BattleResult, error) {
	var result entity.BattleResult
	err := s.db.WithContext(ctx).Where("battle_id = ?", battleID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("GetResultByBattleID failed: battle %s: %w", battleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetResultByBattleID failed: %w", err)
	}
	return &result, nil
}

// ForceFinalize 强制结算
func (s *ResultServiceImpl) ForceFinalize(ctx context.Context, battleID string) (*FinalizeOutcome, error) {
	shell := &entity.BattleResult{BattleID: battleID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "battle_id"}},
		DoNothing: true,
	}).Create(shell).Error
	if err != nil {
		return nil, fmt.Errorf("ForceFinalize failed at upsert battle_results: %w", err)
	}
	result, err := s.GetResultByBattleID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("ForceFinalize failed: %w", err)
	}
	return s.Finalize(ctx, result.ID)
}

// Finalize 结算
func (s *ResultServiceImpl) Finalize(ctx context.Context, resultID string) (*FinalizeOutcome, error) {
	ctx = logger.ContextWithFields(ctx, logger.String("result_id", resultID))

	tx := s.db.WithContext(ctx).Begin()
	res := tx.Model(&entity.BattleResult{}).
		Where("id = ? AND finalized = ?", resultID, false).
		Update("finalized", true)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at mark finalized: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var cnt int64
		err := tx.Model(&entity.BattleResult{}).Where("id = ?", resultID).Count(&cnt).Error
		tx.Rollback()
		if err != nil {
			return nil, fmt.Errorf("Finalize transaction failed at check result: %w", err)
		}
		if cnt == 0 {
			return nil, fmt.Errorf("Finalize failed: result %s: %w", resultID, ErrNotFound)
		}
		return nil, fmt.Errorf("Finalize failed: result %s: %w", resultID, ErrAlreadyFinalized)
	}

	var result entity.BattleResult
	if err := tx.Where("id = ?", resultID).First(&result).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at select battle_results: %w", err)
	}

	var battle entity.Battle
	err := tx.Preload("Memberships", func(db *gorm.DB) *gorm.DB {
		return db.Order("join_order ASC")
	}).Where("id = ?", result.BattleID).First(&battle).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at select battle: %w", err)
	}
	if len(battle.Memberships) != 2 {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize failed: battle %s has %d members: %w", battle.ID, len(battle.Memberships), ErrMissingParticipant)
	}

	evaluations, err := s.loadEvaluations(tx, &result, &battle)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	a, b := &evaluations[0], &evaluations[1]

	// 按 id 顺序加行锁, 避免两场对战交叉结算时死锁
	var users []entity.User
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []string{a.UserID, b.UserID}).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at lock users: %w", err)
	}
	ratings := make(map[string]int, len(users))
	for _, u := range users {
		ratings[u.ID] = u.Rating
	}
	ratingA, okA := ratings[a.UserID]
	ratingB, okB := ratings[b.UserID]
	if !okA || !okB {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize failed: battle %s player missing: %w", battle.ID, ErrNotFound)
	}

	winnerID, draw := DecideWinner(a, b)
	update := ComputeRatingUpdate(ratingA, ratingB, a, b, winnerID, draw, s.k)
	if draw {
		// 平局仍记录名义胜者: 积分不低于对方的一方, 相同时为发起人
		if update.NewRatingA >= update.NewRatingB {
			winnerID = a.UserID
		} else {
			winnerID = b.UserID
		}
	}

	result.WinnerID = pointer.ToPtr(winnerID)
	result.IsDraw = draw
	result.Score = update.Delta
	result.Finalized = true
	err = tx.Model(&entity.BattleResult{}).
		Where("id = ?", result.ID).
		Updates(map[string]any{
			"winner_id": winnerID,
			"is_draw":   draw,
			"score":     update.Delta,
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at update battle_results: %w", err)
	}

	if err = s.userSvc.UpdateRating(ctx, tx, a.UserID, update.NewRatingA); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at update rating of %s: %w", a.UserID, err)
	}
	if err = s.userSvc.UpdateRating(ctx, tx, b.UserID, update.NewRatingB); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at update rating of %s: %w", b.UserID, err)
	}

	err = tx.Model(&entity.Battle{}).
		Where("id = ?", battle.ID).
		Updates(map[string]any{
			"status":   entity.BattleStatusFinished,
			"finished": true,
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at mark battle finished: %w", err)
	}

	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Finalize transaction failed at commit: %w", err)
	}

	battle.Status = entity.BattleStatusFinished
	battle.Finished = true
	outcome := &FinalizeOutcome{
		Result:      &result,
		Battle:      &battle,
		Evaluations: evaluations,
		Players: []PlayerRating{
			{UserID: a.UserID, OldRating: ratingA, NewRating: update.NewRatingA},
			{UserID: b.UserID, OldRating: ratingB, NewRating: update.NewRatingB},
		},
	}

	s.log.InfoContext(ctx, "battle finalized",
		logger.String("battle_id", battle.ID),
		logger.String("winner_id", winnerID),
		logger.Bool("is_draw", draw),
		logger.Int("score", update.Delta))

	s.afterFinalize(ctx, outcome)
	return outcome, nil
}

// loadEvaluations 按加入顺序返回双方评测, 缺失的一方补零分
func (s *ResultServiceImpl) loadEvaluations(tx *gorm.DB, result *entity.BattleResult, battle *entity.Battle) ([]entity.BattleEvaluation, error) {
	var stored []entity.BattleEvaluation
	if err := tx.Where("result_id = ?", result.ID).Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("Finalize transaction failed at select battle_evaluations: %w", err)
	}
	byUser := make(map[string]entity.BattleEvaluation, len(stored))
	for _, e := range stored {
		byUser[e.UserID] = e
	}

	evaluations := make([]entity.BattleEvaluation, 0, 2)
	for _, m := range battle.Memberships {
		e, ok := byUser[m.UserID]
		if !ok {
			e = entity.BattleEvaluation{ResultID: result.ID, UserID: m.UserID}
			if err := tx.Create(&e).Error; err != nil {
				return nil, fmt.Errorf("Finalize transaction failed at insert forfeit evaluation: %w", err)
			}
		}
		evaluations = append(evaluations, e)
	}
	return evaluations, nil
}

// afterFinalize 提交后的副作用, 失败只记录日志
func (s *ResultServiceImpl) afterFinalize(ctx context.Context, outcome *FinalizeOutcome) {
	for _, p := range outcome.Players {
		if err := s.leaderboard.UpdateRating(ctx, p.UserID, p.NewRating); err != nil {
			s.log.WarnContext(ctx, "Finalize failed at update leaderboard",
				logger.String("user_id", p.UserID),
				logger.Error(err))
		}
	}

	msg := event.DuelResultMessage{
		BattleID:   outcome.Battle.ID,
		ResultID:   outcome.Result.ID,
		WinnerID:   pointer.Deref(outcome.Result.WinnerID),
		IsDraw:     outcome.Result.IsDraw,
		Score:      outcome.Result.Score,
		FinishedAt: time.Now(),
	}
	for _, p := range outcome.Players {
		msg.Players = append(msg.Players, event.PlayerRating{
			UserID:    p.UserID,
			OldRating: p.OldRating,
			NewRating: p.NewRating,
		})
	}
	val, err := msg.Marshal()
	if err != nil {
		s.log.ErrorContext(ctx, "Finalize failed at marshal duel result message", logger.Error(err))
		return
	}
	_, _, err = s.producer.Produce(ctx, &sarama.ProducerMessage{
		Topic: event.DuelResultTopic,
		Key:   sarama.StringEncoder(outcome.Battle.ID),
		Value: sarama.ByteEncoder(val),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Finalize failed at produce duel result message", logger.Error(err))
	}
}
