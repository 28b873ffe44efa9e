package service

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/entity"
	"gorm.io/gorm"
)

type InviteCodeIssuer interface {
	// Issue 生成一个未被现存邀请或对战占用的邀请码, 冲突次数达到上限时返回 ErrResourceExhausted
	Issue(ctx context.Context, tx *gorm.DB) (string, error)
}

type InviteCodeIssuerImpl struct {
	alphabet    string
	length      int
	maxAttempts int
	generate    func(alphabet string, size int) (string, error)
}

var _ InviteCodeIssuer = (*InviteCodeIssuerImpl)(nil)

func NewInviteCodeIssuer(cfg config.InviteCodeConfig) InviteCodeIssuer {
	def := config.DefaultBattleConfig().InviteCode
	if cfg.Alphabet == "" {
		cfg.Alphabet = def.Alphabet
	}
	if cfg.Length <= 0 {
		cfg.Length = def.Length
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &InviteCodeIssuerImpl{
		alphabet:    strings.ToUpper(cfg.Alphabet),
		length:      cfg.Length,
		maxAttempts: cfg.MaxAttempts,
		generate:    gonanoid.Generate,
	}
}

func (i *InviteCodeIssuerImpl) Issue(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		code, err := i.generate(i.alphabet, i.length)
		if err != nil {
			return "", fmt.Errorf("Issue failed at generate: %w", err)
		}
		code = strings.ToUpper(code)

		taken, err := inviteCodeTaken(ctx, tx, code)
		if err != nil {
			return "", fmt.Errorf("Issue failed at check collision: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("Issue failed after %d attempts: %w", i.maxAttempts, ErrResourceExhausted)
}

func inviteCodeTaken(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var cnt int64
	err := tx.WithContext(ctx).Model(&entity.BattleInvitation{}).
		Where("invite_code = ?", code).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	if cnt > 0 {
		return true, nil
	}
	err = tx.WithContext(ctx).Model(&entity.Battle{}).
		Where("invite_code = ?", code).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// NormalizeInviteCode 邀请码大小写不敏感
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
