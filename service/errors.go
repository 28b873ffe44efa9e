package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrDuplicateSubmission 同一选手在同一场对战中重复提交
	ErrDuplicateSubmission = fmt.Errorf("duplicate submission: %w", ErrInvalidState)
	// ErrOwnInvitation 邀请人加入自己的邀请码
	ErrOwnInvitation = fmt.Errorf("own invitation: %w", ErrInvalidState)
	// ErrAlreadyFinalized 结果已结算
	ErrAlreadyFinalized = fmt.Errorf("already finalized: %w", ErrInvalidState)
	// ErrMissingParticipant 对战成员不足两人(选手已注销), 无法结算
	ErrMissingParticipant = fmt.Errorf("missing participant: %w", ErrInvalidState)
)
