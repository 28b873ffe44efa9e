package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

const (
	msgBattleFull         = "Max number of opponent has been reached"
	msgBattleFinished     = "Battle has already finished"
	msgInvitationNotFound = "Invitation not found"
	msgOwnInvitation      = "Cannot join your own invitation"
)

// DuelOrchestrator 每个入站事件对应一个方法, 房间广播通过 Notifier 完成, 直接回复由返回值给出
type DuelOrchestrator interface {
	ExchangeID(ctx context.Context, assertion string, bound *identity.Identity) (*model.UserResponse, error)
	CreateBattleInvitation(ctx context.Context, userID string) (*model.InvitationResponse, error)
	CancelBattleInvitation(ctx context.Context, userID, inviteCode string) (*model.InvitationCancelledPayload, error)
	JoinBattle(ctx context.Context, userID, inviteCode string) (*model.JoinBattleResponse, error)
	ReadyBattle(ctx context.Context, userID, battleID string) (*model.ReadyBattleResponse, error)
	CancelBattle(ctx context.Context, userID, battleID string) error
	RunCode(ctx context.Context, userID, battleID, code, input string) (*model.RunCodeResponse, error)
	SubmitCode(ctx context.Context, userID, battleID, problemID, code string) (*model.SubmitCodeResponse, error)
	// ExpireBattle 截止时间处理: 无人提交则取消, 否则结算
	ExpireBattle(ctx context.Context, battleID string) error
	// RemoveUser 注销用户, 先取消其未结束的对战并通知对手
	RemoveUser(ctx context.Context, externalID string) error
}

type DuelOrchestratorImpl struct {
	userSvc    UserService
	battleSvc  BattleService
	submitSvc  SubmissionService
	resultSvc  ResultService
	problemSvc ProblemService
	locker     BattleLocker
	deadline   DeadlineScheduler
	notifier   Notifier
	log        logger.Logger
	grace      time.Duration
}

var _ DuelOrchestrator = (*DuelOrchestratorImpl)(nil)

func NewDuelOrchestrator(
	userSvc UserService,
	battleSvc BattleService,
	submitSvc SubmissionService,
	resultSvc ResultService,
	problemSvc ProblemService,
	locker BattleLocker,
	deadline DeadlineScheduler,
	notifier Notifier,
	log logger.Logger,
	cfg config.BattleConfig,
) DuelOrchestrator {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	return &DuelOrchestratorImpl{
		userSvc:    userSvc,
		battleSvc:  battleSvc,
		submitSvc:  submitSvc,
		resultSvc:  resultSvc,
		problemSvc: problemSvc,
		locker:     locker,
		deadline:   deadline,
		notifier:   notifier,
		log:        log,
		grace:      time.Duration(cfg.GraceSeconds) * time.Second,
	}
}

// ExchangeID 身份交换
func (o *DuelOrchestratorImpl) ExchangeID(ctx context.Context, assertion string, bound *identity.Identity) (*model.UserResponse, error) {
	user, err := o.userSvc.Resolve(ctx, assertion, bound)
	if err != nil {
		return nil, fmt.Errorf("ExchangeID failed: %w", err)
	}
	return toUserResponse(user), nil
}

// CreateBattleInvitation 创建邀请
func (o *DuelOrchestratorImpl) CreateBattleInvitation(ctx context.Context, userID string) (*model.InvitationResponse, error) {
	invitation, err := o.battleSvc.CreateInvitation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("CreateBattleInvitation failed: %w", err)
	}
	return &model.InvitationResponse{
		InviteCode: invitation.InviteCode,
		UserID:     invitation.UserID,
		CreatedAt:  invitation.CreatedAt,
	}, nil
}

// CancelBattleInvitation 取消邀请
func (o *DuelOrchestratorImpl) CancelBattleInvitation(ctx context.Context, userID, inviteCode string) (*model.InvitationCancelledPayload, error) {
	if err := o.battleSvc.CancelInvitation(ctx, userID, inviteCode); err != nil {
		return nil, fmt.Errorf("CancelBattleInvitation failed: %w", err)
	}
	return &model.InvitationCancelledPayload{InviteCode: NormalizeInviteCode(inviteCode)}, nil
}

// JoinBattle 加入或重新进入对战
func (o *DuelOrchestratorImpl) JoinBattle(ctx context.Context, userID, inviteCode string) (*model.JoinBattleResponse, error) {
	code := NormalizeInviteCode(inviteCode)
	ctx = logger.ContextWithFields(ctx, logger.String("invite_code", code), logger.String("user_id", userID))

	battle, err := o.battleSvc.GetBattleByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("JoinBattle failed at get battle: %w", err)
	}

	if battle != nil {
		if !o.battleSvc.IsJoinable(battle, userID) {
			if battle.Finished || battle.Status == entity.BattleStatusFinished {
				return notJoinable(msgBattleFinished), nil
			}
			return notJoinable(msgBattleFull), nil
		}
		var problem *model.ProblemResponse
		if battle.Status == entity.BattleStatusRunning {
			if problem, err = o.problemResponse(ctx, battle.ProblemID); err != nil {
				return nil, fmt.Errorf("JoinBattle failed: %w", err)
			}
		}
		o.notify(ctx, code, constants.EventOpponentRejoined, nil, userID)
		return &model.JoinBattleResponse{
			Event:  constants.EventBattleRejoined,
			Room:   code,
			Battle: toBattleResponse(battle, problem),
		}, nil
	}

	battle, err = o.battleSvc.CreateBattle(ctx, userID, code)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) {
		o.log.InfoContext(ctx, "battle not joinable", logger.Error(err))
		if errors.Is(err, ErrOwnInvitation) {
			return notJoinable(msgOwnInvitation), nil
		}
		return notJoinable(msgInvitationNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("JoinBattle failed: %w", err)
	}

	resp := toBattleResponse(battle, nil)
	o.notify(ctx, code, constants.EventOpponentFound, &model.BattleEnvelope{Battle: resp}, userID)
	return &model.JoinBattleResponse{
		Event:  constants.EventBattleJoined,
		Room:   code,
		Battle: resp,
	}, nil
}

func notJoinable(message string) *model.JoinBattleResponse {
	return &model.JoinBattleResponse{
		Event:   constants.EventBattleNotJoinable,
		Message: message,
	}
}

// ReadyBattle 准备; 返回 Event 为空表示已向房间广播 battleStarted
func (o *DuelOrchestratorImpl) ReadyBattle(ctx context.Context, userID, battleID string) (*model.ReadyBattleResponse, error) {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battleID), logger.String("user_id", userID))

	started, err := o.battleSvc.MarkReady(ctx, battleID, userID)
	if err != nil {
		return nil, fmt.Errorf("ReadyBattle failed: %w", err)
	}

	battle, err := o.battleSvc.GetBattleByID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("ReadyBattle failed: %w", err)
	}
	if !started && battle.Status != entity.BattleStatusRunning {
		return &model.ReadyBattleResponse{Event: constants.EventWaitingForOpponent}, nil
	}

	problem, err := o.problemResponse(ctx, battle.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("ReadyBattle failed: %w", err)
	}
	resp := toBattleResponse(battle, problem)

	if !started {
		// 对战已由另一方启动, 例如重复准备
		return &model.ReadyBattleResponse{Event: constants.EventBattleStarted, Battle: resp}, nil
	}

	o.scheduleDeadline(ctx, battle)
	o.notify(ctx, battle.InviteCode, constants.EventBattleStarted, &model.BattleEnvelope{Battle: resp}, "")
	return &model.ReadyBattleResponse{Battle: resp}, nil
}

func (o *DuelOrchestratorImpl) scheduleDeadline(ctx context.Context, battle *entity.Battle) {
	if o.deadline == nil {
		return
	}
	battleID := battle.ID
	err := o.deadline.Schedule(ctx, battleID, battle.EndTime.Add(o.grace), func(jctx context.Context) {
		if err := o.ExpireBattle(jctx, battleID); err != nil {
			o.log.ErrorContext(jctx, "ExpireBattle failed", logger.Error(err))
		}
	})
	if err != nil {
		o.log.ErrorContext(ctx, "schedule battle deadline failed", logger.Error(err))
	}
}

func (o *DuelOrchestratorImpl) cancelDeadline(battleID string) {
	if o.deadline != nil {
		o.deadline.Cancel(battleID)
	}
}

// CancelBattle 取消对战, 仅参与者可取消
func (o *DuelOrchestratorImpl) CancelBattle(ctx context.Context, userID, battleID string) error {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battleID), logger.String("user_id", userID))

	return o.locker.WithLock(ctx, battleID, func(ctx context.Context) error {
		battle, err := o.battleSvc.GetBattleByID(ctx, battleID)
		if err != nil {
			return fmt.Errorf("CancelBattle failed: %w", err)
		}
		if !isMember(battle, userID) {
			return fmt.Errorf("CancelBattle failed: user %s not in battle: %w", userID, ErrUnauthorized)
		}
		return o.cancelLocked(ctx, battleID)
	})
}

func (o *DuelOrchestratorImpl) cancelLocked(ctx context.Context, battleID string) error {
	battle, err := o.battleSvc.Cancel(ctx, battleID)
	if err != nil {
		return fmt.Errorf("cancel battle failed: %w", err)
	}
	o.cancelDeadline(battleID)
	o.notify(ctx, battle.InviteCode, constants.EventBattleCancelled, &model.BattleCancelledPayload{BattleID: battleID}, "")
	return nil
}

// RunCode 试运行
func (o *DuelOrchestratorImpl) RunCode(ctx context.Context, userID, battleID, code, input string) (*model.RunCodeResponse, error) {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battleID), logger.String("user_id", userID))

	battle, err := o.battleSvc.GetBattleByID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("RunCode failed: %w", err)
	}
	if !isMember(battle, userID) {
		return nil, fmt.Errorf("RunCode failed: user %s not in battle: %w", userID, ErrUnauthorized)
	}

	o.notify(ctx, battle.InviteCode, constants.EventOpponentRunCode, nil, userID)
	out, err := o.submitSvc.RunCode(ctx, battle.ProblemID, code, input)
	if err != nil {
		return nil, fmt.Errorf("RunCode failed: %w", err)
	}
	return &model.RunCodeResponse{Type: string(out.Type), Output: out.Output}, nil
}

// SubmitCode 提交代码, 第二份提交触发结算
func (o *DuelOrchestratorImpl) SubmitCode(ctx context.Context, userID, battleID, problemID, code string) (*model.SubmitCodeResponse, error) {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battleID), logger.String("user_id", userID))

	battle, err := o.battleSvc.GetBattleByID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("SubmitCode failed: %w", err)
	}
	if battle.ProblemID != problemID {
		return nil, fmt.Errorf("SubmitCode failed: problem %s not in battle: %w", problemID, ErrInvalidState)
	}

	outcome, err := o.submitSvc.Submit(ctx, battle, userID, code)
	if err != nil {
		return nil, fmt.Errorf("SubmitCode failed: %w", err)
	}

	problem, err := o.problemSvc.GetProblemByID(ctx, battle.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("SubmitCode failed: %w", err)
	}
	resp := toSubmitCodeResponse(outcome, problem)

	if !outcome.FinalizeDue {
		o.notify(ctx, battle.InviteCode, constants.EventOpponentSubmittedCode, nil, userID)
		return resp, nil
	}

	err = o.locker.WithLock(ctx, battleID, func(ctx context.Context) error {
		fin, err := o.resultSvc.Finalize(ctx, outcome.ResultID)
		if errors.Is(err, ErrMissingParticipant) {
			o.log.WarnContext(ctx, "cancel battle missing a participant", logger.Error(err))
			return o.cancelLocked(ctx, battleID)
		}
		if err != nil {
			return err
		}
		o.cancelDeadline(battleID)
		o.notify(ctx, battle.InviteCode, constants.EventBattleFinished, &model.BattleFinishedPayload{BattleResult: toBattleResultResponse(fin)}, "")
		return nil
	})
	if errors.Is(err, ErrInvalidState) {
		// 截止时间处理已先行结算
		o.log.WarnContext(ctx, "battle already finalized", logger.Error(err))
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("SubmitCode failed at finalize: %w", err)
	}
	return resp, nil
}

// ExpireBattle 截止时间处理
func (o *DuelOrchestratorImpl) ExpireBattle(ctx context.Context, battleID string) error {
	ctx = logger.ContextWithFields(ctx, logger.String("battle_id", battleID))

	return o.locker.WithLock(ctx, battleID, func(ctx context.Context) error {
		battle, err := o.battleSvc.GetBattleByID(ctx, battleID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ExpireBattle failed: %w", err)
		}
		if battle.Finished {
			return nil
		}

		if battle.Status == entity.BattleStatusLobby {
			o.log.InfoContext(ctx, "cancel battle stuck in lobby")
			return o.cancelLocked(ctx, battleID)
		}

		result, err := o.resultSvc.GetResultByBattleID(ctx, battleID)
		if errors.Is(err, ErrNotFound) || (err == nil && result.SubmissionCount == 0) {
			o.log.InfoContext(ctx, "cancel battle without submissions")
			return o.cancelLocked(ctx, battleID)
		}
		if err != nil {
			return fmt.Errorf("ExpireBattle failed: %w", err)
		}
		if result.Finalized {
			return nil
		}

		// 未提交的一方记零分
		fin, err := o.resultSvc.ForceFinalize(ctx, battleID)
		if errors.Is(err, ErrAlreadyFinalized) {
			return nil
		}
		if errors.Is(err, ErrMissingParticipant) {
			o.log.WarnContext(ctx, "cancel battle missing a participant", logger.Error(err))
			return o.cancelLocked(ctx, battleID)
		}
		if err != nil {
			return fmt.Errorf("ExpireBattle failed: %w", err)
		}
		o.notify(ctx, battle.InviteCode, constants.EventBattleFinished, &model.BattleFinishedPayload{BattleResult: toBattleResultResponse(fin)}, "")
		return nil
	})
}

// RemoveUser 注销用户
func (o *DuelOrchestratorImpl) RemoveUser(ctx context.Context, externalID string) error {
	user, err := o.userSvc.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("RemoveUser failed: %w", err)
	}
	ctx = logger.ContextWithFields(ctx, logger.String("user_id", user.ID))

	battles, err := o.battleSvc.ListActiveBattles(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("RemoveUser failed: %w", err)
	}
	for _, b := range battles {
		battleID := b.ID
		err = o.locker.WithLock(ctx, battleID, func(ctx context.Context) error {
			return o.cancelLocked(ctx, battleID)
		})
		// 期间已结算或已取消的对战跳过
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidState) {
			return fmt.Errorf("RemoveUser failed at cancel battle %s: %w", battleID, err)
		}
	}

	if err = o.userSvc.Remove(ctx, externalID); err != nil {
		return fmt.Errorf("RemoveUser failed: %w", err)
	}
	return nil
}

// notify 广播失败不影响业务结果
func (o *DuelOrchestratorImpl) notify(ctx context.Context, room, event string, data any, exceptUserID string) {
	if err := o.notifier.NotifyRoom(ctx, room, event, data, exceptUserID); err != nil {
		o.log.WarnContext(ctx, "notify room failed",
			logger.String("room", room),
			logger.String("event", event),
			logger.Error(err))
	}
}

func (o *DuelOrchestratorImpl) problemResponse(ctx context.Context, problemID string) (*model.ProblemResponse, error) {
	problem, err := o.problemSvc.GetProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	examples, err := o.problemSvc.GetExamples(ctx, problemID)
	if err != nil {
		return nil, err
	}
	resp := &model.ProblemResponse{
		ID:           problem.ID,
		Prompt:       problem.Prompt,
		InputFormat:  problem.InputFormat,
		OutputFormat: problem.OutputFormat,
		Examples:     make([]model.TestCaseResponse, 0, len(examples)),
	}
	for _, ex := range examples {
		resp.Examples = append(resp.Examples, model.TestCaseResponse{Input: ex.Input, Output: ex.Output})
	}
	return resp, nil
}
