package gateway

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

var (
	errMalformed    = errors.New("malformed payload")
	errUnauthorized = errors.New("unauthorized")
)

type handlerFunc func(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any)

// Dispatcher 把入站事件翻译为编排层调用, 并决定直接回复与房间成员变化
type Dispatcher struct {
	orchestrator service.DuelOrchestrator
	hub          *Hub
	validate     *validator.Validate
	log          logger.Logger
	handlers     map[string]handlerFunc
}

func NewDispatcher(orchestrator service.DuelOrchestrator, hub *Hub, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		orchestrator: orchestrator,
		hub:          hub,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          log,
	}
	d.handlers = map[string]handlerFunc{
		constants.EventExchangeID:             d.exchangeID,
		constants.EventCreateBattleInvitation: d.createBattleInvitation,
		constants.EventCancelBattleInvitation: d.cancelBattleInvitation,
		constants.EventJoinBattle:             d.joinBattle,
		constants.EventReadyBattle:            d.readyBattle,
		constants.EventCancelBattle:           d.cancelBattle,
		constants.EventRunCode:                d.runCode,
		constants.EventSubmitCode:             d.submitCode,
	}
	return d
}

// Dispatch 处理一帧, 错误不会断开连接
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, raw []byte) {
	start := time.Now()

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		eventsTotal.WithLabelValues("unknown", constants.EventError).Inc()
		c.Reply(constants.EventError, errorPayload("malformed frame"))
		return
	}
	h, ok := d.handlers[frame.Event]
	if !ok {
		eventsTotal.WithLabelValues("unknown", constants.EventError).Inc()
		c.Reply(constants.EventError, errorPayload(fmt.Sprintf("unknown event %q", frame.Event)))
		return
	}

	ctx = logger.ContextWithFields(ctx, logger.String("event", frame.Event))
	event, data := h(ctx, c, frame.Data)
	if event != "" {
		c.Reply(event, data)
	}
	eventsTotal.WithLabelValues(frame.Event, event).Inc()
	eventDurationSeconds.WithLabelValues(frame.Event).Observe(time.Since(start).Seconds())
}

func decode[T any](v *validator.Validate, data stdjson.RawMessage) (*T, error) {
	p := new(T)
	if len(data) == 0 {
		return nil, errMalformed
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if err := v.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return p, nil
}

// authorize 载荷中的 userId 必须是 exchangeId 绑定的用户
func authorize(c *Client, userID string) (string, error) {
	bound := c.UserID()
	if bound == "" || (userID != "" && userID != bound) {
		return "", errUnauthorized
	}
	return bound, nil
}

// replyError 将错误映射为 error 事件
func (d *Dispatcher) replyError(ctx context.Context, err error) (string, any) {
	var msg string
	switch {
	case errors.Is(err, errUnauthorized), errors.Is(err, service.ErrUnauthorized):
		msg = "unauthorized"
	case errors.Is(err, errMalformed):
		msg = err.Error()
	case errors.Is(err, service.ErrNotFound):
		msg = "not found"
	case errors.Is(err, service.ErrInvalidState):
		msg = "invalid state"
	case errors.Is(err, service.ErrResourceExhausted):
		msg = "resource exhausted, try again later"
	default:
		d.log.ErrorContext(ctx, "handle event failed", logger.Error(err))
		return constants.EventError, errorPayload("internal error")
	}
	d.log.InfoContext(ctx, "event rejected", logger.Error(err))
	return constants.EventError, errorPayload(msg)
}

func (d *Dispatcher) exchangeID(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.ExchangeIDParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	user, err := d.orchestrator.ExchangeID(ctx, p.Auth0ID, c.Identity())
	if err != nil {
		return d.replyError(ctx, err)
	}
	c.bind(user.ID)
	return constants.EventIDExchanged, user
}

func (d *Dispatcher) createBattleInvitation(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.CreateBattleInvitationParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, p.UserID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	invitation, err := d.orchestrator.CreateBattleInvitation(ctx, userID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	d.hub.Join(invitation.InviteCode, c)
	return constants.EventBattleInvitationCreated, invitation
}

func (d *Dispatcher) cancelBattleInvitation(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.CancelBattleInvitationParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, p.UserID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	cancelled, err := d.orchestrator.CancelBattleInvitation(ctx, userID, p.InviteCode)
	if err != nil {
		return d.replyError(ctx, err)
	}
	d.hub.Leave(cancelled.InviteCode, c)
	return constants.EventBattleInvitationCancelled, cancelled
}

func (d *Dispatcher) joinBattle(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.JoinBattleParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, p.UserID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	resp, err := d.orchestrator.JoinBattle(ctx, userID, p.InviteCode)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidState) {
		d.log.InfoContext(ctx, "battle not joinable", logger.Error(err))
		return constants.EventBattleNotJoinable, errorPayload("battle is not joinable")
	}
	if err != nil {
		return d.replyError(ctx, err)
	}
	if resp.Event == constants.EventBattleNotJoinable {
		return resp.Event, errorPayload(resp.Message)
	}
	d.hub.Join(resp.Room, c)
	return resp.Event, &model.BattleEnvelope{Battle: resp.Battle}
}

func (d *Dispatcher) readyBattle(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.ReadyBattleParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, p.UserID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	resp, err := d.orchestrator.ReadyBattle(ctx, userID, p.BattleID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	// 空事件表示 battleStarted 已经通过房间广播
	if resp.Event == "" {
		return "", nil
	}
	if resp.Battle == nil {
		return resp.Event, nil
	}
	return resp.Event, &model.BattleEnvelope{Battle: resp.Battle}
}

func (d *Dispatcher) cancelBattle(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.CancelBattleParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, "")
	if err != nil {
		return d.replyError(ctx, err)
	}
	if err = d.orchestrator.CancelBattle(ctx, userID, p.BattleID); err != nil {
		return d.replyError(ctx, err)
	}
	return "", nil
}

func (d *Dispatcher) runCode(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.RunCodeParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, "")
	if err != nil {
		return d.replyError(ctx, err)
	}
	resp, err := d.orchestrator.RunCode(ctx, userID, p.BattleID, p.Code, p.Input)
	if err != nil {
		return d.replyError(ctx, err)
	}
	return constants.EventCodeRan, resp
}

func (d *Dispatcher) submitCode(ctx context.Context, c *Client, data stdjson.RawMessage) (string, any) {
	p, err := decode[model.SubmitCodeParam](d.validate, data)
	if err != nil {
		return d.replyError(ctx, err)
	}
	userID, err := authorize(c, p.UserID)
	if err != nil {
		return d.replyError(ctx, err)
	}
	resp, err := d.orchestrator.SubmitCode(ctx, userID, p.BattleID, p.ProblemID, p.Code)
	if errors.Is(err, service.ErrDuplicateSubmission) {
		return constants.EventSubmissionError, errorPayload("code already submitted for this battle")
	}
	if errors.Is(err, service.ErrInvalidState) {
		return constants.EventSubmissionError, errorPayload("submission is not accepted for this battle")
	}
	if err != nil {
		return d.replyError(ctx, err)
	}
	return constants.EventCodeSubmitted, resp
}
