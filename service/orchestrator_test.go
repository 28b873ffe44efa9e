package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
)

// lobbyBattle 通过编排层完成邀请与加入
func (e *testEnv) lobbyBattle(t *testing.T, owner, joiner *entity.User) *model.BattleResponse {
	t.Helper()
	ctx := context.Background()
	inv, err := e.orchestrator.CreateBattleInvitation(ctx, owner.ID)
	require.NoError(t, err)
	resp, err := e.orchestrator.JoinBattle(ctx, joiner.ID, inv.InviteCode)
	require.NoError(t, err)
	require.Equal(t, constants.EventBattleJoined, resp.Event)
	return resp.Battle
}

func TestOrchestratorExchangeID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.orchestrator.ExchangeID(ctx, "auth0|alice", &identity.Identity{Subject: "auth0|alice", Nickname: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Nickname)
	assert.Equal(t, 1000, user.Rating)

	again, err := env.orchestrator.ExchangeID(ctx, "auth0|alice", nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = env.orchestrator.ExchangeID(ctx, "auth0|mallory", &identity.Identity{Subject: "auth0|alice"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestOrchestratorDuelFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	problem := env.createProblem(t, 1, threeCases()...)

	battle := env.lobbyBattle(t, u1, u2)
	assert.Equal(t, problem.ID, battle.ProblemID)
	require.Len(t, battle.Users, 2)
	assert.Equal(t, u1.ID, battle.Users[0].ID)
	found, ok := env.notifier.last(constants.EventOpponentFound)
	require.True(t, ok)
	assert.Equal(t, u2.ID, found.Except)
	assert.Equal(t, battle.InviteCode, found.Room)

	ready, err := env.orchestrator.ReadyBattle(ctx, u1.ID, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EventWaitingForOpponent, ready.Event)

	ready, err = env.orchestrator.ReadyBattle(ctx, u2.ID, battle.ID)
	require.NoError(t, err)
	assert.Empty(t, ready.Event)
	require.NotNil(t, ready.Battle.Problem)
	assert.Len(t, ready.Battle.Problem.Examples, 1)
	started, ok := env.notifier.last(constants.EventBattleStarted)
	require.True(t, ok)
	assert.Empty(t, started.Except)
	deadline, ok := env.deadline.scheduled[battle.ID]
	require.True(t, ok)
	assert.Equal(t, ready.Battle.EndTime.Add(5*time.Second).UTC(), deadline.UTC())

	// 重复准备直接回复已开始
	ready, err = env.orchestrator.ReadyBattle(ctx, u1.ID, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleStarted, ready.Event)

	run, err := env.orchestrator.RunCode(ctx, u1.ID, battle.ID, "identity", "1")
	require.NoError(t, err)
	assert.Equal(t, "correct", run.Type)
	runNote, ok := env.notifier.last(constants.EventOpponentRunCode)
	require.True(t, ok)
	assert.Equal(t, u1.ID, runNote.Except)

	env.clock.Advance(5 * time.Second)
	sub, err := env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)
	assert.Len(t, sub.Tests, 3)
	assert.Equal(t, "use a loop", sub.Problem.ReviewText)
	assert.Contains(t, env.notifier.events(), constants.EventOpponentSubmittedCode)

	_, err = env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	env.clock.Advance(45 * time.Second)
	_, err = env.orchestrator.SubmitCode(ctx, u2.ID, battle.ID, problem.ID, "echo:1")
	require.NoError(t, err)
	finished, ok := env.notifier.last(constants.EventBattleFinished)
	require.True(t, ok)
	payload := finished.Data.(*model.BattleFinishedPayload)
	assert.Equal(t, u1.ID, payload.BattleResult.WinnerID)
	assert.Equal(t, 16, payload.BattleResult.Score)
	assert.Len(t, payload.BattleResult.Evaluations, 2)

	_, ok = env.deadline.scheduled[battle.ID]
	assert.False(t, ok)

	// 已结束的对战不可重新进入
	join, err := env.orchestrator.JoinBattle(ctx, u1.ID, battle.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleNotJoinable, join.Event)
}

func TestOrchestratorRejoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	u3 := env.createUser(t, "auth0|u3", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.lobbyBattle(t, u1, u2)

	resp, err := env.orchestrator.JoinBattle(ctx, u1.ID, battle.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleRejoined, resp.Event)
	assert.Nil(t, resp.Battle.Problem)

	resp, err = env.orchestrator.JoinBattle(ctx, u3.ID, battle.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleNotJoinable, resp.Event)
	assert.NotEmpty(t, resp.Message)

	_, err = env.orchestrator.ReadyBattle(ctx, u1.ID, battle.ID)
	require.NoError(t, err)
	_, err = env.orchestrator.ReadyBattle(ctx, u2.ID, battle.ID)
	require.NoError(t, err)

	resp, err = env.orchestrator.JoinBattle(ctx, u2.ID, battle.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleRejoined, resp.Event)
	require.NotNil(t, resp.Battle.Problem)
	assert.Len(t, resp.Battle.Problem.Examples, 1)
	rejoin, ok := env.notifier.last(constants.EventOpponentRejoined)
	require.True(t, ok)
	assert.Equal(t, u2.ID, rejoin.Except)
}

func TestOrchestratorJoinUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "auth0|u1", 1000)
	env.createProblem(t, 1, threeCases()...)

	resp, err := env.orchestrator.JoinBattle(context.Background(), u1.ID, "ZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleNotJoinable, resp.Event)
}

func TestOrchestratorCancelBattle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	u3 := env.createUser(t, "auth0|u3", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.lobbyBattle(t, u1, u2)

	err := env.orchestrator.CancelBattle(ctx, u3.ID, battle.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.orchestrator.CancelBattle(ctx, u2.ID, battle.ID))
	cancelled, ok := env.notifier.last(constants.EventBattleCancelled)
	require.True(t, ok)
	assert.Equal(t, battle.InviteCode, cancelled.Room)
	assert.Equal(t, &model.BattleCancelledPayload{BattleID: battle.ID}, cancelled.Data)

	err = env.orchestrator.CancelBattle(ctx, u2.ID, battle.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrchestratorSubmitWrongProblem(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.orchestrator.SubmitCode(context.Background(), u1.ID, battle.ID, "other", "identity")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestExpireBattleWithoutSubmissionsCancels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.lobbyBattle(t, u1, u2)
	_, err := env.orchestrator.ReadyBattle(ctx, u1.ID, battle.ID)
	require.NoError(t, err)
	_, err = env.orchestrator.ReadyBattle(ctx, u2.ID, battle.ID)
	require.NoError(t, err)

	require.True(t, env.deadline.fire(battle.ID))
	_, err = env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, env.notifier.events(), constants.EventBattleCancelled)

	// 重复触发无副作用
	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
}

func TestExpireBattleForfeit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	problem := env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)

	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
	finished, ok := env.notifier.last(constants.EventBattleFinished)
	require.True(t, ok)
	payload := finished.Data.(*model.BattleFinishedPayload)
	assert.Equal(t, u1.ID, payload.BattleResult.WinnerID)
	assert.False(t, payload.BattleResult.IsDraw)

	got, err := env.userSvc.GetUserByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 984, got.Rating)

	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
	got, err = env.userSvc.GetUserByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 984, got.Rating)
}

func TestExpireBattleStuckInLobby(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.lobbyBattle(t, u1, u2)

	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
	_, err := env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBattleInvitationThroughOrchestrator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)

	inv, err := env.orchestrator.CreateBattleInvitation(ctx, u1.ID)
	require.NoError(t, err)
	out, err := env.orchestrator.CancelBattleInvitation(ctx, u1.ID, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, inv.InviteCode, out.InviteCode)

	_, err = env.battleSvc.GetInvitation(ctx, inv.InviteCode)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrchestratorNotJoinableMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	u3 := env.createUser(t, "auth0|u3", 1000)
	problem := env.createProblem(t, 1, threeCases()...)

	resp, err := env.orchestrator.JoinBattle(ctx, u1.ID, "ZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, msgInvitationNotFound, resp.Message)

	inv, err := env.orchestrator.CreateBattleInvitation(ctx, u1.ID)
	require.NoError(t, err)
	resp, err = env.orchestrator.JoinBattle(ctx, u1.ID, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleNotJoinable, resp.Event)
	assert.Equal(t, msgOwnInvitation, resp.Message)

	resp, err = env.orchestrator.JoinBattle(ctx, u2.ID, inv.InviteCode)
	require.NoError(t, err)
	require.Equal(t, constants.EventBattleJoined, resp.Event)
	battle := resp.Battle

	resp, err = env.orchestrator.JoinBattle(ctx, u3.ID, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, msgBattleFull, resp.Message)

	_, err = env.orchestrator.ReadyBattle(ctx, u1.ID, battle.ID)
	require.NoError(t, err)
	_, err = env.orchestrator.ReadyBattle(ctx, u2.ID, battle.ID)
	require.NoError(t, err)
	_, err = env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)
	_, err = env.orchestrator.SubmitCode(ctx, u2.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)

	resp, err = env.orchestrator.JoinBattle(ctx, u1.ID, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, constants.EventBattleNotJoinable, resp.Event)
	assert.Equal(t, msgBattleFinished, resp.Message)
	resp, err = env.orchestrator.JoinBattle(ctx, u3.ID, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, msgBattleFinished, resp.Message)
}

func TestRemoveUserCancelsRunningBattle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	problem := env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)

	require.NoError(t, env.orchestrator.RemoveUser(ctx, "auth0|u2"))
	assert.Equal(t, []string{"auth0|u2"}, env.provider.deleted)

	_, err = env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	cancelled, ok := env.notifier.last(constants.EventBattleCancelled)
	require.True(t, ok)
	assert.Equal(t, &model.BattleCancelledPayload{BattleID: battle.ID}, cancelled.Data)

	overdue, err := env.battleSvc.ListOverdueBattles(ctx, battle.EndTime.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	// 对手评分不受影响
	got, err := env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Rating)
	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
}

func TestRemoveUserKeepsFinishedBattles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	problem := env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)
	_, err = env.orchestrator.SubmitCode(ctx, u2.ID, battle.ID, problem.ID, "echo:1")
	require.NoError(t, err)

	active, err := env.battleSvc.ListActiveBattles(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, env.orchestrator.RemoveUser(ctx, "auth0|u2"))
	assert.NotContains(t, env.notifier.events(), constants.EventBattleCancelled)
	_, err = env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.NoError(t, err)
}

func TestExpireBattleMissingParticipantCancels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	problem := env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.orchestrator.SubmitCode(ctx, u1.ID, battle.ID, problem.ID, "identity")
	require.NoError(t, err)
	// 绕过编排层直接注销对手, 对战只剩一名成员
	require.NoError(t, env.userSvc.Remove(ctx, "auth0|u2"))

	require.NoError(t, env.orchestrator.ExpireBattle(ctx, battle.ID))
	_, err = env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, env.notifier.events(), constants.EventBattleCancelled)
	assert.NotContains(t, env.notifier.events(), constants.EventBattleFinished)

	overdue, err := env.battleSvc.ListOverdueBattles(ctx, battle.EndTime.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}
