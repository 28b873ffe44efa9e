package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	json "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/event"
)

func TestFinalizeWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg event.DuelResultMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		assert.Equal(t, battle.ID, msg.BattleID)
		assert.Equal(t, u1.ID, msg.WinnerID)
		assert.Equal(t, 16, msg.Score)
		return nil
	})
	resultSvc := NewResultService(env.db, env.userSvc, env.leaderboard, event.NewSaramaProducer(mp), env.log, env.cfg)

	env.clock.Advance(5 * time.Second)
	_, err := env.submitSvc.Submit(ctx, battle, u1.ID, "identity")
	require.NoError(t, err)
	env.clock.Advance(45 * time.Second)
	out, err := env.submitSvc.Submit(ctx, battle, u2.ID, "echo:1")
	require.NoError(t, err)
	require.True(t, out.FinalizeDue)

	fin, err := resultSvc.Finalize(ctx, out.ResultID)
	require.NoError(t, err)
	require.NotNil(t, fin.Result.WinnerID)
	assert.Equal(t, u1.ID, *fin.Result.WinnerID)
	assert.False(t, fin.Result.IsDraw)
	assert.Equal(t, 16, fin.Result.Score)
	assert.Equal(t, []PlayerRating{
		{UserID: u1.ID, OldRating: 1000, NewRating: 1016},
		{UserID: u2.ID, OldRating: 1000, NewRating: 984},
	}, fin.Players)

	got1, err := env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1016, got1.Rating)
	got2, err := env.userSvc.GetUserByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 984, got2.Rating)

	b, err := env.battleSvc.GetBattleByID(ctx, battle.ID)
	require.NoError(t, err)
	assert.True(t, b.Finished)
	assert.Equal(t, entity.BattleStatusFinished, b.Status)

	score, err := env.rdb.ZScore(ctx, LeaderboardKey, u1.ID).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1016, score)

	_, err = resultSvc.Finalize(ctx, out.ResultID)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	got1, err = env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1016, got1.Rating)
}

func TestFinalizeBothZeroIsDraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1100)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.submitSvc.Submit(ctx, battle, u1.ID, "echo:x")
	require.NoError(t, err)
	out, err := env.submitSvc.Submit(ctx, battle, u2.ID, "echo:y")
	require.NoError(t, err)

	fin, err := env.resultSvc.Finalize(ctx, out.ResultID)
	require.NoError(t, err)
	assert.True(t, fin.Result.IsDraw)
	assert.Zero(t, fin.Result.Score)
	// 平局名义胜者为积分较高的一方
	assert.Equal(t, u1.ID, *fin.Result.WinnerID)

	got1, err := env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1100, got1.Rating)
	got2, err := env.userSvc.GetUserByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, got2.Rating)
}

func TestFinalizeNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.resultSvc.Finalize(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFinalizeConcurrentOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)
	_, err := env.submitSvc.Submit(ctx, battle, u1.ID, "identity")
	require.NoError(t, err)
	out, err := env.submitSvc.Submit(ctx, battle, u2.ID, "echo:1")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.resultSvc.Finalize(ctx, out.ResultID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)

	got, err := env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1016, got.Rating)
}

func TestForceFinalizeForfeit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)

	_, err := env.submitSvc.Submit(ctx, battle, u2.ID, "echo:1")
	require.NoError(t, err)

	fin, err := env.resultSvc.ForceFinalize(ctx, battle.ID)
	require.NoError(t, err)
	assert.Equal(t, u2.ID, *fin.Result.WinnerID)
	require.Len(t, fin.Evaluations, 2)
	assert.Equal(t, u1.ID, fin.Evaluations[0].UserID)
	assert.Zero(t, fin.Evaluations[0].Correctness)

	var cnt int64
	require.NoError(t, env.db.Model(&entity.BattleEvaluation{}).Where("result_id = ?", fin.Result.ID).Count(&cnt).Error)
	assert.EqualValues(t, 2, cnt)

	// 结算后迟到的提交被拒绝
	_, err = env.submitSvc.Submit(ctx, battle, u1.ID, "identity")
	require.ErrorIs(t, err, ErrInvalidState)
}
