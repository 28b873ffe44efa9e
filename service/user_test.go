package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/entity"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
)

func TestResolveCreatesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := env.userSvc.Resolve(ctx, "auth0|same", nil)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[u.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 1)

	var cnt int64
	require.NoError(t, env.db.Model(&entity.User{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)

	score, err := env.rdb.ZScore(ctx, LeaderboardKey, func() string {
		for id := range ids {
			return id
		}
		return ""
	}()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1000, score)
}

func TestResolveRejectsRevoked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.verifier.Revoke(ctx, "auth0|gone"))

	_, err := env.userSvc.Resolve(ctx, "auth0|gone", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, identity.ErrRevoked)
}

func TestUpdateRatingMissingUser(t *testing.T) {
	env := newTestEnv(t)
	err := env.userSvc.UpdateRating(context.Background(), nil, "missing", 1200)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	u2 := env.createUser(t, "auth0|u2", 1000)
	env.createProblem(t, 1, threeCases()...)
	battle := env.startBattle(t, u1, u2)
	_, err := env.submitSvc.Submit(ctx, battle, u1.ID, "identity")
	require.NoError(t, err)
	require.NoError(t, env.leaderboard.UpdateRating(ctx, u1.ID, 1000))

	require.NoError(t, env.userSvc.Remove(ctx, "auth0|u1"))
	assert.Equal(t, []string{"auth0|u1"}, env.provider.deleted)

	_, err = env.userSvc.GetUserByID(ctx, u1.ID)
	require.ErrorIs(t, err, ErrNotFound)
	for _, m := range []any{&entity.Submission{}, &entity.BattleEvaluation{}, &entity.BattleMembership{}} {
		var cnt int64
		require.NoError(t, env.db.Model(m).Where("user_id = ?", u1.ID).Count(&cnt).Error)
		assert.Zero(t, cnt)
	}
	var results int64
	require.NoError(t, env.db.Model(&entity.SubmissionTestResult{}).Count(&results).Error)
	assert.Zero(t, results)

	_, err = env.verifier.DecodeAssertion(ctx, "auth0|u1")
	require.ErrorIs(t, err, identity.ErrRevoked)

	_, err = env.rdb.ZScore(ctx, LeaderboardKey, u1.ID).Result()
	require.Error(t, err)
}

func TestRemoveUserProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "auth0|u1", 1000)
	env.provider.err = errors.New("provider down")

	err := env.userSvc.Remove(ctx, "auth0|u1")
	require.Error(t, err)

	_, err = env.userSvc.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
}
