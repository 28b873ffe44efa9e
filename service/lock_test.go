package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func TestBattleLockerSerializes(t *testing.T) {
	rdb, _ := newTestRedis(t)
	locker := NewRedisBattleLocker(rdb, logger.NewNopLogger())

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "b1", func(context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxSeen.Load())
}

func TestBattleLockerReleases(t *testing.T) {
	rdb, mr := newTestRedis(t)
	locker := NewRedisBattleLocker(rdb, logger.NewNopLogger())

	require.NoError(t, locker.WithLock(context.Background(), "b1", func(context.Context) error { return nil }))
	assert.False(t, mr.Exists("battle_mutex:b1"))
}

func TestBattleLockerGivesUp(t *testing.T) {
	rdb, mr := newTestRedis(t)
	require.NoError(t, mr.Set("battle_mutex:b1", "someone-else"))
	locker := &RedisBattleLocker{rdb: rdb, log: logger.NewNopLogger(), ttl: time.Second, attempts: 2, delay: time.Millisecond}

	called := false
	err := locker.WithLock(context.Background(), "b1", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	// 他人持有的锁不会被误删
	assert.True(t, mr.Exists("battle_mutex:b1"))
}
