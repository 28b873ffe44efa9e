package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

const battleMutexKey = "battle_mutex:%s"

// 仅当锁仍归当前持有者时删除
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockBusy = errors.New("lock busy")

// BattleLocker 对同一场对战的取消、结算、超时处理做跨进程串行化, 数据库状态检查仍是最终依据
type BattleLocker interface {
	// WithLock 持有对战锁执行 fn
	WithLock(ctx context.Context, battleID string, fn func(ctx context.Context) error) error
}

type RedisBattleLocker struct {
	rdb      redis.Cmdable
	log      logger.Logger
	ttl      time.Duration
	attempts uint
	delay    time.Duration
}

var _ BattleLocker = (*RedisBattleLocker)(nil)

func NewRedisBattleLocker(rdb redis.Cmdable, log logger.Logger) BattleLocker {
	return &RedisBattleLocker{
		rdb:      rdb,
		log:      log,
		ttl:      10 * time.Second,
		attempts: 50,
		delay:    100 * time.Millisecond,
	}
}

func (l *RedisBattleLocker) WithLock(ctx context.Context, battleID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf(battleMutexKey, battleID)
	token := uuid.NewString()

	err := retry.Do(func() error {
		ok, errInternal := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if errInternal != nil {
			return errInternal
		}
		if !ok {
			return errLockBusy
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(l.attempts),
		retry.Delay(l.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("WithLock failed at acquire %s: %w", key, err)
	}

	defer func() {
		errUnlock := retry.Do(func() error {
			return unlockScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err()
		}, retry.Attempts(3), retry.Delay(50*time.Millisecond))
		if errUnlock != nil {
			l.log.ErrorContext(ctx, "WithLock failed at release battle mutex",
				logger.String("key", key),
				logger.Error(errUnlock))
		}
	}()

	return fn(ctx)
}
