package ioc

import (
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/gateway"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/runner"
	"github.com/to404hanga/online_judge_duel/service"
)

// 定时任务进程只做结算与清理, 不运行代码、不校验令牌、不持有计时器

func InitNilCodeRunner() runner.CodeRunner {
	return nil
}

func InitNilVerifier() identity.Verifier {
	return nil
}

func InitNilIdentityProvider() identity.Provider {
	return nil
}

func InitNilDeadlineScheduler() service.DeadlineScheduler {
	return nil
}

// InitPublishNotifier 只发布房间事件, 由持有连接的实例投递
func InitPublishNotifier(rdb redis.UniversalClient, l logger.Logger) service.Notifier {
	return gateway.NewRedisNotifier(rdb, nil, l)
}
