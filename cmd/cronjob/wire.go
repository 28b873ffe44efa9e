//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/to404hanga/online_judge_duel/cmd/cronjob/ioc"
	commonioc "github.com/to404hanga/online_judge_duel/ioc"
	"github.com/to404hanga/online_judge_duel/job"
	"github.com/to404hanga/online_judge_duel/service"
)

func InitScheduler() *job.CronScheduler {
	wire.Build(
		commonioc.InitDB,
		commonioc.InitLogger,
		commonioc.InitRedisClient,
		commonioc.InitRedis,
		commonioc.InitUniversalRedis,
		commonioc.InitProducer,
		commonioc.InitBattleConfig,
		commonioc.InitRunnerConfig,
		commonioc.InitInviteCodeIssuer,
		ioc.InitNilCodeRunner,
		ioc.InitNilVerifier,
		ioc.InitNilIdentityProvider,
		ioc.InitNilDeadlineScheduler,
		ioc.InitPublishNotifier,

		service.NewProblemService,
		service.NewLeaderboardService,
		service.NewUserService,
		service.NewBattleService,
		commonioc.InitSubmissionService,
		service.NewResultService,
		service.NewRedisBattleLocker,
		service.NewDuelOrchestrator,

		ioc.InitBattleReaper,
		ioc.InitInvitationCleaner,
		ioc.InitLeaderboardSnapshot,
		ioc.InitScheduler,
	)
	return &job.CronScheduler{}
}
