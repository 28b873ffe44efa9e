//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/to404hanga/online_judge_duel/cmd/duel/ioc"
	"github.com/to404hanga/online_judge_duel/gateway"
	commonioc "github.com/to404hanga/online_judge_duel/ioc"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/web"
)

func InitApp() *App {
	wire.Build(
		commonioc.InitDB,
		commonioc.InitLogger,
		commonioc.InitRedisClient,
		commonioc.InitRedis,
		commonioc.InitUniversalRedis,
		commonioc.InitProducer,
		commonioc.InitVerifier,
		commonioc.InitIdentityProvider,
		commonioc.InitBattleConfig,
		commonioc.InitRunnerConfig,
		commonioc.InitCodeRunner,
		commonioc.InitInviteCodeIssuer,
		commonioc.InitDeadlineScheduler,

		service.NewProblemService,
		service.NewLeaderboardService,
		service.NewUserService,
		service.NewBattleService,
		commonioc.InitSubmissionService,
		service.NewResultService,
		service.NewRedisBattleLocker,
		service.NewDuelOrchestrator,

		gateway.NewHub,
		commonioc.InitRedisNotifier,
		commonioc.InitNotifier,
		gateway.NewDispatcher,
		commonioc.InitGateway,

		web.NewHealthHandler,
		commonioc.InitProblemHandler,
		web.NewUserHandler,
		commonioc.InitLeaderboardHandler,

		ioc.InitGinServer,
		wire.Struct(new(App), "*"),
	)
	return &App{}
}
