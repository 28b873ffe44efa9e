package ioc

import (
	"log"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/web"
)

func initProblemConfig() config.ProblemConfig {
	var cfg config.ProblemConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal problem config failed: %v", err)
	}
	return cfg
}

func InitProblemHandler(problemSvc service.ProblemService, l logger.Logger) *web.ProblemHandler {
	return web.NewProblemHandler(problemSvc, initProblemConfig().SecretKeyHash, l)
}

// InitLeaderboardHandler 导出接口与题库录入共用同一共享密钥
func InitLeaderboardHandler(leaderboardSvc service.LeaderboardService, l logger.Logger) *web.LeaderboardHandler {
	return web.NewLeaderboardHandler(leaderboardSvc, initProblemConfig().SecretKeyHash, l)
}
