package ioc

import (
	"log"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

func InitBattleConfig() config.BattleConfig {
	cfg := config.DefaultBattleConfig()
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal battle config failed: %v", err)
	}
	return cfg
}

func InitInviteCodeIssuer(cfg config.BattleConfig) service.InviteCodeIssuer {
	return service.NewInviteCodeIssuer(cfg.InviteCode)
}

func InitDeadlineScheduler(l logger.Logger) service.DeadlineScheduler {
	s, err := service.NewGocronDeadlineScheduler(l)
	if err != nil {
		log.Panicf("init deadline scheduler failed: %v", err)
	}
	return s
}
