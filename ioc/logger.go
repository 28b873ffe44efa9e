package ioc

import (
	"log"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func InitLogger() logger.Logger {
	var cfg config.LogConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal log config failed: %v", err)
	}
	l, err := logger.NewProductionLogger(cfg.Level, logger.String("service", constants.ServiceName))
	if err != nil {
		log.Panicf("init logger failed: %v", err)
	}
	return l
}
