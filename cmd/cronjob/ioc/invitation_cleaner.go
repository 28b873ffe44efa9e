package ioc

import (
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/cmd/cronjob/config"
	"github.com/to404hanga/online_judge_duel/job"
	"github.com/to404hanga/online_judge_duel/job/cleaner"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

type InvitationCleanerJob *job.JobConfig

func InitInvitationCleaner(battleSvc service.BattleService, l logger.Logger) InvitationCleanerJob {
	var cfg config.InvitationCleanerConfig
	err := viper.UnmarshalKey(cfg.Key(), &cfg)
	if err != nil {
		log.Panicf("unmarshal invitation cleaner config fail, err: %v", err)
	}
	if cfg.TimeRange <= 0 {
		cfg.TimeRange = 24
	}

	c := cleaner.NewInvitationCleaner(battleSvc, l, time.Duration(cfg.TimeRange)*time.Hour)
	return &job.JobConfig{
		Name:        "邀请清理",
		CronExpr:    cfg.CronExpr,
		JobFunc:     c.RunCleanup,
		Description: "清理长时间无人加入的邀请码",
		Enabled:     cfg.Enabled,
		Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
	}
}
