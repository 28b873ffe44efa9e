package ioc

import (
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/cmd/cronjob/config"
	commonconfig "github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/job"
	"github.com/to404hanga/online_judge_duel/job/reaper"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

const BattleReaperJobName = "对战超时处理"

type BattleReaperJob *job.JobConfig

func InitBattleReaper(battleSvc service.BattleService, orchestrator service.DuelOrchestrator, battleCfg commonconfig.BattleConfig, l logger.Logger) BattleReaperJob {
	var cfg config.BattleReaperConfig
	err := viper.UnmarshalKey(cfg.Key(), &cfg)
	if err != nil {
		log.Panicf("unmarshal battle reaper config fail, err: %v", err)
	}

	r := reaper.NewBattleReaper(battleSvc, orchestrator, l, time.Duration(battleCfg.GraceSeconds)*time.Second, cfg.BatchSize)
	return &job.JobConfig{
		Name:        BattleReaperJobName,
		CronExpr:    cfg.CronExpr,
		JobFunc:     r.RunReap,
		Description: "结算或取消截止时间已过、进程内计时器丢失的对战",
		Enabled:     cfg.Enabled,
		Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
	}
}
