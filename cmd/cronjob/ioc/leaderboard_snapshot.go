package ioc

import (
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/cmd/cronjob/config"
	commonconfig "github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/job"
	"github.com/to404hanga/online_judge_duel/job/snapshot"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/service/exporter/factory"
)

type LeaderboardSnapshotJob *job.JobConfig

func InitLeaderboardSnapshot(leaderboardSvc service.LeaderboardService, l logger.Logger) LeaderboardSnapshotJob {
	var cfg config.LeaderboardSnapshotConfig
	err := viper.UnmarshalKey(cfg.Key(), &cfg)
	if err != nil {
		log.Panicf("unmarshal leaderboard snapshot config fail, err: %v", err)
	}
	var lbCfg commonconfig.LeaderboardConfig
	if err = viper.UnmarshalKey(lbCfg.Key(), &lbCfg); err != nil {
		log.Panicf("unmarshal leaderboard config fail, err: %v", err)
	}

	s := snapshot.NewLeaderboardSnapshot(leaderboardSvc, l, lbCfg.ExportDir, factory.ExporterType(cfg.Format))
	return &job.JobConfig{
		Name:        "积分榜快照",
		CronExpr:    cfg.CronExpr,
		JobFunc:     s.RunSnapshot,
		Description: "重建积分榜缓存并导出快照文件",
		Enabled:     cfg.Enabled,
		Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
	}
}
