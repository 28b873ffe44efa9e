package ioc

import (
	"log"

	"github.com/to404hanga/online_judge_duel/job"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func InitScheduler(l logger.Logger, reaperJob BattleReaperJob, cleanerJob InvitationCleanerJob, snapshotJob LeaderboardSnapshotJob) *job.CronScheduler {
	scheduler := job.NewCronScheduler(l)

	for _, cfg := range []*job.JobConfig{reaperJob, cleanerJob, snapshotJob} {
		if !cfg.Enabled {
			l.Info("job disabled", logger.String("name", cfg.Name))
			continue
		}
		if err := scheduler.AddJob(cfg); err != nil {
			log.Panicf("add job %s failed: %v", cfg.Name, err)
		}
	}
	return scheduler
}
