package ioc

import (
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/pkg/runner"
	"github.com/to404hanga/online_judge_duel/service"
	"gorm.io/gorm"
)

func InitRunnerConfig() config.RunnerConfig {
	var cfg config.RunnerConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal runner config failed: %v", err)
	}
	return cfg
}

func InitCodeRunner(cfg config.RunnerConfig) runner.CodeRunner {
	return runner.NewHTTPRunner(cfg.BaseURL, time.Duration(cfg.Timeout)*time.Millisecond)
}

func InitSubmissionService(db *gorm.DB, codeRunner runner.CodeRunner, problemSvc service.ProblemService, l logger.Logger, battleCfg config.BattleConfig, runnerCfg config.RunnerConfig) service.SubmissionService {
	return service.NewSubmissionService(db, codeRunner, problemSvc, l, battleCfg, runnerCfg.Concurrency)
}
