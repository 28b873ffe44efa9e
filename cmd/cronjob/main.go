package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/cmd/cronjob/ioc"
)

const defaultConfigPath = "./config/config.yaml"

func main() {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		log.Panicf("load location failed: %v", err)
	}
	time.Local = loc

	_ = godotenv.Load()

	cfile := pflag.String("config", defaultConfigPath, "config file path")
	pflag.Parse()

	viper.SetConfigFile(*cfile)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Panicf("read config file failed: %v", err)
	}

	app := InitScheduler()
	if err := app.Start(); err != nil {
		log.Panicf("cron job scheduler failed: %v", err)
	}

	log.Println("cron job scheduler started")

	// 启动时补偿停机期间错过的截止时间
	if err := app.RunJobOnce(ioc.BattleReaperJobName); err != nil {
		log.Printf("run battle reaper once failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	app.Stop()
}
