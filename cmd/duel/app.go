package main

import (
	"context"
	"time"

	"github.com/to404hanga/online_judge_duel/event"
	"github.com/to404hanga/online_judge_duel/gateway"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/web"
)

type App struct {
	Server   *web.GinServer
	Gateway  *gateway.Gateway
	Notifier *gateway.RedisNotifier
	Deadline service.DeadlineScheduler
	Producer event.Producer
	Log      logger.Logger
}

// Run 阻塞直到 ctx 结束或服务异常退出
func (a *App) Run(ctx context.Context) error {
	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	go func() {
		if err := a.Notifier.Run(subCtx, nil); err != nil {
			a.Log.Error("room event subscription stopped", logger.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()
	a.Log.Info("duel server started", logger.String("addr", a.Server.Listener.Addr().String()))

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	a.shutdown()
	return err
}

func (a *App) shutdown() {
	a.Gateway.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Log.Error("shutdown gin server failed", logger.Error(err))
	}
	// 未触发的截止计时器由定时任务进程的 battle reaper 兜底
	if err := a.Deadline.Stop(); err != nil {
		a.Log.Error("stop deadline scheduler failed", logger.Error(err))
	}
	if err := a.Producer.Close(); err != nil {
		a.Log.Error("close kafka producer failed", logger.Error(err))
	}
	a.Log.Info("duel server stopped")
}
