package ioc

import (
	"log"
	"net"
	"os"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/gateway"
	"github.com/to404hanga/online_judge_duel/pkg/gintool"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/web"
	"github.com/to404hanga/online_judge_duel/web/middleware"
)

func InitGinServer(
	l logger.Logger,
	verifier identity.Verifier,
	healthHandler *web.HealthHandler,
	problemHandler *web.ProblemHandler,
	userHandler *web.UserHandler,
	leaderboardHandler *web.LeaderboardHandler,
	gw *gateway.Gateway,
) *web.GinServer {
	var cfg config.GinConfig
	err := viper.UnmarshalKey(cfg.Key(), &cfg)
	if err != nil {
		log.Panicf("unmarshal gin config failed, err: %v", err)
	}

	// 优先使用环境变量中设置的服务端口
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	corsBuilder := middleware.NewCORSMiddlewareBuilder(
		cfg.AllowOrigins,
		cfg.AllowMethods,
		cfg.AllowHeaders,
		cfg.ExposeHeaders,
		cfg.AllowCredentials,
		time.Duration(cfg.MaxAge)*time.Second)
	authBuilder := middleware.NewAuthMiddlewareBuilder(verifier, l, []string{constants.DeleteUserPath})

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		corsBuilder.Build(),
		gintool.ContextMiddleware(),
		authBuilder.CheckToken(),
	)
	if cfg.EnablePprof {
		pprof.Register(engine)
	}
	engine.GET(constants.MetricsPath, gin.WrapH(promhttp.Handler()))

	healthHandler.Register(engine)
	problemHandler.Register(engine)
	userHandler.Register(engine)
	leaderboardHandler.Register(engine)
	gw.Register(engine)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Panicf("listen %s failed: %v", cfg.Addr, err)
	}
	return &web.GinServer{
		Engine:   engine,
		Listener: listener,
	}
}
