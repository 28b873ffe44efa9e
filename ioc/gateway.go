package ioc

import (
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/gateway"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

func InitRedisNotifier(rdb redis.UniversalClient, hub *gateway.Hub, l logger.Logger) *gateway.RedisNotifier {
	return gateway.NewRedisNotifier(rdb, hub, l)
}

func InitNotifier(n *gateway.RedisNotifier) service.Notifier {
	return n
}

func InitGateway(hub *gateway.Hub, dispatcher *gateway.Dispatcher, verifier identity.Verifier, l logger.Logger) *gateway.Gateway {
	var cfg config.GinConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal gin config failed: %v", err)
	}
	return gateway.NewGateway(hub, dispatcher, verifier, cfg.AllowOrigins, l)
}
