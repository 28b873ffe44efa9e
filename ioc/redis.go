package ioc

import (
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
)

func InitRedisClient() *redis.Client {
	var cfg config.RedisConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal redis config failed: %v", err)
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func InitRedis(client *redis.Client) redis.Cmdable {
	return client
}

// InitUniversalRedis pub/sub 需要完整客户端
func InitUniversalRedis(client *redis.Client) redis.UniversalClient {
	return client
}
