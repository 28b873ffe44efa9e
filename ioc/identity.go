package ioc

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
)

func InitVerifier(rdb redis.Cmdable) identity.Verifier {
	var cfg config.IdentityConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal identity config failed: %v", err)
	}
	key := cfg.Secret
	if cfg.Algorithm == "RS256" {
		key = cfg.PublicKey
	}
	ttl := time.Duration(cfg.RevokeTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	v, err := identity.NewJWTVerifier(rdb, cfg.Algorithm, key, cfg.Issuer, cfg.Audience, ttl)
	if err != nil {
		log.Panicf("init identity verifier failed: %v", err)
	}
	return v
}

func InitIdentityProvider() identity.Provider {
	var cfg config.IdentityProviderConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal identity provider config failed: %v", err)
	}
	return identity.NewManagementClient(cfg.Domain, cfg.ClientID, cfg.ClientSecret, cfg.Audience,
		time.Duration(cfg.Timeout)*time.Millisecond)
}
