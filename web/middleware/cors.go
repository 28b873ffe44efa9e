package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
)

type CORSMiddlewareBuilder struct {
	cfg cors.Config
}

func NewCORSMiddlewareBuilder(allowOrigins, allowMethods, allowHeaders, exposeHeaders []string, allowCredentials bool, maxAge time.Duration) *CORSMiddlewareBuilder {
	cfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
	}
	if len(allowMethods) > 0 {
		cfg.AllowMethods = allowMethods
	}
	if len(allowHeaders) > 0 {
		cfg.AllowHeaders = allowHeaders
	}
	// 鉴权、追踪和题库密钥头始终放行
	cfg.AddAllowHeaders(constants.HeaderAuthorizationKey, constants.HeaderRequestIDKey, constants.HeaderSecretKey)
	cfg.ExposeHeaders = exposeHeaders
	cfg.AddExposeHeaders(constants.HeaderRequestIDKey)
	cfg.AllowCredentials = allowCredentials && !cfg.AllowAllOrigins
	if maxAge > 0 {
		cfg.MaxAge = maxAge
	}
	return &CORSMiddlewareBuilder{cfg: cfg}
}

func (b *CORSMiddlewareBuilder) Build() gin.HandlerFunc {
	return cors.New(b.cfg)
}
