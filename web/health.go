package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb redis.Cmdable
	log logger.Logger
}

var _ Handler = (*HealthHandler)(nil)

func NewHealthHandler(db *gorm.DB, rdb redis.Cmdable, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:  db,
		rdb: rdb,
		log: log,
	}
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET(constants.HealthPath, h.HealthCheck)
}

// HealthCheck 检查数据库与 Redis 连通性
func (h *HealthHandler) HealthCheck(ctx *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request.Context())
	}
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "health check failed at ping db", logger.Error(err))
		ctx.Status(http.StatusServiceUnavailable)
		return
	}
	if err = h.rdb.Ping(ctx.Request.Context()).Err(); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "health check failed at ping redis", logger.Error(err))
		ctx.Status(http.StatusServiceUnavailable)
		return
	}
	ctx.Status(http.StatusOK)
}
