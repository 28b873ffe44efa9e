package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/gintool"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
	"github.com/to404hanga/online_judge_duel/service/exporter/factory"
)

type LeaderboardHandler struct {
	leaderboardSvc service.LeaderboardService
	secretKeyHash  []byte
	log            logger.Logger
}

var _ Handler = (*LeaderboardHandler)(nil)

func NewLeaderboardHandler(leaderboardSvc service.LeaderboardService, secretKeyHash string, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardSvc: leaderboardSvc,
		secretKeyHash:  []byte(secretKeyHash),
		log:            log,
	}
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	r.GET(constants.GetLeaderboardPath, gintool.WrapWithoutBodyHandler(h.GetLeaderboard, h.log))
	r.GET(constants.ExportLeaderboardPath, gintool.WrapWithoutBodyHandler(h.ExportLeaderboard, h.log))
}

// GetLeaderboard 分页获取积分榜
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context, param *model.GetLeaderboardParam) {
	start, code, reason := time.Now(), http.StatusOK, "success"
	defer observe(getLeaderboardRequestsTotal, getLeaderboardDurationSeconds, start, &code, &reason)

	list, total, err := h.leaderboardSvc.GetLeaderboard(c.Request.Context(), param.Page, param.PageSize)
	if err != nil {
		code, reason = http.StatusInternalServerError, "get leaderboard failed"
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: fmt.Sprintf("GetLeaderboard failed: %s", err.Error()),
		})
		h.log.ErrorContext(c.Request.Context(), "GetLeaderboard failed", logger.Error(err))
		return
	}
	if list == nil {
		list = []model.LeaderboardEntry{}
	}

	gintool.GinResponse(c, &gintool.Response{
		Code:    http.StatusOK,
		Message: "success",
		Data: model.GetLeaderboardResponse{
			List:     list,
			Total:    total,
			Page:     param.Page,
			PageSize: param.PageSize,
		},
	})
}

// ExportLeaderboard 导出积分榜文件
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context, param *model.ExportLeaderboardParam) {
	start, code, reason := time.Now(), http.StatusOK, "success"
	defer observe(exportLeaderboardRequestsTotal, exportLeaderboardDurationSeconds, start, &code, &reason)

	if !checkSecret(h.secretKeyHash, param.SecretKey) {
		code, reason = http.StatusForbidden, "forbidden"
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: "invalid secret key",
		})
		h.log.WarnContext(c.Request.Context(), "ExportLeaderboard rejected, secret key mismatch")
		return
	}

	exporterType := factory.ExporterType(param.Format)
	contentType, ok := factory.ExporterContentTypeMap[exporterType]
	if !ok {
		code, reason = http.StatusBadRequest, "unsupported format"
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: fmt.Sprintf("unsupported format %q", param.Format),
		})
		return
	}

	filename := fmt.Sprintf("leaderboard_%s.%s", time.Now().Format("20060102150405"), param.Format)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	// 响应头已写出, 失败时只能记录日志
	if err := h.leaderboardSvc.Export(c.Request.Context(), exporterType, c.Writer); err != nil {
		code, reason = http.StatusInternalServerError, "export failed"
		h.log.ErrorContext(c.Request.Context(), "ExportLeaderboard failed", logger.Error(err))
	}
}
