package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/gintool"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

type UserHandler struct {
	orchestrator service.DuelOrchestrator
	log          logger.Logger
}

var _ Handler = (*UserHandler)(nil)

func NewUserHandler(orchestrator service.DuelOrchestrator, log logger.Logger) *UserHandler {
	return &UserHandler{
		orchestrator: orchestrator,
		log:          log,
	}
}

func (h *UserHandler) Register(r *gin.Engine) {
	r.DELETE(constants.DeleteUserPath, gintool.WrapAuthWithoutBodyHandler(h.DeleteUser, h.log))
}

// DeleteUser 注销当前用户
func (h *UserHandler) DeleteUser(c *gin.Context, param *model.DeleteUserParam) {
	start, code, reason := time.Now(), http.StatusOK, "success"
	defer observe(deleteUserRequestsTotal, deleteUserDurationSeconds, start, &code, &reason)

	err := h.orchestrator.RemoveUser(c.Request.Context(), param.Operator)
	if err != nil {
		code, reason = http.StatusInternalServerError, "remove user failed"
		if errors.Is(err, service.ErrNotFound) {
			code, reason = http.StatusNotFound, "user not found"
		}
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: err.Error(),
		})
		h.log.ErrorContext(c.Request.Context(), "DeleteUser failed", logger.Error(err))
		return
	}

	gintool.GinResponse(c, &gintool.Response{
		Code:    http.StatusOK,
		Message: "success",
	})
}
