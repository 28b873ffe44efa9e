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
	"golang.org/x/crypto/bcrypt"
)

type ProblemHandler struct {
	problemSvc    service.ProblemService
	secretKeyHash []byte
	log           logger.Logger
}

var _ Handler = (*ProblemHandler)(nil)

func NewProblemHandler(problemSvc service.ProblemService, secretKeyHash string, log logger.Logger) *ProblemHandler {
	return &ProblemHandler{
		problemSvc:    problemSvc,
		secretKeyHash: []byte(secretKeyHash),
		log:           log,
	}
}

func (h *ProblemHandler) Register(r *gin.Engine) {
	r.POST(constants.CreateProblemPath, gintool.WrapHandler(h.CreateProblem, h.log))
}

// CreateProblem 题库录入, 需携带共享密钥
func (h *ProblemHandler) CreateProblem(c *gin.Context, param *model.CreateProblemParam) {
	start, code, reason := time.Now(), http.StatusOK, "success"
	defer observe(createProblemRequestsTotal, createProblemDurationSeconds, start, &code, &reason)

	if !checkSecret(h.secretKeyHash, param.SecretKey) {
		code, reason = http.StatusForbidden, "forbidden"
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: "invalid secret key",
		})
		h.log.WarnContext(c.Request.Context(), "CreateProblem rejected, secret key mismatch")
		return
	}

	problem, err := h.problemSvc.CreateProblem(c.Request.Context(), param)
	if err != nil {
		code, reason = http.StatusInternalServerError, "create problem failed"
		if errors.Is(err, service.ErrInvalidState) {
			code, reason = http.StatusBadRequest, "invalid param"
		}
		gintool.GinResponse(c, &gintool.Response{
			Code:    code,
			Message: err.Error(),
		})
		h.log.ErrorContext(c.Request.Context(), "CreateProblem failed", logger.Error(err))
		return
	}

	gintool.GinResponse(c, &gintool.Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    model.CreateProblemResponse{ID: problem.ID},
	})
}

// checkSecret 空哈希视为未开放
func checkSecret(hash []byte, secret string) bool {
	if len(hash) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}
