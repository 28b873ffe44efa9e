package gintool

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

var ErrOperatorMissing = errors.New("operator missing")

// GinContextToLoggerContext 将 Gin 上下文转换为 Logger 上下文
func GinContextToLoggerContext(c *gin.Context) context.Context {
	fields := make([]logger.Field, 0, 2)

	if requestID := c.GetString(constants.HeaderRequestIDKey); requestID != "" {
		fields = append(fields, logger.String("RequestID", requestID))
	}
	if subject := c.GetString(constants.ContextSubjectKey); subject != "" {
		fields = append(fields, logger.String("Subject", subject))
	}

	return logger.ContextWithFields(c.Request.Context(), fields...)
}

// ExtractOperator 从 Gin 上下文提取操作人, 由鉴权中间件写入
func ExtractOperator(c *gin.Context, p model.CommonParamInterface) error {
	subject := c.GetString(constants.ContextSubjectKey)
	if subject == "" {
		GinResponse(c, &Response{
			Code:    http.StatusUnauthorized,
			Message: "unauthorized",
		})
		return ErrOperatorMissing
	}
	p.SetOperator(subject)
	return nil
}
