package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

type AuthMiddlewareBuilder struct {
	verifier  identity.Verifier
	log       logger.Logger
	authPaths []string
}

func NewAuthMiddlewareBuilder(verifier identity.Verifier, log logger.Logger, authPaths []string) *AuthMiddlewareBuilder {
	return &AuthMiddlewareBuilder{
		verifier:  verifier,
		log:       log,
		authPaths: authPaths,
	}
}

// CheckToken 校验访问令牌, 通过后把 subject 写入上下文
func (m *AuthMiddlewareBuilder) CheckToken() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		flag := false
		for _, p := range m.authPaths {
			if strings.HasPrefix(path, p) {
				flag = true
				break
			}
		}
		if !flag {
			ctx.Next()
			return
		}

		id, err := m.verifier.VerifyBearer(ctx.Request.Context(), identity.TokenFromRequest(ctx.Request))
		if err != nil {
			m.log.WarnContext(ctx.Request.Context(), "CheckToken failed", logger.Error(err))
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ctx.Set(constants.ContextSubjectKey, id.Subject)
		ctx.Next()
	}
}
