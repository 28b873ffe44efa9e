package gintool

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/to404hanga/online_judge_duel/model"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

// gin 的多次 ShouldBindX 每次都会校验整个结构体, 因此在全部来源绑定完成后统一校验一次,
// 需配合 gin.DisableBindValidation 使用
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}()

func bind(c *gin.Context, param any, withBody bool, log logger.Logger, name string) bool {
	fail := func(step string, err error) bool {
		GinResponse(c, &Response{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		log.ErrorContext(c.Request.Context(), name+" bind "+step+" failed", logger.Error(err))
		return false
	}

	// 1) URI
	if len(c.Params) > 0 {
		if err := c.ShouldBindUri(param); err != nil {
			return fail("uri", err)
		}
	}

	// 2) Header
	if err := c.ShouldBindHeader(param); err != nil {
		return fail("header", err)
	}

	// 3) Query/Form
	if c.Request.URL != nil && c.Request.URL.RawQuery != "" {
		if err := c.ShouldBindQuery(param); err != nil {
			return fail("query", err)
		}
	}

	// 4) JSON
	if withBody {
		if err := c.ShouldBindJSON(param); err != nil {
			return fail("json", err)
		}
	}

	if err := validate.Struct(param); err != nil {
		return fail("validate", err)
	}
	return true
}

// WrapHandler 包装处理函数
func WrapHandler[T any](h func(c *gin.Context, param *T), log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		param := new(T)
		if !bind(c, param, true, log, "WrapHandler") {
			return
		}
		h(c, param)
	}
}

// WrapWithoutBodyHandler 包装处理函数, 不绑定JSON体
func WrapWithoutBodyHandler[T any](h func(c *gin.Context, param *T), log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		param := new(T)
		if !bind(c, param, false, log, "WrapWithoutBodyHandler") {
			return
		}
		h(c, param)
	}
}

// WrapAuthWithoutBodyHandler 包装需要鉴权的处理函数, 不绑定JSON体
func WrapAuthWithoutBodyHandler[T any, PT interface {
	*T
	model.CommonParamInterface
}](h func(c *gin.Context, param PT), log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		param := PT(new(T))
		if !bind(c, param, false, log, "WrapAuthWithoutBodyHandler") {
			return
		}
		if err := ExtractOperator(c, param); err != nil {
			log.ErrorContext(c.Request.Context(), "WrapAuthWithoutBodyHandler ExtractOperator failed", logger.Error(err))
			return
		}
		h(c, param)
	}
}
