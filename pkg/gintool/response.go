package gintool

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/to404hanga/online_judge_duel/constants"
)

type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id"`
}

// GinResponse 响应体中的 Code 同时作为 HTTP 状态码
func GinResponse(c *gin.Context, resp *Response) {
	resp.RequestID = c.GetString(constants.HeaderRequestIDKey)
	status := resp.Code
	if status < http.StatusContinue || status > 599 {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}
