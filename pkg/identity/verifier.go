package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/to404hanga/online_judge_duel/constants"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("subject revoked")
)

// Identity 外部身份, Subject 为身份提供方内的唯一标识
type Identity struct {
	Subject  string
	Nickname string
	Picture  string
}

type Verifier interface {
	// VerifyBearer 校验连接握手或 HTTP 请求携带的访问令牌
	VerifyBearer(ctx context.Context, token string) (*Identity, error)
	// DecodeAssertion 解析客户端上报的身份断言, 可以是 ID Token 或裸 subject
	DecodeAssertion(ctx context.Context, assertion string) (*Identity, error)
	// Revoke 使该 subject 已签发的令牌全部失效
	Revoke(ctx context.Context, subject string) error
}

// Provider 外部身份提供方
type Provider interface {
	// DeleteUser 在身份提供方处删除用户
	DeleteUser(ctx context.Context, subject string) error
}

// TokenFromRequest 取出请求携带的访问令牌, 优先 Authorization 头, 其次 ?token= 查询参数
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(constants.HeaderAuthorizationKey); token != "" {
		return token
	}
	return r.URL.Query().Get(constants.QueryTokenKey)
}
