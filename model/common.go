package model

// CommonParam 需要鉴权的 HTTP 请求参数, Operator 为访问令牌中的 subject
type CommonParam struct {
	Operator string
}

type CommonParamInterface interface {
	SetOperator(op string)
}

func (p *CommonParam) SetOperator(op string) {
	p.Operator = op
}

type MessagePayload struct {
	Message string `json:"message"`
}
