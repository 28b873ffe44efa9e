package constants

const (
	HeaderRequestIDKey     = "X-Request-ID"
	HeaderAuthorizationKey = "Authorization"
	HeaderSecretKey        = "X-Secret-Key"
	QueryTokenKey          = "token"
)

const ServiceName = "OnlineJudge-Duel"

const (
	ContextSubjectKey = "X-Duel-Subject"
)
