package model

// websocket 事件载荷

type ExchangeIDParam struct {
	Auth0ID string `json:"auth0Id" validate:"required"`
}

type CreateBattleInvitationParam struct {
	UserID string `json:"userId" validate:"required"`
}

type CancelBattleInvitationParam struct {
	UserID     string `json:"userId" validate:"required"`
	InviteCode string `json:"inviteCode" validate:"required,alphanum"`
}

type JoinBattleParam struct {
	UserID     string `json:"userId" validate:"required"`
	InviteCode string `json:"inviteCode" validate:"required,alphanum"`
}

type ReadyBattleParam struct {
	UserID   string `json:"userId" validate:"required"`
	BattleID string `json:"battleId" validate:"required"`
}

type CancelBattleParam struct {
	BattleID string `json:"battleId" validate:"required"`
}

type RunCodeParam struct {
	BattleID string `json:"battleId" validate:"required"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

type SubmitCodeParam struct {
	UserID    string `json:"userId" validate:"required"`
	BattleID  string `json:"battleId" validate:"required"`
	ProblemID string `json:"problemId" validate:"required"`
	Code      string `json:"code"`
}
