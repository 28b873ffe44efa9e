package model

import "time"

type UserResponse struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
	Rating   int    `json:"rating"`
}

type InvitationResponse struct {
	InviteCode string    `json:"inviteCode"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type BattlePlayer struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Picture   string `json:"picture"`
	Rating    int    `json:"rating"`
	Ready     bool   `json:"ready"`
	JoinOrder int    `json:"joinOrder"`
}

type BattleResponse struct {
	ID         string           `json:"id"`
	InviteCode string           `json:"inviteCode"`
	ProblemID  string           `json:"problemId"`
	StartTime  time.Time        `json:"startTime"`
	EndTime    time.Time        `json:"endTime"`
	Status     string           `json:"status"`
	Finished   bool             `json:"finished"`
	Users      []BattlePlayer   `json:"users"`
	Problem    *ProblemResponse `json:"problem,omitempty"`
}

type BattleEnvelope struct {
	Battle *BattleResponse `json:"battle"`
}

type JoinBattleResponse struct {
	Event   string
	Room    string
	Battle  *BattleResponse
	Message string
}

type ReadyBattleResponse struct {
	Event  string
	Battle *BattleResponse
}

type BattleCancelledPayload struct {
	BattleID string `json:"battleId"`
}

type InvitationCancelledPayload struct {
	InviteCode string `json:"inviteCode"`
}

type RunCodeResponse struct {
	Type   string `json:"type"`
	Output string `json:"output"`
}

type TestCaseResponse struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type SubmissionTestResponse struct {
	Output      string           `json:"output"`
	OutputType  string           `json:"outputType"`
	Performance int64            `json:"performance"`
	TestCase    TestCaseResponse `json:"testCase"`
}

type SubmitCodeResponse struct {
	Code    string                   `json:"code"`
	Tests   []SubmissionTestResponse `json:"tests"`
	Problem *ProblemReviewResponse   `json:"problem"`
}

type EvaluationResponse struct {
	UserID      string `json:"userId"`
	Correctness int    `json:"correctness"`
	Performance int64  `json:"performance"`
	Time        int64  `json:"time"`
}

type PlayerRatingResponse struct {
	UserID    string `json:"userId"`
	OldRating int    `json:"oldRating"`
	NewRating int    `json:"newRating"`
}

type BattleResultResponse struct {
	ID          string                 `json:"id"`
	BattleID    string                 `json:"battleId"`
	WinnerID    string                 `json:"winnerId"`
	IsDraw      bool                   `json:"isDraw"`
	Score       int                    `json:"score"`
	Evaluations []EvaluationResponse   `json:"evaluations"`
	Players     []PlayerRatingResponse `json:"players"`
}

type BattleFinishedPayload struct {
	BattleResult *BattleResultResponse `json:"battleResult"`
}
