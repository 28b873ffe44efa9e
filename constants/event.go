package constants

// 客户端发往服务端的事件
const (
	EventExchangeID             = "exchangeId"
	EventCreateBattleInvitation = "createBattleInvitation"
	EventCancelBattleInvitation = "cancelBattleInvitation"
	EventJoinBattle             = "joinBattle"
	EventReadyBattle            = "readyBattle"
	EventCancelBattle           = "cancelBattle"
	EventRunCode                = "runCode"
	EventSubmitCode             = "submitCode"
)

// 服务端发往客户端的事件
const (
	EventIDExchanged               = "idExchanged"
	EventBattleInvitationCreated   = "battleInvitationCreated"
	EventBattleInvitationCancelled = "battleInvitationCancelled"
	EventBattleJoined              = "battleJoined"
	EventBattleRejoined            = "battleRejoined"
	EventBattleNotJoinable         = "battleNotJoinable"
	EventOpponentFound             = "opponentFound"
	EventOpponentRejoined          = "opponentRejoined"
	EventBattleStarted             = "battleStarted"
	EventWaitingForOpponent        = "waitingForOpponent"
	EventBattleCancelled           = "battleCancelled"
	EventCodeRan                   = "codeRan"
	EventOpponentRunCode           = "opponentRunCode"
	EventCodeSubmitted             = "codeSubmitted"
	EventBattleFinished            = "battleFinished"
	EventOpponentSubmittedCode     = "opponentSubmittedCode"
	EventSubmissionError           = "submissionError"
	EventError                     = "error"
)
