package constants

const (
	CreateProblemPath     = "/problems"           // 题库录入
	DeleteUserPath        = "/user"               // 注销当前用户
	GetLeaderboardPath    = "/leaderboard"        // 积分排行榜
	ExportLeaderboardPath = "/leaderboard/export" // 导出积分排行榜
	BattleWebsocketPath   = "/battle"             // 对战 websocket
	HealthPath            = "/health"
	MetricsPath           = "/metrics"
)
