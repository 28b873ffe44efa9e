package model

type DeleteUserParam struct {
	CommonParam `json:"-"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
	Rating   int    `json:"rating"`
}

type GetLeaderboardParam struct {
	Page     int `form:"page" binding:"required,min=1"`
	PageSize int `form:"page_size" binding:"required,min=10,max=100"`
}

type GetLeaderboardResponse struct {
	List     []LeaderboardEntry `json:"list"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

type ExportLeaderboardParam struct {
	SecretKey string `header:"X-Secret-Key" binding:"required"`
	Format    string `form:"format" binding:"required,oneof=csv xlsx"`
}
