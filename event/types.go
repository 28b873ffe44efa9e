package event

import (
	"time"

	json "github.com/bytedance/sonic"
)

const DuelResultTopic = "duel_result_topic"

// DuelResultMessage 对战结算完成后投递, 供下游统计使用
type DuelResultMessage struct {
	BattleID   string         `json:"battle_id"`
	ResultID   string         `json:"result_id"`
	WinnerID   string         `json:"winner_id"`
	IsDraw     bool           `json:"is_draw"`
	Score      int            `json:"score"`
	Players    []PlayerRating `json:"players"`
	FinishedAt time.Time      `json:"finished_at"`
}

type PlayerRating struct {
	UserID    string `json:"user_id"`
	OldRating int    `json:"old_rating"`
	NewRating int    `json:"new_rating"`
}

func (m *DuelResultMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
