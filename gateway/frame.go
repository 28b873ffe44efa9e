package gateway

import (
	stdjson "encoding/json"

	json "github.com/bytedance/sonic"
	"github.com/to404hanga/online_judge_duel/model"
)

// Frame 连接上收发的 JSON 帧
type Frame struct {
	Event string             `json:"event"`
	Data  stdjson.RawMessage `json:"data,omitempty"`
}

// RoomMessage 经 Redis 广播的房间事件, Except 为需要跳过的用户
type RoomMessage struct {
	Room   string             `json:"room"`
	Event  string             `json:"event"`
	Data   stdjson.RawMessage `json:"data,omitempty"`
	Except string             `json:"except,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Frame{Event: event, Data: raw})
}

func encodeData(data any) (stdjson.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func errorPayload(msg string) *model.MessagePayload {
	return &model.MessagePayload{Message: msg}
}
