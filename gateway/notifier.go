package gateway

import (
	"context"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
	"github.com/to404hanga/online_judge_duel/service"
)

const RoomEventChannel = "duel:room_events"

// RedisNotifier 通过 Redis pub/sub 把房间事件扇出到所有实例
type RedisNotifier struct {
	rdb redis.UniversalClient
	hub *Hub
	log logger.Logger
}

var _ service.Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier hub 为 nil 时只发布不订阅, 供定时任务进程使用
func NewRedisNotifier(rdb redis.UniversalClient, hub *Hub, log logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb: rdb,
		hub: hub,
		log: log,
	}
}

func (n *RedisNotifier) NotifyRoom(ctx context.Context, room, event string, data any, exceptUserID string) error {
	raw, err := encodeData(data)
	if err != nil {
		return fmt.Errorf("NotifyRoom failed at encode data: %w", err)
	}
	payload, err := json.Marshal(&RoomMessage{
		Room:   room,
		Event:  event,
		Data:   raw,
		Except: exceptUserID,
	})
	if err != nil {
		return fmt.Errorf("NotifyRoom failed at encode message: %w", err)
	}
	if err = n.rdb.Publish(ctx, RoomEventChannel, payload).Err(); err != nil {
		return fmt.Errorf("NotifyRoom failed at publish: %w", err)
	}
	return nil
}

// Run 订阅房间事件并投递给本实例的连接, 直到 ctx 结束; ready 在订阅生效后关闭
func (n *RedisNotifier) Run(ctx context.Context, ready chan<- struct{}) error {
	if n.hub == nil {
		return fmt.Errorf("Run failed: hub is nil")
	}
	sub := n.rdb.Subscribe(ctx, RoomEventChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("Run failed at subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	n.log.InfoContext(ctx, "room event subscription started", logger.String("channel", RoomEventChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rm RoomMessage
			if err := json.UnmarshalString(msg.Payload, &rm); err != nil {
				n.log.ErrorContext(ctx, "decode room event failed", logger.Error(err))
				continue
			}
			n.hub.Deliver(&rm)
		}
	}
}
