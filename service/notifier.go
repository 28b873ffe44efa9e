package service

import "context"

// Notifier 向房间(以邀请码为键)内的连接推送事件, exceptUserID 非空时跳过该用户
type Notifier interface {
	NotifyRoom(ctx context.Context, room, event string, data any, exceptUserID string) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyRoom(context.Context, string, string, any, string) error { return nil }

// NewNopNotifier 不推送任何事件, 供不持有连接的进程使用
func NewNopNotifier() Notifier {
	return nopNotifier{}
}
