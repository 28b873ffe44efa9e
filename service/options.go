package service

import "time"

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock 替换时间源, 测试使用
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
