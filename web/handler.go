package web

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Handler interface {
	Register(r *gin.Engine)
}

// observe 记录一次请求的结果与耗时
func observe(counter *prometheus.CounterVec, histogram *prometheus.HistogramVec, start time.Time, code *int, reason *string) {
	labels := prometheus.Labels{"code": strconv.Itoa(*code), "reason": *reason}
	counter.With(labels).Inc()
	histogram.With(labels).Observe(time.Since(start).Seconds())
}
