package web

import "github.com/prometheus/client_golang/prometheus"

var (
	deleteUserRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "user",
			Name:      "delete_user_requests_total",
			Help:      "DeleteUser requests total.",
		},
		[]string{"code", "reason"},
	)
	deleteUserDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "user",
			Name:      "delete_user_duration_seconds",
			Help:      "DeleteUser duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		deleteUserRequestsTotal,
		deleteUserDurationSeconds,
	)
}
