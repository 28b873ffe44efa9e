package web

import "github.com/prometheus/client_golang/prometheus"

var (
	getLeaderboardRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "leaderboard",
			Name:      "get_leaderboard_requests_total",
			Help:      "GetLeaderboard requests total.",
		},
		[]string{"code", "reason"},
	)
	getLeaderboardDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "leaderboard",
			Name:      "get_leaderboard_duration_seconds",
			Help:      "GetLeaderboard duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "reason"},
	)
	exportLeaderboardRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "leaderboard",
			Name:      "export_leaderboard_requests_total",
			Help:      "ExportLeaderboard requests total.",
		},
		[]string{"code", "reason"},
	)
	exportLeaderboardDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "leaderboard",
			Name:      "export_leaderboard_duration_seconds",
			Help:      "ExportLeaderboard duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		getLeaderboardRequestsTotal,
		getLeaderboardDurationSeconds,
		exportLeaderboardRequestsTotal,
		exportLeaderboardDurationSeconds,
	)
}
