package web

import "github.com/prometheus/client_golang/prometheus"

var (
	createProblemRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "problem",
			Name:      "create_problem_requests_total",
			Help:      "CreateProblem requests total.",
		},
		[]string{"code", "reason"},
	)
	createProblemDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "problem",
			Name:      "create_problem_duration_seconds",
			Help:      "CreateProblem duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		createProblemRequestsTotal,
		createProblemDurationSeconds,
	)
}
