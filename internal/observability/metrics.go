package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Like outcomes recorded on likes_total.
const (
	LikeOutcomeLiked     = "liked"
	LikeOutcomeMatched   = "matched"
	LikeOutcomeDuplicate = "duplicate"
	LikeOutcomeFailed    = "failed"
)

var (
	// LikesTotal counts like attempts by outcome.
	LikesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_total",
			Help: "Like attempts by outcome (liked, matched, duplicate, failed).",
		},
		[]string{"outcome"},
	)

	// MatchesCreated counts newly written match rows. Converging onto an
	// existing match does not increment it.
	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_created_total",
			Help: "Number of match rows created.",
		},
	)

	// MessagesSent counts persisted chat messages.
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Number of chat messages persisted.",
		},
	)

	// RealtimeConnections gauges open websocket sessions on this instance.
	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Current number of open realtime websocket connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(LikesTotal, MatchesCreated, MessagesSent, RealtimeConnections)
}
