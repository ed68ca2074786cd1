// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FriendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequency_friend_requests_total",
		Help: "Friend graph mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	PlaylistOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequency_playlist_ops_total",
		Help: "Playlist, membership and share mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	FeedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequency_feed_events_total",
		Help: "Change events published per table.",
	}, []string{"table"})

	FeedDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequency_feed_dropped_total",
		Help: "Change events dropped because a subscriber was not keeping up.",
	}, []string{"table"})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frequency_realtime_clients",
		Help: "Currently connected websocket clients.",
	})

	SnapshotDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frequency_snapshot_duration_seconds",
		Help:    "Time to rebuild a projection for one user.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"topic"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frequency_rate_limited_total",
		Help: "API requests rejected by the per-user rate limiter.",
	})
)

// Outcome maps an error to the outcome label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
