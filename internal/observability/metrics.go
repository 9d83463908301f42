// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PageCacheLookups counts response cache lookups by result (hit, miss, bypass).
	PageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})

	// FollowChanges counts follow graph mutations by action and outcome.
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_changes_total",
		Help: "Follow and unfollow operations by outcome",
	}, []string{"action", "outcome"})

	// PostsWritten counts created and edited posts.
	PostsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_posts_written_total",
		Help: "Posts created or edited",
	}, []string{"action"})

	// FeedQueryLatency records feed assembly latency by feed kind.
	FeedQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_feed_query_latency_seconds",
		Help:    "Feed assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// HomeworkPolls counts homework status polls by result.
	HomeworkPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_homework_polls_total",
		Help: "Homework status API polls by result",
	}, []string{"result"})
)

// TrackFeed returns a function that records feed latency when called (e.g. defer).
func TrackFeed(kind string) func() {
	start := time.Now()
	return func() {
		FeedQueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
