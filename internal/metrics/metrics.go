package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maarifa_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maarifa_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Inbox metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_messages_sent_total",
			Help: "Total self-authored messages appended",
		},
	)

	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_messages_received_total",
			Help: "Total counterpart messages appended",
		},
	)

	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_conversations_started_total",
			Help: "Total conversations started at runtime",
		},
	)

	UnreadMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maarifa_unread_messages",
			Help: "Unread messages across all conversations",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_session_events_dropped_total",
			Help: "Session events dropped for slow subscribers",
		},
	)

	// Reply simulator metrics
	RepliesScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_replies_scheduled_total",
			Help: "Total simulated replies scheduled",
		},
	)

	RepliesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_replies_delivered_total",
			Help: "Total simulated replies delivered",
		},
	)

	RepliesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maarifa_replies_failed_total",
			Help: "Simulated replies whose delivery was rejected",
		},
	)

	RepliesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maarifa_replies_pending",
			Help: "Simulated replies waiting to fire",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maarifa_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maarifa_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RosterLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maarifa_roster_load_seconds",
			Help:    "Time to load the roster from its source",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"source"},
	)
)
