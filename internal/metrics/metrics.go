package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Front-end metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pondok_commands_total",
			Help: "Session commands issued, by command and result",
		},
		[]string{"command", "result"},
	)

	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pondok_polls_total",
			Help: "Reconciliation polls, by result (applied, stale, failed)",
		},
		[]string{"result"},
	)

	// Agent metrics
	AgentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pondok_agent_requests_total",
			Help: "HTTP requests served by the agent API",
		},
		[]string{"route", "code"},
	)

	TrackedSecondsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pondok_tracked_seconds_total",
			Help: "Seconds of tracked session time, by category (productive, neutral, unproductive, idle)",
		},
		[]string{"category"},
	)

	SyncBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pondok_sync_batches_total",
			Help: "Activity batches sent to the remote API, by result",
		},
		[]string{"result"},
	)

	PendingActivities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pondok_pending_activities",
			Help: "Activities queued locally waiting for a successful sync",
		},
	)
)

// Result labels
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
	ResultIllegal   = "illegal"
	ResultInvalid   = "invalid"
	ResultApplied   = "applied"
	ResultStale     = "stale"
	ResultTransient = "transient"
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		PollsTotal,
		AgentRequestsTotal,
		TrackedSecondsTotal,
		SyncBatchesTotal,
		PendingActivities,
	)
}
