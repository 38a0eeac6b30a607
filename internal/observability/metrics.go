package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by board operations and upstream calls.
const (
	OutcomeOK             = "ok"
	OutcomeRejected       = "rejected"
	OutcomeTransportError = "transport_error"
)

var (
	boardOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activityboard",
		Subsystem: "board",
		Name:      "operations_total",
		Help:      "Loader, signup and removal outcomes as seen by the board.",
	}, []string{"operation", "outcome"})

	upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activityboard",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the Activities API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	rosterChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activityapi",
		Subsystem: "roster",
		Name:      "changes_total",
		Help:      "Signup and removal requests handled by the Activities API, by result.",
	}, []string{"operation", "result"})

	confirmationEmails = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activityapi",
		Subsystem: "email",
		Name:      "confirmations_total",
		Help:      "Signup confirmation emails by delivery result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(boardOperations, upstreamDuration, rosterChanges, confirmationEmails)
}

// RecordBoardOperation counts a completed load, signup or removal.
func RecordBoardOperation(operation, outcome string) {
	boardOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordUpstreamCall observes the latency of one Activities API call.
func RecordUpstreamCall(operation, outcome string, d time.Duration) {
	upstreamDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// RecordRosterChange counts a signup or removal handled by the API.
func RecordRosterChange(operation, result string) {
	rosterChanges.WithLabelValues(operation, result).Inc()
}

// RecordConfirmationEmail counts a confirmation email attempt.
func RecordConfirmationEmail(sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	confirmationEmails.WithLabelValues(result).Inc()
}
