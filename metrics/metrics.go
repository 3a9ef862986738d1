package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Outcomes of processPayment: Successful, Failed, TimedOut or Error.
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_payments_total",
			Help: "Payments by final outcome",
		},
		[]string{"state"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_stage_failures_total",
			Help: "Transactions aborted by a pipeline stage",
		},
		[]string{"stage"},
	)

	PollAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_poll_attempts_total",
			Help: "Status poll attempts by result",
		},
		[]string{"result"}, // terminal|pending|error
	)

	RemoteCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "momo_remote_call_seconds",
			Help:    "Latency of calls to the MoMo API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	registerOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PaymentsTotal)
		prometheus.MustRegister(StageFailures)
		prometheus.MustRegister(PollAttempts)
		prometheus.MustRegister(RemoteCallSeconds)
	})
}
