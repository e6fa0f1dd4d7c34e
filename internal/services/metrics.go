package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// cycleRuns counts fetch cycles by outcome (ok, fetch_error, anomaly,
	// identity_error, persist_error).
	cycleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coronabot_fetch_cycles_total",
			Help: "Fetch/reconcile/upsert cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// cycleRows records how many case records the last successful cycle wrote.
	cycleRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coronabot_fetch_cycle_rows",
			Help: "Case records written by the last successful cycle.",
		},
	)

	// deliveries counts notification sends by result (ok, error, blocked).
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coronabot_notifications_total",
			Help: "Scheduled report deliveries by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(cycleRuns, cycleRows, deliveries)
}
