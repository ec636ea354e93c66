package relay

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/whalevault/relayd/metrics"
)

// Metrics counts relay submissions by type and outcome.
type Metrics struct {
	RelaysTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("relay", "")
	return &Metrics{
		RelaysTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "relays_total",
			Help: "Relay submissions by type and outcome",
		}, []string{"type", "status"}),
	}
}
