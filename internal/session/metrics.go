package session

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipeld",
		Subsystem: "session",
		Name:      "active",
		Help:      "Whether a streaming session is currently active (0 or 1)",
	})

	endpointRestartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pipeld",
		Subsystem: "session",
		Name:      "endpoint_restarts_total",
		Help:      "Total streaming endpoint relaunches after unexpected exits",
	})

	idleShutdownsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pipeld",
		Subsystem: "session",
		Name:      "idle_shutdowns_total",
		Help:      "Total sessions stopped by the idle-timeout policy",
	})

	pairingAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeld",
		Subsystem: "session",
		Name:      "pairing_attempts_total",
		Help:      "Total pairing PIN submissions by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(sessionsActive, endpointRestartsTotal, idleShutdownsTotal, pairingAttemptsTotal)
}
