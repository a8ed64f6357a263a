// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchbay_dispatch_total",
			Help: "Routed operations by target backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	healthProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchbay_health_probe_total",
			Help: "Real health probes by backend and result (cached reuses excluded)",
		},
		[]string{"backend", "result"},
	)

	backendHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "patchbay_backend_healthy",
			Help: "Last probed health per backend (1 healthy, 0 unhealthy)",
		},
		[]string{"backend"},
	)

	backendRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchbay_backend_recoveries_total",
			Help: "Unhealthy-to-healthy transitions per backend",
		},
		[]string{"backend"},
	)

	healthCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "patchbay_health_cache_entries",
			Help: "Entries in the health probe cache after the last sweep",
		},
	)
)

func recordDispatch(tag backend.Tag, outcome string) {
	dispatchTotal.WithLabelValues(string(tag), outcome).Inc()
}

func recordProbe(tag backend.Tag, healthy bool) {
	result := "failure"
	gauge := 0.0
	if healthy {
		result = "success"
		gauge = 1.0
	}
	healthProbeTotal.WithLabelValues(string(tag), result).Inc()
	backendHealthy.WithLabelValues(string(tag)).Set(gauge)
}

func recordRecovery(tag backend.Tag) {
	backendRecoveries.WithLabelValues(string(tag)).Inc()
}

func recordCacheSize(n int) {
	healthCacheSize.Set(float64(n))
}
