package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fleetd/services/fleet"
)

type metrics struct {
	sessionsRegistered *prometheus.CounterVec
	clones             *prometheus.CounterVec
	cloneDuration      prometheus.Histogram
	heartbeats         *prometheus.CounterVec
	accessDenied       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, nodes *fleet.NodePingRegistry) *metrics {
	f := promauto.With(reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Name:      "nodes_tracked",
		Help:      "Worker nodes currently held in the ping registry.",
	}, func() float64 { return float64(nodes.Len()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "fleetd",
		Name:      "nodes_evicted_total",
		Help:      "Node ping entries dropped for capacity.",
	}, func() float64 { return float64(nodes.Evicted()) })

	return &metrics{
		sessionsRegistered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetd",
			Name:      "sessions_registered_total",
			Help:      "VM sessions added to the registry, by entry point.",
		}, []string{"source"}),
		clones: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetd",
			Name:      "clones_total",
			Help:      "Snapshot clone requests, by outcome.",
		}, []string{"outcome"}),
		cloneDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetd",
			Name:      "clone_duration_seconds",
			Help:      "Wall time of snapshot clone requests.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		}),
		heartbeats: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetd",
			Name:      "heartbeats_total",
			Help:      "Node heartbeats received, by result.",
		}, []string{"result"}),
		accessDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetd",
			Name:      "access_denied_total",
			Help:      "Requests rejected by the IP allowlist.",
		}),
	}
}
