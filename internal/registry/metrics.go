package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "battlebrains",
		Name:      "rooms_active",
		Help:      "Number of rooms currently registered.",
	})

	roomsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "battlebrains",
		Name:      "rooms_created_total",
		Help:      "Total rooms created, by game mode.",
	}, []string{"mode"})
)
