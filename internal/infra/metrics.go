// README: Prometheus metrics for boardings, top-ups and bike rentals.
package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Boardings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "route",
	Name:      "boardings_total",
	Help:      "Boardings by route kind and outcome (charged, transfer, rejected reason).",
}, []string{"kind", "outcome"})

var FareRevenue = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "route",
	Name:      "revenue_pesos_total",
	Help:      "Amount charged on boardings, by fare policy.",
}, []string{"policy"})

var TopUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "card",
	Name:      "topups_total",
	Help:      "Card top-ups by outcome.",
}, []string{"outcome"})

var BikeCheckouts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "bike",
	Name:      "checkouts_total",
	Help:      "Bike checkouts by outcome.",
}, []string{"outcome"})

var BikeFines = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "bike",
	Name:      "fines_total",
	Help:      "Fines issued on late bike returns.",
})
