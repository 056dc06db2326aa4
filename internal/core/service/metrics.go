package service

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepOrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: "scheduler",
		Name:      "sweep_orders_total",
		Help:      "Orders seen by allocation sweeps, partitioned by outcome.",
	}, []string{"outcome"})

	allocationsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "allocations_created_total",
		Help:      "Allocation records created.",
	})

	allocationShortagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "allocation_shortages_total",
		Help:      "Allocations that could not be fully filled.",
	})

	ordersRevertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Name:      "orders_reverted_total",
		Help:      "Orders whose allocations were reverted back into stock.",
	})
)

func init() {
	prometheus.MustRegister(sweepOrdersTotal, allocationsCreatedTotal, allocationShortagesTotal, ordersRevertedTotal)
}
