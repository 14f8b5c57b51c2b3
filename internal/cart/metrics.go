package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Persistence operations reported by PersistenceFailures.
const (
	opLoad   = "load"
	opSave   = "save"
	opDelete = "delete"
)

// PersistenceFailures counts cart snapshot operations that failed. The
// failures never reach callers; this counter and the log are their only trace.
var PersistenceFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_persistence_failures_total",
		Help: "Total number of failed cart snapshot operations.",
	},
	[]string{"op"},
)

var queuedWrites = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "storefront_cart_queued_writes",
		Help: "Number of cart snapshot writes waiting for the writer.",
	},
)
