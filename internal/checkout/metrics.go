package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes reported by Submissions.
const (
	outcomePlaced   = "placed"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
)

// Submissions counts checkout attempts by outcome.
var Submissions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_submissions_total",
		Help: "Total number of checkout submissions by outcome.",
	},
	[]string{"outcome"},
)
