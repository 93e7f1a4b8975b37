package filter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// filterRuns tracks calls to FilterOffers.
	filterRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offer_filter_runs_total",
		Help: "Total number of offer filter runs",
	})

	// filteredRows tracks rows by filter outcome.
	filteredRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_filter_rows_total",
		Help: "Total number of rows processed by the offer filter by outcome",
	}, []string{"outcome"}) // outcome: kept, hidden, excluded

	// hiddenMatches tracks which matching step hid a row.
	hiddenMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_filter_hidden_matches_total",
		Help: "Total number of rows hidden by hidden-group rules by match kind",
	}, []string{"kind"}) // kind: exact, token, word, substring

	// droppedPredicates tracks predicates referencing unknown columns.
	droppedPredicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offer_filter_dropped_predicates_total",
		Help: "Total number of predicates dropped because their field is not a known column",
	})

	// predicatePanics tracks evaluation panics that were treated as a pass.
	predicatePanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offer_filter_predicate_panics_total",
		Help: "Total number of predicate evaluations that panicked and passed",
	})

	// hiddenPanics tracks hidden-group renders that panicked and kept the row.
	hiddenPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offer_filter_hidden_panics_total",
		Help: "Total number of hidden-group matches that panicked and left the row visible",
	})
)
