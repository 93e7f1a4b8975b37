package itinerary

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheEntries tracks the number of cached sailings.
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itinerary_cache_entries",
		Help: "Number of (ship, sail date) entries in the itinerary cache",
	})

	// lookups tracks cache lookups by result.
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_cache_lookups_total",
		Help: "Total number of itinerary cache lookups by result",
	}, []string{"result"}) // result: hit, miss

	// hydrationRuns tracks hydration runs by outcome.
	hydrationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_hydration_runs_total",
		Help: "Total number of hydration runs by outcome",
	}, []string{"mode", "outcome"}) // mode: if_needed, always; outcome: completed, skipped, failed

	// hydrationDuration tracks how long a hydration run takes end to end.
	hydrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itinerary_hydration_duration_seconds",
		Help:    "Time taken by a hydration run",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"mode"})

	// shipRequests tracks per-ship search requests by outcome.
	shipRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_hydration_ship_requests_total",
		Help: "Total number of per-ship sailing searches by outcome",
	}, []string{"outcome"}) // outcome: success, error

	// hydratedEntries tracks entries updated or touched by hydration.
	hydratedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_hydrated_entries_total",
		Help: "Total number of cache entries changed by hydration",
	}, []string{"kind"}) // kind: updated, touched

	// prunedEntries tracks entries removed for having no offers.
	prunedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itinerary_pruned_entries_total",
		Help: "Total number of cache entries pruned for having no offer codes",
	})

	// persistDuration tracks snapshot writes to the blob store.
	persistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itinerary_persist_duration_seconds",
		Help:    "Time taken to write the cache snapshot",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// pricingDerivations tracks derived pricing requests by whether they were recomputed.
	pricingDerivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_pricing_derivations_total",
		Help: "Total number of derived pricing requests by result",
	}, []string{"result"}) // result: computed, reused
)

// metricsRecorder provides methods to record itinerary cache metrics.
type metricsRecorder struct{}

func (metricsRecorder) recordEntries(n int) {
	cacheEntries.Set(float64(n))
}

func (metricsRecorder) recordLookup(hit bool) {
	if hit {
		lookups.WithLabelValues("hit").Inc()
		return
	}
	lookups.WithLabelValues("miss").Inc()
}

func (metricsRecorder) recordHydration(mode, outcome string, d time.Duration) {
	hydrationRuns.WithLabelValues(mode, outcome).Inc()
	if outcome != "skipped" {
		hydrationDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}

func (metricsRecorder) recordShipRequest(err error) {
	if err != nil {
		shipRequests.WithLabelValues("error").Inc()
		return
	}
	shipRequests.WithLabelValues("success").Inc()
}

func (metricsRecorder) recordHydrated(updated, touched int) {
	hydratedEntries.WithLabelValues("updated").Add(float64(updated))
	hydratedEntries.WithLabelValues("touched").Add(float64(touched))
}

func (metricsRecorder) recordPruned(n int) {
	prunedEntries.Add(float64(n))
}

func (metricsRecorder) recordPersist(d time.Duration) {
	persistDuration.Observe(d.Seconds())
}

func (metricsRecorder) recordDerivation(recomputed bool) {
	if recomputed {
		pricingDerivations.WithLabelValues("computed").Inc()
		return
	}
	pricingDerivations.WithLabelValues("reused").Inc()
}
