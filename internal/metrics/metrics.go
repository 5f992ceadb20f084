// Package metrics holds the Prometheus collectors of the budget core.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultCreated  = "created"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
	ResultLive     = "live"
	ResultFallback = "fallback"
	ResultError    = "error"
)

var collectors = []prometheus.Collector{
	monthsCreated,
	templatesMaterialized,
	materializeDuration,
	exchangeRateFetches,
	cacheErrors,
}

var monthsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "budget_months_created_total",
		Help: "How many months were created.",
	},
)

var templatesMaterialized = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "budget_templates_materialized_total",
		Help: "Recurring template materializations, partitioned by result.",
	},
	[]string{"result"},
)

var materializeDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "budget_materialize_duration_seconds",
		Help: "Time spent materializing all templates into one month.",
	},
)

var exchangeRateFetches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "budget_exchange_rate_fetch_total",
		Help: "Exchange rate lookups that reached the source, one per lookup, partitioned by outcome (live, fallback, error).",
	},
	[]string{"result"},
)

var cacheErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "budget_cache_errors_total",
		Help: "Cache operations that failed and fell through to the store.",
	},
	[]string{"op"},
)

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("could not register %s with Prometheus: %w", c, err)
		}
	}
	return nil
}

// Unregister removes all collectors from reg.
func Unregister(reg prometheus.Registerer) bool {
	ok := true
	for _, c := range collectors {
		ok = reg.Unregister(c) && ok
	}
	return ok
}

func MonthCreated() {
	monthsCreated.Inc()
}

func TemplateMaterialized(result string) {
	templatesMaterialized.WithLabelValues(result).Inc()
}

func ObserveMaterialize(seconds float64) {
	materializeDuration.Observe(seconds)
}

func ExchangeRateFetched(result string) {
	exchangeRateFetches.WithLabelValues(result).Inc()
}

func CacheError(op string) {
	cacheErrors.WithLabelValues(op).Inc()
}
