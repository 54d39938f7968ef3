package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsr_lookups_total",
			Help: "Identifier lookups by outcome",
		},
		[]string{"outcome"},
	)

	LookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bsr_lookup_duration_seconds",
			Help:    "Wall time of a single identifier lookup, both fetches included",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 9),
		},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsr_batches_total",
			Help: "Batch runs by final status",
		},
		[]string{"status"},
	)

	RowsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bsr_rows_failed_total",
			Help: "Rows whose rank lookup ended in a failure sentinel",
		},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{LookupsTotal, LookupDuration, BatchesTotal, RowsFailedTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
