package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MetadataCacheHits counts validation lookups served from the metadata cache
	MetadataCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solswap_metadata_cache_hits_total",
			Help: "Total number of token metadata cache hits",
		},
	)
	// MetadataCacheMisses counts validation lookups that went to the network
	MetadataCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solswap_metadata_cache_misses_total",
			Help: "Total number of token metadata cache misses",
		},
	)
	// MetadataSourceFailures counts failed enrichment calls per metadata source
	MetadataSourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_metadata_source_failures_total",
			Help: "Total number of failed metadata enrichment calls",
		},
		[]string{"source"},
	)
	// QuoteRequests counts aggregator quote requests by result
	QuoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_quote_requests_total",
			Help: "Total number of quote requests by result",
		},
		[]string{"result"},
	)
	// StaleQuotesDiscarded counts quote responses dropped because inputs changed
	StaleQuotesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solswap_stale_quotes_discarded_total",
			Help: "Total number of quote responses discarded as stale",
		},
	)
	// SwapOutcomes counts submitted swaps by terminal status
	SwapOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_swap_outcomes_total",
			Help: "Total number of submitted swaps by terminal status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		MetadataCacheHits,
		MetadataCacheMisses,
		MetadataSourceFailures,
		QuoteRequests,
		StaleQuotesDiscarded,
		SwapOutcomes,
	)
}
