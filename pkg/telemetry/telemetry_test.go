package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegistered(t *testing.T) {
	collectors := []prometheus.Collector{
		MetadataCacheHits,
		MetadataCacheMisses,
		MetadataSourceFailures,
		QuoteRequests,
		StaleQuotesDiscarded,
		SwapOutcomes,
	}
	for _, c := range collectors {
		err := prometheus.DefaultRegisterer.Register(c)
		var already prometheus.AlreadyRegisteredError
		require.ErrorAs(t, err, &already)
		assert.Same(t, c, already.ExistingCollector)
	}
}

func TestDefaultGathererExposesCounters(t *testing.T) {
	SwapOutcomes.WithLabelValues("confirmed").Inc()

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "solswap_swap_outcomes_total", "solswap_metadata_cache_hits_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}
