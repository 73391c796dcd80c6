package cmd

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestServeMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	addr, stop, err := serveMetrics("127.0.0.1:0", zap.New(core))
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "solswap_metadata_cache_hits_total")

	stop()
	_, err = http.Get("http://" + addr + "/metrics")
	assert.Error(t, err)
	assert.Zero(t, logs.Len())
}

func TestServeMetricsBadAddress(t *testing.T) {
	_, _, err := serveMetrics("not-an-address", zap.NewNop())
	assert.Error(t, err)
}
