package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.FetchDone("GET", 200, time.Millisecond)
		c.FetchFailed("timeout")
		c.Decision("admitted")
		c.SetFrontier(1, 2)
		c.ScriptRun("passive")
		c.FindingRecorded("high", "active")
		c.Scanned()
	})
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.Serve(t.Context(), ":0", nil))
}

func TestCollector_Counts(t *testing.T) {
	c := New()

	c.FetchDone("GET", 200, 10*time.Millisecond)
	c.FetchDone("GET", 204, 10*time.Millisecond)
	c.FetchDone("POST", 500, 10*time.Millisecond)
	c.Decision("admitted")
	c.Decision("filetype")
	c.Decision("filetype")
	c.FindingRecorded("high", "active")
	c.Scanned()
	c.SetFrontier(3, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchesTotal.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchesTotal.WithLabelValues("POST", "5xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.admissions.WithLabelValues("filetype")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.findingsTotal.WithLabelValues("high", "active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.scannedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.frontierGauge.WithLabelValues("pending")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "0", statusClass(0))
}
