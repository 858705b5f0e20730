package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMetrics_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveRun("added", 2, 150*time.Millisecond)
	m.ObserveRun("no_new", 0, 20*time.Millisecond)
	m.ObserveRun("added", 1, 30*time.Millisecond)
	m.SetCollectionSize(6)

	assert.InDelta(t, 2, testutil.ToFloat64(m.runs.WithLabelValues("added")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("no_new")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.added), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(m.quotes), 0)

	expected := `
# HELP quotebook_quotes Quotes currently in the collection.
# TYPE quotebook_quotes gauge
quotebook_quotes 6
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quotebook_quotes"))
}

func TestSyncMetrics_NilSafe(t *testing.T) {
	var m *SyncMetrics

	assert.NotPanics(t, func() {
		m.ObserveRun("failed", 0, time.Second)
		m.SetCollectionSize(1)
	})
}

func TestSyncMetrics_Unregistered(t *testing.T) {
	m := NewSyncMetrics(nil)
	m.ObserveRun("failed", 0, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("failed")), 0)
}
