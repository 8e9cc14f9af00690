package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.IncRow("pdp", "OK")
	m.IncRow("pdp", "OK")
	m.IncRow("plp", "BLOCK")
	m.IncAttempt("pdp")
	m.IncRetry()
	m.IncBlock("plp")
	m.IncError("navigation")
	m.IncListingPage()
	m.ObserveDuration("pdp", 1500*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m.RowsTotal.WithLabelValues("pdp", "OK")))
	assert.Equal(t, 1.0, counterValue(t, m.RowsTotal.WithLabelValues("plp", "BLOCK")))
	assert.Equal(t, 1.0, counterValue(t, m.RetriesTotal))
	assert.Equal(t, 1.0, counterValue(t, m.BlocksTotal.WithLabelValues("plp")))
	assert.Equal(t, 1.0, counterValue(t, m.ErrorsTotal.WithLabelValues("navigation")))
	assert.Equal(t, 1.0, counterValue(t, m.PagesVisited))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "storefront_unit_duration_seconds")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncRow("pdp", "OK")
		m.IncAttempt("pdp")
		m.IncRetry()
		m.IncBlock("pdp")
		m.IncError("unknown")
		m.IncListingPage()
		m.ObserveDuration("plp", time.Second)
	})
}
