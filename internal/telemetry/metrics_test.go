package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_ObserveAddRecordsTradesAndResident(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAdd("GoodTillCancel", "Buy", nil, 1)
	m.ObserveAdd("GoodTillCancel", "Sell", []float64{4, 6}, 0)

	require.Equal(t, float64(2), counterValue(t, m.TradesTotal))
}

func TestMetrics_ObserveRejectionIncrementsLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRejection("FillOrKill", "insufficient_depth")

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "orderbook_orders_rejected_total" {
			found = true
		}
	}
	require.True(t, found)
}

func TestMetrics_ObserveSweepIsNoOpForZero(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSweep(0, 5)
	require.Equal(t, float64(0), counterValue(t, m.GoodForDaySwept))

	m.ObserveSweep(3, 2)
	require.Equal(t, float64(3), counterValue(t, m.GoodForDaySwept))
}
