package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/metrics"
)

func TestNilMetricsMethodsAreNoops(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.SessionAccepted()
		m.SessionEnded()
		m.FrameDispatched("VDSM_SEND_PING")
		m.FrameError("oversize")
		m.ProtocolError("ERR_NOT_FOUND")
	})
}

func TestSessionAcceptedSetsGaugeAndCounter(t *testing.T) {
	m := metrics.New(nil)
	m.SessionAccepted()

	var out dto.Metric
	require.NoError(t, m.SessionsActive.Write(&out))
	assert.Equal(t, float64(1), out.GetGauge().GetValue())

	require.NoError(t, m.SessionsAcceptedTotal.Write(&out))
	assert.Equal(t, float64(1), out.GetCounter().GetValue())
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
