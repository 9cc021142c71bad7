package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zimra-fiscal/internal/infrastructure/metrics"
)

func TestFiscalMetrics_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRequest("/api/v1/receipts", "OK", 120*time.Millisecond)
	m.ObserveRequest("/api/v1/receipts", "OK", 80*time.Millisecond)
	m.ObserveRequest("/api/v1/receipts", "RCPT013", 50*time.Millisecond)
	m.RecordBatch("status_check", "error")
	m.RecordFiscalisation("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FDMSRequestsTotal.WithLabelValues("/api/v1/receipts", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FDMSRequestsTotal.WithLabelValues("/api/v1/receipts", "RCPT013")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchDevicesTotal.WithLabelValues("status_check", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FiscalisationsTotal.WithLabelValues("ok")))

	n, err := testutil.GatherAndCount(reg, "zimra_fiscal_fdms_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_RegistrosIndependientes(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
