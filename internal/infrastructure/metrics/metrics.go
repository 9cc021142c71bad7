// Package metrics métricas Prometheus del cliente FDMS, las tareas por lote y la fiscalización.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

const namespace = "zimra_fiscal"

var (
	_ infrafdms.Observer = (*FiscalMetrics)(nil)
	_ fiscal.Metrics     = (*FiscalMetrics)(nil)
)

// FiscalMetrics contadores e histogramas del servicio.
type FiscalMetrics struct {
	FDMSRequestsTotal   *prometheus.CounterVec
	FDMSRequestDuration *prometheus.HistogramVec
	BatchDevicesTotal   *prometheus.CounterVec
	FiscalisationsTotal *prometheus.CounterVec
}

// New registra las métricas en reg. Con reg nil se usa el registro por defecto.
func New(reg prometheus.Registerer) *FiscalMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &FiscalMetrics{
		FDMSRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fdms_requests_total",
				Help:      "Llamadas a FDMS por endpoint y código de resultado",
			},
			[]string{"endpoint", "code"},
		),
		FDMSRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fdms_request_duration_seconds",
				Help:      "Duración de las llamadas a FDMS",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"endpoint"},
		),
		BatchDevicesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_devices_total",
				Help:      "Dispositivos procesados por las tareas programadas",
			},
			[]string{"job", "result"},
		),
		FiscalisationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fiscalisations_total",
				Help:      "Intentos de fiscalización por resultado (ok, rejected, invalid)",
			},
			[]string{"result"},
		),
	}
}

// ObserveRequest registra una llamada a FDMS.
func (m *FiscalMetrics) ObserveRequest(endpoint, code string, elapsed time.Duration) {
	m.FDMSRequestsTotal.WithLabelValues(endpoint, code).Inc()
	m.FDMSRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordBatch registra el resultado de un dispositivo dentro de un lote.
func (m *FiscalMetrics) RecordBatch(job, result string) {
	m.BatchDevicesTotal.WithLabelValues(job, result).Inc()
}

// RecordFiscalisation registra el resultado de un intento de fiscalización.
func (m *FiscalMetrics) RecordFiscalisation(result string) {
	m.FiscalisationsTotal.WithLabelValues(result).Inc()
}
