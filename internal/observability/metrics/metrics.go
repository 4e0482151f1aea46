// Package metrics expone contadores e histogramas Prometheus del motor de facturación.
// Las funciones Observe*/Inc* son no-op hasta que se llama Init.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "billing_"

	ResultSuccess = "success"
	ResultError   = "error"

	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

var (
	registerOnce sync.Once

	readingsRecorded  *prometheus.CounterVec
	invoicesFinalized *prometheus.CounterVec
	finalizeLatency   *prometheus.HistogramVec
	batchItems        *prometheus.CounterVec
	batchChunks       *prometheus.CounterVec
	batchRunLatency   *prometheus.HistogramVec
	txRetries         prometheus.Counter
)

// Init registra las métricas en el registry por defecto. Es idempotente.
func Init() {
	registerOnce.Do(func() {
		readingsRecorded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_recorded_total",
				Help: "Meter readings recorded by result",
			},
			[]string{"result"},
		)
		invoicesFinalized = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoices_finalized_total",
				Help: "Invoices numbered and posted by result",
			},
			[]string{"result"},
		)
		finalizeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "finalize_latency_seconds",
				Help:    "Numbering plus posting latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		batchItems = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_items_total",
				Help: "Batch readings by outcome",
			},
			[]string{"outcome"},
		)
		batchChunks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_chunks_total",
				Help: "Batch chunks committed or rolled back",
			},
			[]string{"result"},
		)
		batchRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_run_duration_seconds",
				Help:    "Batch run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"result"},
		)
		txRetries = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "tx_retries_total",
				Help: "Transactions retried after serialization or deadlock conflicts",
			},
		)

		prometheus.MustRegister(
			readingsRecorded,
			invoicesFinalized,
			finalizeLatency,
			batchItems,
			batchChunks,
			batchRunLatency,
			txRetries,
		)
	})
}

// Result traduce un error al label de resultado.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// IncReadingRecorded cuenta una lectura registrada o rechazada.
func IncReadingRecorded(result string) {
	if readingsRecorded != nil {
		readingsRecorded.WithLabelValues(result).Inc()
	}
}

// ObserveFinalize registra la duración y el resultado de numerar y contabilizar una factura.
func ObserveFinalize(result string, duration time.Duration) {
	if invoicesFinalized != nil {
		invoicesFinalized.WithLabelValues(result).Inc()
	}
	if finalizeLatency != nil {
		finalizeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddBatchItems suma lecturas procesadas por resultado.
func AddBatchItems(outcome string, n int) {
	if batchItems != nil && n > 0 {
		batchItems.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncBatchChunk cuenta un chunk confirmado o revertido.
func IncBatchChunk(result string) {
	if batchChunks != nil {
		batchChunks.WithLabelValues(result).Inc()
	}
}

// ObserveBatchRun registra la duración total de una corrida.
func ObserveBatchRun(result string, duration time.Duration) {
	if batchRunLatency != nil {
		batchRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncTxRetry cuenta un reintento de transacción.
func IncTxRetry() {
	if txRetries != nil {
		txRetries.Inc()
	}
}
