package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics observes file processing. It satisfies the pipeline
// usecase Metrics hook.
type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	dedupHitsTotal  prometheus.Counter
	bytesStreamed   prometheus.Counter
	batchFilesTotal *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "pipeline",
			Name:      "files_processed_total",
			Help:      "Total processed files by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docpipe",
			Subsystem: "pipeline",
			Name:      "file_process_duration_seconds",
			Help:      "File processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docpipe",
			Subsystem: "pipeline",
			Name:      "files_in_flight",
			Help:      "Number of in-flight single-file pipelines.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	dedupHitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "pipeline",
			Name:      "dedup_hits_total",
			Help:      "Uploads short-circuited by the content hash cache.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	bytesStreamed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "pipeline",
			Name:      "bytes_streamed_total",
			Help:      "Bytes copied through the hashing stream tap.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchFilesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpipe",
			Subsystem: "batch",
			Name:      "files_total",
			Help:      "Batch file outcomes after retries.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, dedupHitsTotal, bytesStreamed, batchFilesTotal)

	return &PipelineMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		dedupHitsTotal:  dedupHitsTotal,
		bytesStreamed:   bytesStreamed,
		batchFilesTotal: batchFilesTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartFile() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishFile(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues("docpipeline", status).Inc()
	m.processDuration.WithLabelValues("docpipeline", status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) DedupHit() {
	m.dedupHitsTotal.Inc()
}

func (m *PipelineMetrics) BytesStreamed(n int64) {
	m.bytesStreamed.Add(float64(n))
}

func (m *PipelineMetrics) BatchFile(failed bool) {
	outcome := "processed"
	if failed {
		outcome = "failed"
	}
	m.batchFilesTotal.WithLabelValues("docpipeline", outcome).Inc()
}
