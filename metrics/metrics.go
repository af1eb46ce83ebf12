package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vibration-monitor/vibration"
)

const namespace = "vibration"

// Metrics holds the collectors shared by the stream server and the monitor.
// It implements vibration.Observer and stream.Hooks.
type Metrics struct {
	registry *prometheus.Registry

	samplesIngested   prometheus.Counter
	classifications   *prometheus.CounterVec // by label
	historyDecisions  *prometheus.CounterVec // accepted / suppressed
	spectrumDuration  prometheus.Histogram
	currentRMS        prometheus.Gauge
	currentPeakToPeak prometheus.Gauge
	bufferedSamples   prometheus.Gauge

	streamSessions    prometheus.Gauge
	samplesStreamed   *prometheus.CounterVec // by mode
	predictionsSent   *prometheus.CounterVec // by mode, label
	classifierErrors  *prometheus.CounterVec // by source
	reportsGenerated  *prometheus.CounterVec // by outcome
	transportFailures prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		samplesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Samples appended to the pipeline buffer",
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classification events handled by the pipeline",
		}, []string{"label"}),
		historyDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_decisions_total",
			Help:      "History ledger decisions for classification events",
		}, []string{"decision"}),
		spectrumDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spectrum_duration_seconds",
			Help:      "Time spent computing one magnitude spectrum",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		currentRMS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_rms",
			Help:      "RMS of the trailing statistics window",
		}),
		currentPeakToPeak: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_peak_to_peak",
			Help:      "Peak-to-peak amplitude of the trailing statistics window",
		}),
		bufferedSamples: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_samples",
			Help:      "Samples currently held in the pipeline buffer",
		}),
		streamSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_sessions_active",
			Help:      "Open /stream-signal connections",
		}),
		samplesStreamed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_samples_sent_total",
			Help:      "Sample frames written to stream subscribers",
		}, []string{"mode"}),
		predictionsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_predictions_sent_total",
			Help:      "Prediction frames written to stream subscribers",
		}, []string{"mode", "label"}),
		classifierErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_errors_total",
			Help:      "Failed classifier calls",
		}, []string{"source"}),
		reportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Diagnostic report requests by outcome",
		}, []string{"outcome"}),
		transportFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_transport_failures_total",
			Help:      "Inbound stream subscriptions that ended with an error",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OnSample(stats vibration.StatSnapshot, sampleCount int) {
	m.samplesIngested.Inc()
	m.currentRMS.Set(stats.RMS)
	m.currentPeakToPeak.Set(stats.PeakToPeak)
	m.bufferedSamples.Set(float64(sampleCount))
}

func (m *Metrics) OnClassification(outcome vibration.ClassificationOutcome) {
	m.classifications.WithLabelValues(outcome.Event.Label).Inc()
	m.spectrumDuration.Observe(outcome.SpectrumDuration.Seconds())
	if outcome.Recorded {
		m.historyDecisions.WithLabelValues("accepted").Inc()
	} else {
		m.historyDecisions.WithLabelValues("suppressed").Inc()
	}
}

func (m *Metrics) SampleStreamed(mode string) {
	m.samplesStreamed.WithLabelValues(mode).Inc()
}

func (m *Metrics) PredictionStreamed(mode, label string) {
	m.predictionsSent.WithLabelValues(mode, label).Inc()
}

func (m *Metrics) ClassifierFailed(source string) {
	m.classifierErrors.WithLabelValues(source).Inc()
}

// SessionStarted and SessionEnded bracket one stream subscriber.
func (m *Metrics) SessionStarted() { m.streamSessions.Inc() }

func (m *Metrics) SessionEnded() { m.streamSessions.Dec() }

// ReportFinished counts a diagnostic report request; outcome is "ok",
// "invalid" or "failed".
func (m *Metrics) ReportFinished(outcome string) {
	m.reportsGenerated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TransportFailed() { m.transportFailures.Inc() }
