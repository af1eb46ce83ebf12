package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibration-monitor/vibration"
)

func TestObserverUpdatesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.OnSample(vibration.StatSnapshot{RMS: 0.4, PeakToPeak: 1.2}, 10)
	m.OnSample(vibration.StatSnapshot{RMS: 0.5, PeakToPeak: 1.1}, 11)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samplesIngested))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.currentRMS))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.bufferedSamples))

	m.OnClassification(vibration.ClassificationOutcome{
		Event:            vibration.ClassificationEvent{Label: "ball"},
		Recorded:         true,
		SpectrumDuration: 3 * time.Millisecond,
	})
	m.OnClassification(vibration.ClassificationOutcome{
		Event: vibration.ClassificationEvent{Label: "ball"},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.classifications.WithLabelValues("ball")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyDecisions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyDecisions.WithLabelValues("suppressed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.spectrumDuration))
}

func TestStreamHooksAndSessions(t *testing.T) {
	t.Parallel()

	m := New()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()
	m.SampleStreamed("random")
	m.PredictionStreamed("random", "normal")
	m.ClassifierFailed("stream")
	m.ReportFinished("failed")
	m.TransportFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samplesStreamed.WithLabelValues("random")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictionsSent.WithLabelValues("random", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifierErrors.WithLabelValues("stream")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsGenerated.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transportFailures))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.SampleStreamed("real")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `vibration_stream_samples_sent_total{mode="real"} 1`), body)
}
