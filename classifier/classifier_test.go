package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibration-monitor/vibration"
)

func sine(n int, freq, samplingRate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / samplingRate)
	}
	return out
}

func TestSplitFeaturesByKeyMembership(t *testing.T) {
	t.Parallel()

	features := map[string]float64{
		"rms":          1,
		"peak":         2,
		"peak_to_peak": 3,
		"crest_factor": 4,
		"kurtosis":     5,
		"skewness":     6,
		"std":          7,
		"freq_peak":    8,
		"mean":         9,
	}

	timeDomain, frequencyDomain := SplitFeatures(features)
	assert.Len(t, timeDomain, 7)
	assert.Equal(t, map[string]float64{"freq_peak": 8, "mean": 9}, frequencyDomain)
	assert.Equal(t, []string{"freq_peak", "mean"}, SortedKeys(frequencyDomain))
}

func TestHeuristicPicksClassNearestDefectFrequency(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(vibration.DefaultSamplingRate)
	cases := map[string]float64{
		LabelBall:      400,
		LabelOuterRace: 250,
		LabelNormal:    30,
	}
	for want, freq := range cases {
		result, err := h.Classify(context.Background(), sine(2048, freq, vibration.DefaultSamplingRate))
		require.NoError(t, err)
		assert.Equal(t, want, result.Prediction, "signal at %.0f Hz", freq)

		var total float64
		for _, p := range result.Probabilities {
			total += p
		}
		assert.InDelta(t, 1, total, 1e-9)
		assert.Equal(t, result.Probabilities[result.Prediction], result.Confidence)
	}
}

func TestHeuristicFeatures(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(vibration.DefaultSamplingRate)
	features := h.ExtractFeatures(sine(2048, 400, vibration.DefaultSamplingRate))

	assert.InDelta(t, 1/math.Sqrt2, features["rms"], 1e-3)
	assert.InDelta(t, math.Sqrt2, features["crest_factor"], 2e-2)
	assert.InDelta(t, 400, features["freq_peak"], 6)
	assert.Less(t, features["kurtosis"], 0.0)
}

func TestHeuristicRejectsShortSignal(t *testing.T) {
	t.Parallel()

	_, err := NewHeuristic(0).Classify(context.Background(), make([]float64, 50))
	var validationErr *vibration.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
}

func TestRemoteClassify(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Signal, 100)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"prediction":    "inner_race",
			"confidence":    0.82,
			"probabilities": map[string]float64{"inner_race": 0.82, "normal": 0.18},
			"features":      map[string]float64{"rms": 0.4},
			"signal":        req.Signal,
		})
	}))
	defer srv.Close()

	result, err := NewRemote(srv.URL+"/").Classify(context.Background(), make([]float64, 100))
	require.NoError(t, err)
	assert.Equal(t, "inner_race", result.Prediction)
	assert.Equal(t, 0.82, result.Confidence)
	assert.Equal(t, 0.4, result.Features["rms"])
}

func TestRemoteClassifyServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).Classify(context.Background(), make([]float64, 100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
