package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibration-monitor/vibration"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	got := Filename(time.Date(2024, 11, 3, 9, 5, 7, 0, time.UTC))
	assert.Equal(t, "bearing_diagnostic_report_20241103_090507.pdf", got)
}

func TestRenderBuffersDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 12000, req.SamplingRate)
		assert.Equal(t, "ball", req.Prediction)

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	doc, err := c.Render(context.Background(), Request{
		Signal:       make([]float64, 100),
		SamplingRate: 12000,
		Prediction:   "ball",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), doc.Data)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "bearing_diagnostic_report_20240102_030405.pdf", doc.Filename)
}

func TestRenderFailureIsArtifactError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template missing", http.StatusInternalServerError)
	}))
	defer srv.Close()

	doc, err := NewClient(srv.URL).Render(context.Background(), Request{Signal: make([]float64, 100)})
	assert.Nil(t, doc)

	var artifactErr *vibration.ArtifactGenerationError
	require.True(t, errors.As(err, &artifactErr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, artifactErr.StatusCode)
	assert.Contains(t, err.Error(), "template missing")
}

func TestRenderUnreachable(t *testing.T) {
	t.Parallel()

	_, err := NewClient("http://127.0.0.1:1").Render(context.Background(), Request{Signal: make([]float64, 100)})
	var artifactErr *vibration.ArtifactGenerationError
	require.True(t, errors.As(err, &artifactErr), "got %v", err)
}

func TestRenderValidatesSignal(t *testing.T) {
	t.Parallel()

	_, err := NewClient("http://127.0.0.1:1").Render(context.Background(), Request{Signal: make([]float64, 10)})
	var validationErr *vibration.ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
}
