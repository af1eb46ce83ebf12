package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibration-monitor/vibration"
)

const filenameLayout = "20060102_150405"

// maxDocumentSize bounds how much of a renderer response is buffered.
const maxDocumentSize = 32 << 20

// Request is everything the renderer needs to lay out a diagnostic report.
type Request struct {
	Signal        []float64          `json:"signal"`
	SamplingRate  int                `json:"sampling_rate"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      map[string]float64 `json:"features"`
}

// Document is a fully buffered rendered report.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Client talks to the external PDF report renderer.
type Client struct {
	serviceURL string
	client     *http.Client
	now        func() time.Time
}

func NewClient(serviceURL string) *Client {
	if serviceURL == "" {
		serviceURL = "http://localhost:8001"
	}
	return &Client{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		now: time.Now,
	}
}

// Filename names a report generated at t.
func Filename(t time.Time) string {
	return "bearing_diagnostic_report_" + t.Format(filenameLayout) + ".pdf"
}

// Render asks the renderer for a PDF and reads the whole document before
// returning. Any failure is an *vibration.ArtifactGenerationError.
func (c *Client) Render(ctx context.Context, req Request) (*Document, error) {
	if err := vibration.ValidateSignal(req.Signal); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("report request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &vibration.ArtifactGenerationError{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("%s", strings.TrimSpace(string(detail))),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("failed to read document: %w", err)}
	}
	if len(data) == 0 {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("renderer returned an empty document")}
	}
	if len(data) > maxDocumentSize {
		return nil, &vibration.ArtifactGenerationError{Cause: fmt.Errorf("document exceeds %d bytes", maxDocumentSize)}
	}

	return &Document{
		Data:        data,
		ContentType: "application/pdf",
		Filename:    Filename(c.now()),
	}, nil
}
