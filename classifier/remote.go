package classifier

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

// Remote calls the external fault classification service.
type Remote struct {
	serviceURL string
	client     *http.Client
}

type predictRequest struct {
	Signal []float64 `json:"signal"`
}

// NewRemote creates a client for the service at serviceURL.
func NewRemote(serviceURL string) *Remote {
	if serviceURL == "" {
		serviceURL = "http://localhost:8000"
	}

	return &Remote{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HealthCheck verifies the classification service is running
func (r *Remote) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.serviceURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (r *Remote) Classify(ctx context.Context, signal []float64) (*Result, error) {
	if err := vibration.ValidateSignal(signal); err != nil {
		return nil, err
	}

	body, err := json.Marshal(predictRequest{Signal: signal})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Prediction == "" {
		return nil, fmt.Errorf("received empty prediction")
	}

	return &result, nil
}
