package models

// SamplePoint is a default-channel stream message.
type SamplePoint struct {
	Timestamp float64 `json:"timestamp"`
	Amplitude float64 `json:"amplitude"`
}

// PredictionEvent is sent on the "prediction" stream event.
type PredictionEvent struct {
	Type          string             `json:"type"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      map[string]float64 `json:"features"`
	Scenario      *string            `json:"scenario"`
}

// SignalRequest is the body of /predict and /diagnostic-report.
type SignalRequest struct {
	Signal       []float64 `json:"signal"`
	SamplingRate int       `json:"sampling_rate,omitempty"`
}

// PredictionResponse answers /predict. The submitted signal is echoed back.
type PredictionResponse struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      map[string]float64 `json:"features"`
	Signal        []float64          `json:"signal"`
}

// ExampleResponse answers /example/{category}.
type ExampleResponse struct {
	Signal []float64 `json:"signal"`
	Type   string    `json:"type"`
}

// StatusResponse answers / and /health.
type StatusResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message,omitempty"`
	Classifier   string   `json:"classifier,omitempty"`
	ModelClasses []string `json:"model_classes,omitempty"`
	Version      string   `json:"version,omitempty"`
}
