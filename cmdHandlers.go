package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"

	"vibration-monitor/classifier"
	"vibration-monitor/db"
	"vibration-monitor/metrics"
	"vibration-monitor/models"
	"vibration-monitor/report"
	"vibration-monitor/stream"
	"vibration-monitor/utils"
	"vibration-monitor/vibration"
)

type apiError struct {
	Message string `json:"message"`
}

const maxSignalBodyBytes = 16 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

// setCORS writes the CORS headers and reports whether the request was a
// preflight that has been answered.
func setCORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *vibration.ValidationError
	var parseErr *vibration.ParseError
	var artifactErr *vibration.ArtifactGenerationError
	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &parseErr):
		writeJSONError(w, http.StatusBadRequest, parseErr.Error())
	case errors.As(err, &artifactErr):
		writeJSONError(w, http.StatusBadGateway, artifactErr.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeSignalRequest(r *http.Request) (models.SignalRequest, error) {
	var req models.SignalRequest
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxSignalBodyBytes)).Decode(&req); err != nil {
		return req, &vibration.ValidationError{Field: "body", Message: "invalid JSON payload"}
	}
	if err := vibration.ValidateSignal(req.Signal); err != nil {
		return req, err
	}
	if req.SamplingRate <= 0 {
		req.SamplingRate = vibration.DefaultSamplingRate
	}
	return req, nil
}

// apiDeps is everything the HTTP surface needs.
type apiDeps struct {
	store      db.ExampleStore
	classifier classifier.Classifier
	reports    *report.Client
	metrics    *metrics.Metrics
	cfg        serverConfig
	// classifierName is reported by the status endpoints.
	classifierName string
}

func newPredictHandler(deps apiDeps) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if setCORS(w, r, "POST") {
			return
		}
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		req, err := decodeSignalRequest(r)
		if err != nil {
			writeDomainError(w, err, "invalid request")
			return
		}

		started := time.Now()
		result, err := deps.classifier.Classify(r.Context(), req.Signal)
		if err != nil {
			deps.metrics.ClassifierFailed("predict")
			logger.ErrorContext(r.Context(), "classification failed", slog.Any("error", xerrors.New(err)))
			writeDomainError(w, err, "classification failed")
			return
		}

		logger.InfoContext(r.Context(), "classification complete",
			slog.String("prediction", result.Prediction),
			slog.Float64("confidence", result.Confidence),
			slog.Int("samples", len(req.Signal)),
			slog.Float64("latency_ms", time.Since(started).Seconds()*1000),
		)

		writeJSON(w, http.StatusOK, models.PredictionResponse{
			Prediction:    result.Prediction,
			Confidence:    result.Confidence,
			Probabilities: result.Probabilities,
			Features:      result.Features,
			Signal:        req.Signal,
		})
	}
}

func newExampleHandler(deps apiDeps) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if setCORS(w, r, "GET") {
			return
		}
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		category := strings.Trim(strings.TrimPrefix(r.URL.Path, "/example/"), "/")
		if !db.IsKnownCategory(category) {
			writeJSONError(w, http.StatusNotFound, "unknown example type "+strconv.Quote(category))
			return
		}

		ex, err := deps.store.GetExample(r.Context(), category)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeJSONError(w, http.StatusNotFound, "no example stored for "+category)
				return
			}
			logger.ErrorContext(r.Context(), "failed to load example", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusInternalServerError, "failed to load example")
			return
		}

		writeJSON(w, http.StatusOK, models.ExampleResponse{Signal: ex.Signal, Type: category})
	}
}

func newDiagnosticReportHandler(deps apiDeps) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if setCORS(w, r, "POST") {
			return
		}
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		req, err := decodeSignalRequest(r)
		if err != nil {
			deps.metrics.ReportFinished("invalid")
			writeDomainError(w, err, "invalid request")
			return
		}

		result, err := deps.classifier.Classify(r.Context(), req.Signal)
		if err != nil {
			deps.metrics.ClassifierFailed("report")
			deps.metrics.ReportFinished("failed")
			logger.ErrorContext(r.Context(), "classification for report failed", slog.Any("error", xerrors.New(err)))
			writeDomainError(w, err, "classification failed")
			return
		}

		log.Printf("Generating report for prediction: %s (confidence: %.2f%%)", result.Prediction, result.Confidence*100)
		doc, err := deps.reports.Render(r.Context(), report.Request{
			Signal:        req.Signal,
			SamplingRate:  req.SamplingRate,
			Prediction:    result.Prediction,
			Confidence:    result.Confidence,
			Probabilities: result.Probabilities,
			Features:      result.Features,
		})
		if err != nil {
			deps.metrics.ReportFinished("failed")
			logger.ErrorContext(r.Context(), "report generation failed", slog.Any("error", xerrors.New(err)))
			writeDomainError(w, err, "failed to generate report")
			return
		}

		deps.metrics.ReportFinished("ok")
		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+doc.Filename)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(doc.Data); err != nil {
			log.Printf("failed to write report: %v", err)
		}
	}
}

func newStatusHandler(deps apiDeps, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if setCORS(w, r, "GET") {
			return
		}
		if r.URL.Path != "/" && r.URL.Path != "/health" {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, models.StatusResponse{
			Status:       status,
			Message:      "Vibration Fault Detection API",
			Classifier:   deps.classifierName,
			ModelClasses: classifier.Labels,
			Version:      "2.1",
		})
	}
}

// newSegmentSource picks the sample source for a stream mode.
func newSegmentSource(mode stream.Mode, store db.ExampleStore) stream.SegmentSource {
	seed := time.Now().UnixNano()
	switch mode.(type) {
	case stream.RandomMode:
		return stream.NewRandomSource(seed)
	default:
		return stream.NewRealSource(store, seed)
	}
}

func newStreamHandler(deps apiDeps) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if setCORS(w, r, "GET") {
			return
		}
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		mode, err := stream.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		events, err := stream.NewEventWriter(w)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}

		sessionID := r.Header.Get(stream.SessionHeader)
		deps.metrics.SessionStarted()
		defer deps.metrics.SessionEnded()
		log.Printf("Stream session started: mode=%s session=%s remote=%s", mode.Name(), sessionID, r.RemoteAddr)

		streamer := stream.NewStreamer(mode, newSegmentSource(mode, deps.store), deps.classifier)
		streamer.Interval = deps.cfg.StreamInterval
		streamer.PredictionInterval = deps.cfg.PredictionInterval
		streamer.Hooks = deps.metrics

		if err := streamer.Stream(r.Context(), events); err != nil && r.Context().Err() == nil {
			logger.WarnContext(context.Background(), "stream session ended with error",
				slog.String("session", sessionID),
				slog.Any("error", xerrors.New(err)),
			)
		}
		log.Printf("Stream session ended: session=%s", sessionID)
	}
}

func newRouter(deps apiDeps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", newPredictHandler(deps))
	mux.HandleFunc("/example/", newExampleHandler(deps))
	mux.HandleFunc("/diagnostic-report", newDiagnosticReportHandler(deps))
	mux.HandleFunc("/stream-signal", newStreamHandler(deps))
	mux.HandleFunc("/health", newStatusHandler(deps, "healthy"))
	mux.HandleFunc("/", newStatusHandler(deps, "active"))
	mux.Handle("/metrics", deps.metrics.Handler())
	return mux
}

func newClassifier(cfg serverConfig) (classifier.Classifier, string) {
	if cfg.ClassifierURL == "" {
		return classifier.NewHeuristic(cfg.SamplingRate), "heuristic"
	}
	remote := classifier.NewRemote(cfg.ClassifierURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := remote.HealthCheck(ctx); err != nil {
		log.Printf("WARNING: %v", err)
	}
	return remote, "remote"
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)
	logger := utils.GetLogger()
	cfg := loadServerConfig()

	store, err := db.NewExampleStore(context.Background())
	if err != nil {
		log.Fatalf("failed to open example store: %v", err)
	}
	defer store.Close()

	if categories, err := store.ListCategories(context.Background()); err != nil {
		logger.Error("failed to list example categories", slog.Any("error", xerrors.New(err)))
	} else {
		log.Printf("Loaded examples for %d categories: %v", len(categories), categories)
	}

	c, name := newClassifier(cfg)
	log.Printf("Using %s classifier", name)

	deps := apiDeps{
		store:          store,
		classifier:     c,
		reports:        report.NewClient(cfg.ReportURL),
		metrics:        metrics.New(),
		cfg:            cfg,
		classifierName: name,
	}

	serveHTTP(protocol == "https", port, newRouter(deps))
}

func serveHTTP(serveHTTPS bool, port string, handler http.Handler) {
	if serveHTTPS {
		httpsAddr := ":" + port
		httpsServer := &http.Server{
			Addr: httpsAddr,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY", "")
		certFile := utils.GetEnv("CERT_FILE", "")
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsAddr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
		return
	}

	log.Printf("Starting HTTP server on port %v", port)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}
