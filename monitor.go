package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"

	"vibration-monitor/metrics"
	"vibration-monitor/publisher"
	"vibration-monitor/stream"
	"vibration-monitor/utils"
	"vibration-monitor/vibration"
)

// monitor subscribes to a stream server, feeds the analytics pipeline and
// serves the live dashboard until ctx is cancelled.
type monitor struct {
	cfg        monitorConfig
	pipeline   *vibration.Pipeline
	metrics    *metrics.Metrics
	dashboard  *dashboardController
	httpClient *http.Client
}

func newMonitor(cfg monitorConfig) (*monitor, error) {
	pipeline, err := vibration.NewPipeline(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	m := &monitor{
		cfg:        cfg,
		pipeline:   pipeline,
		metrics:    metrics.New(),
		httpClient: &http.Client{},
	}
	pipeline.Observe(m.metrics)
	return m, nil
}

// consume runs one subscription through the pipeline. A transport failure
// leaves the pipeline stopped; it is reported but not retried.
func (m *monitor) consume(ctx context.Context) error {
	logger := utils.GetLogger()

	var err error
	sub, subErr := stream.Subscribe(ctx, m.httpClient, m.cfg.StreamURL, m.cfg.Mode)
	if subErr != nil {
		err = subErr
		if m.dashboard != nil {
			m.dashboard.setStatus(vibration.StateStopped, err)
		}
	} else {
		defer sub.Close()

		log.Printf("Subscribed to %s (session %s)", sub.URL, sub.ID)
		if m.dashboard != nil {
			m.dashboard.setStatus(vibration.StateRunning, nil)
		}

		err = m.pipeline.Run(ctx, sub)
		if m.dashboard != nil {
			m.dashboard.setStatus(m.pipeline.State(), err)
		}
	}

	var transportErr *vibration.TransportError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.As(err, &transportErr):
		m.metrics.TransportFailed()
		logger.ErrorContext(ctx, "stream transport failed, pipeline stopped",
			slog.String("url", transportErr.URL),
			slog.Any("error", xerrors.New(err)),
		)
		return nil
	default:
		return err
	}
}

func (m *monitor) run(ctx context.Context) error {
	controller := newDashboardController(nil, m.cfg.Pipeline.HistoryLimit)
	socketServer := newSocketServer(controller)
	controller.broadcaster = socketServer
	m.dashboard = controller
	m.pipeline.Observe(controller)

	if m.cfg.MQTTBroker != "" {
		pub, err := publisher.New(publisher.Config{Broker: m.cfg.MQTTBroker, Topic: m.cfg.MQTTTopic})
		if err != nil {
			return err
		}
		defer pub.Close(context.Background())
		m.pipeline.Observe(pub)
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)
	mux.Handle("/metrics", m.metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir("static")))
	httpServer := &http.Server{
		Addr:              ":" + m.cfg.DashboardPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := socketServer.Serve(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("socketio listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting dashboard on port %v", m.cfg.DashboardPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return socketServer.Close()
	})

	g.Go(func() error {
		return m.consume(gctx)
	})

	return g.Wait()
}

// exportCSV writes the buffered samples. Call only after run has returned.
func (m *monitor) exportCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := utils.CreateFolder(dir); err != nil {
			return fmt.Errorf("error creating export directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	samples := m.pipeline.Samples()
	if err := vibration.WriteCSV(f, samples, m.pipeline.Stats(), time.Now()); err != nil {
		return err
	}
	log.Printf("Exported %d samples to %s", len(samples), path)
	return f.Sync()
}

func runMonitor(ctx context.Context, cfg monitorConfig) error {
	m, err := newMonitor(cfg)
	if err != nil {
		return err
	}

	runErr := m.run(ctx)
	if cfg.CSVExportPath != "" {
		if err := m.exportCSV(cfg.CSVExportPath); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}
