package main

import (
	"fmt"
	"time"

	"vibration-monitor/stream"
	"vibration-monitor/utils"
	"vibration-monitor/vibration"
)

type serverConfig struct {
	ClassifierURL      string
	ReportURL          string
	StreamInterval     time.Duration
	PredictionInterval int
	SamplingRate       float64
}

func loadServerConfig() serverConfig {
	return serverConfig{
		ClassifierURL:      utils.GetEnv("CLASSIFIER_URL", ""),
		ReportURL:          utils.GetEnv("REPORT_SERVICE_URL", "http://localhost:8001"),
		StreamInterval:     utils.GetEnvMillis("STREAM_INTERVAL_MS", stream.DefaultInterval),
		PredictionInterval: utils.GetEnvInt("PREDICTION_INTERVAL", stream.DefaultPredictionInterval),
		SamplingRate:       utils.GetEnvFloat("SAMPLING_RATE", vibration.DefaultSamplingRate),
	}
}

type monitorConfig struct {
	StreamURL     string
	Mode          stream.Mode
	Pipeline      vibration.Config
	DashboardPort string
	MQTTBroker    string
	MQTTTopic     string
	CSVExportPath string
}

func loadMonitorConfig() (monitorConfig, error) {
	mode, err := stream.ParseMode(utils.GetEnv("STREAM_MODE", "real"))
	if err != nil {
		return monitorConfig{}, err
	}

	pipeline := vibration.Config{
		BufferCapacity:  utils.GetEnvInt("BUFFER_CAPACITY", vibration.DefaultBufferCapacity),
		StatsWindow:     utils.GetEnvInt("STATS_WINDOW", vibration.DefaultStatsWindow),
		SpectralBlock:   utils.GetEnvInt("SPECTRAL_BLOCK", vibration.DefaultSpectralBlock),
		SamplingRate:    utils.GetEnvFloat("SAMPLING_RATE", vibration.DefaultSamplingRate),
		MaxBins:         vibration.DefaultMaxBins,
		MaxFrequency:    utils.GetEnvFloat("SPECTRUM_MAX_FREQ", vibration.DefaultMaxFrequency),
		TopPeaks:        utils.GetEnvInt("TOP_PEAKS", vibration.DefaultTopPeaks),
		HistoryInterval: utils.GetEnvMillis("HISTORY_INTERVAL_MS", vibration.DefaultHistoryInterval),
		HistoryLimit:    utils.GetEnvInt("HISTORY_LIMIT", vibration.DefaultHistoryLimit),
	}
	// The analyzer never transforms more than one spectral block.
	if pipeline.SpectralBlock > pipeline.MaxBins {
		pipeline.MaxBins = pipeline.SpectralBlock
	}
	if err := pipeline.Validate(); err != nil {
		return monitorConfig{}, fmt.Errorf("invalid monitor config: %w", err)
	}

	return monitorConfig{
		StreamURL:     utils.GetEnv("STREAM_URL", "http://localhost:5000"),
		Mode:          mode,
		Pipeline:      pipeline,
		DashboardPort: utils.GetEnv("DASHBOARD_PORT", "5050"),
		MQTTBroker:    utils.GetEnv("MQTT_BROKER", ""),
		MQTTTopic:     utils.GetEnv("MQTT_TOPIC", "vibration/history"),
		CSVExportPath: utils.GetEnv("CSV_EXPORT_PATH", ""),
	}, nil
}
