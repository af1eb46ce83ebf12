package vibration

import (
	"errors"
	"time"
)

const (
	DefaultBufferCapacity  = 5000
	DefaultStatsWindow     = 100
	DefaultSpectralBlock   = 1024
	DefaultSamplingRate    = 12000
	DefaultMaxBins         = 1024
	DefaultMaxFrequency    = 3000
	DefaultTopPeaks        = 3
	DefaultHistoryInterval = 60 * time.Second
	DefaultHistoryLimit    = 10
)

// Config holds the pipeline's tunables.
type Config struct {
	BufferCapacity  int
	StatsWindow     int
	SpectralBlock   int
	SamplingRate    float64
	MaxBins         int
	MaxFrequency    float64
	TopPeaks        int
	HistoryInterval time.Duration
	HistoryLimit    int
}

// DefaultConfig returns the settings the live stream was tuned with.
func DefaultConfig() Config {
	return Config{
		BufferCapacity:  DefaultBufferCapacity,
		StatsWindow:     DefaultStatsWindow,
		SpectralBlock:   DefaultSpectralBlock,
		SamplingRate:    DefaultSamplingRate,
		MaxBins:         DefaultMaxBins,
		MaxFrequency:    DefaultMaxFrequency,
		TopPeaks:        DefaultTopPeaks,
		HistoryInterval: DefaultHistoryInterval,
		HistoryLimit:    DefaultHistoryLimit,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.BufferCapacity <= 0 {
		errs = append(errs, errors.New("buffer capacity must be positive"))
	}
	if c.StatsWindow <= 0 {
		errs = append(errs, errors.New("stats window must be positive"))
	}
	if c.SpectralBlock <= 0 {
		errs = append(errs, errors.New("spectral block must be positive"))
	}
	if c.SamplingRate <= 0 {
		errs = append(errs, errors.New("sampling rate must be positive"))
	}
	if c.MaxBins <= 0 {
		errs = append(errs, errors.New("max bins must be positive"))
	}
	if c.MaxFrequency <= 0 {
		errs = append(errs, errors.New("max frequency must be positive"))
	}
	if c.TopPeaks <= 0 {
		errs = append(errs, errors.New("top peaks must be positive"))
	}
	if c.HistoryInterval <= 0 {
		errs = append(errs, errors.New("history interval must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("history limit must be positive"))
	}
	return errors.Join(errs...)
}
