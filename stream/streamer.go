package stream

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"vibration-monitor/classifier"
	"vibration-monitor/models"
	"vibration-monitor/utils"
)

const (
	DefaultInterval           = 50 * time.Millisecond
	DefaultPredictionInterval = 50
	// PredictionWindow is how many trailing samples each prediction sees.
	PredictionWindow = 100
)

// EventSink receives encoded stream frames. *EventWriter implements it.
type EventSink interface {
	WriteData(v any) error
	WriteEvent(name string, v any) error
}

// Hooks observes a streaming session. All methods are called from the
// session goroutine.
type Hooks interface {
	SampleStreamed(mode string)
	PredictionStreamed(mode, label string)
	ClassifierFailed(mode string)
}

type nopHooks struct{}

func (nopHooks) SampleStreamed(string) {}

func (nopHooks) PredictionStreamed(string, string) {}

func (nopHooks) ClassifierFailed(string) {}

// Streamer paces segments from a source onto an event sink, interleaving
// prediction events over the trailing PredictionWindow samples.
type Streamer struct {
	Mode               Mode
	Source             SegmentSource
	Classifier         classifier.Classifier
	Interval           time.Duration
	PredictionInterval int
	Hooks              Hooks

	now func() time.Time
}

func NewStreamer(mode Mode, source SegmentSource, c classifier.Classifier) *Streamer {
	return &Streamer{
		Mode:               mode,
		Source:             source,
		Classifier:         c,
		Interval:           DefaultInterval,
		PredictionInterval: DefaultPredictionInterval,
		Hooks:              nopHooks{},
		now:                time.Now,
	}
}

// Stream runs until ctx is cancelled, the sink fails or the source fails.
// Cancellation is a normal end and returns nil.
func (s *Streamer) Stream(ctx context.Context, sink EventSink) error {
	logger := utils.GetLogger()
	hooks := s.Hooks
	if hooks == nil {
		hooks = nopHooks{}
	}
	every := s.PredictionInterval
	if every <= 0 {
		every = DefaultPredictionInterval
	}

	var timer *time.Timer
	if s.Interval > 0 {
		timer = time.NewTimer(s.Interval)
		defer timer.Stop()
	}

	lastTimestamp := 0.0
	for {
		seg, err := s.Source.NextSegment(ctx, s.now(), s.Interval)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		scenario := seg.Scenario

		window := make([]float64, 0, len(seg.Values))
		for _, value := range seg.Values {
			ts := unixSeconds(s.now())
			if ts <= lastTimestamp {
				ts = math.Nextafter(lastTimestamp, math.Inf(1))
			}
			lastTimestamp = ts

			if err := sink.WriteData(models.SamplePoint{Timestamp: ts, Amplitude: value}); err != nil {
				return err
			}
			hooks.SampleStreamed(s.Mode.Name())

			window = append(window, value)
			if n := len(window); n >= PredictionWindow && (n-PredictionWindow)%every == 0 {
				result, err := s.Classifier.Classify(ctx, window[n-PredictionWindow:])
				switch {
				case err == nil:
					event := models.PredictionEvent{
						Type:          "prediction",
						Prediction:    result.Prediction,
						Confidence:    result.Confidence,
						Probabilities: result.Probabilities,
						Features:      result.Features,
						Scenario:      &scenario,
					}
					if err := sink.WriteEvent("prediction", event); err != nil {
						return err
					}
					hooks.PredictionStreamed(s.Mode.Name(), result.Prediction)
				case errors.Is(err, context.Canceled):
					return nil
				default:
					hooks.ClassifierFailed(s.Mode.Name())
					logger.WarnContext(ctx, "stream prediction failed",
						slog.String("scenario", scenario),
						slog.Any("error", err),
					)
				}
			}

			if timer == nil {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
				timer.Reset(s.Interval)
			}
		}
	}
}
