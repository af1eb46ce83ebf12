package vibration

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeSource struct {
	ch  chan Message
	err error
}

func newFakeSource(msgs []Message, err error) *fakeSource {
	ch := make(chan Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeSource{ch: ch, err: err}
}

func (s *fakeSource) Messages() <-chan Message { return s.ch }
func (s *fakeSource) Err() error               { return s.err }

type recordingObserver struct {
	samples  int
	outcomes []ClassificationOutcome
}

func (o *recordingObserver) OnSample(StatSnapshot, int) { o.samples++ }
func (o *recordingObserver) OnClassification(out ClassificationOutcome) {
	o.outcomes = append(o.outcomes, out)
}

func newTestPipeline(t *testing.T) (*Pipeline, *time.Time) {
	t.Helper()

	p, err := NewPipeline(DefaultConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	clock := ledgerEpoch
	p.now = func() time.Time { return clock }
	return p, &clock
}

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SpectralBlock = 0
	if _, err := NewPipeline(cfg); err == nil {
		t.Fatalf("expected error for zero spectral block")
	}
}

func TestPipelineTwoToneTopPeaks(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	block := sineBlock(1024, DefaultSamplingRate, map[float64]float64{300: 1, 800: 1})
	for i, a := range block {
		p.IngestSample(Sample{Time: float64(i) / DefaultSamplingRate, Amplitude: a})
	}

	outcome := p.HandleClassification(ClassificationEvent{Label: "inner_race", Confidence: 0.9})
	if len(outcome.Peaks) != DefaultTopPeaks {
		t.Fatalf("got %d peaks, want %d", len(outcome.Peaks), DefaultTopPeaks)
	}

	binWidth := DefaultSamplingRate / 1024.0
	near := func(f, target float64) bool { return math.Abs(f-target) <= binWidth }
	first, second := outcome.Peaks[0].Frequency, outcome.Peaks[1].Frequency
	if !(near(first, 300) && near(second, 800)) && !(near(first, 800) && near(second, 300)) {
		t.Fatalf("top two peaks at %.2f and %.2f Hz, want 300 and 800", first, second)
	}
	if !outcome.Recorded || outcome.Entry == nil {
		t.Fatalf("first classification was not recorded")
	}
	if len(outcome.Entry.Signal) != 1024 || outcome.Entry.SampleCount != 1024 {
		t.Fatalf("entry captured %d samples (count %d)", len(outcome.Entry.Signal), outcome.Entry.SampleCount)
	}
}

func TestPipelineDebouncesHistory(t *testing.T) {
	t.Parallel()

	p, clock := newTestPipeline(t)
	for i := 0; i < 200; i++ {
		p.IngestSample(Sample{Time: float64(i), Amplitude: math.Sin(float64(i))})
	}

	ev := ClassificationEvent{Label: "normal", Confidence: 0.7}
	p.HandleClassification(ev)
	*clock = clock.Add(10 * time.Second)
	if out := p.HandleClassification(ev); out.Recorded {
		t.Fatalf("classification 10s later should be suppressed")
	}
	*clock = clock.Add(61 * time.Second)
	if out := p.HandleClassification(ev); !out.Recorded {
		t.Fatalf("classification 71s later should be recorded")
	}
	if got := len(p.History()); got != 2 {
		t.Fatalf("History() has %d entries, want 2", got)
	}
}

func TestPipelineRunDrainsInOrder(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	obs := &recordingObserver{}
	p.Observe(obs)

	var msgs []Message
	for i := 0; i < 150; i++ {
		msgs = append(msgs, SampleMessage(Sample{Time: float64(i), Amplitude: float64(i % 7)}))
	}
	msgs = append(msgs, ClassificationMessage(ClassificationEvent{Label: "ball", Confidence: 0.6}))

	if err := p.Run(context.Background(), newFakeSource(msgs, nil)); err != nil {
		t.Fatalf("Run returned %v, want nil on clean close", err)
	}
	if p.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", p.State())
	}
	if obs.samples != 150 || len(obs.outcomes) != 1 {
		t.Fatalf("observer saw %d samples and %d classifications", obs.samples, len(obs.outcomes))
	}
	if obs.outcomes[0].SampleCount != 150 {
		t.Fatalf("classification handled before samples: count %d", obs.outcomes[0].SampleCount)
	}
}

func TestPipelineRunTransportError(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	msgs := []Message{SampleMessage(Sample{Time: 0, Amplitude: 1})}
	err := p.Run(context.Background(), newFakeSource(msgs, errors.New("connection reset")))

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Run error = %v, want *TransportError", err)
	}
	if p.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", p.State())
	}

	// State survives for a restart.
	if p.SampleCount() != 1 {
		t.Fatalf("SampleCount() = %d, want 1", p.SampleCount())
	}
	if err := p.Run(context.Background(), newFakeSource(msgs, nil)); err != nil {
		t.Fatalf("restart returned %v", err)
	}
	if p.SampleCount() != 2 {
		t.Fatalf("SampleCount() after restart = %d, want 2", p.SampleCount())
	}
}

func TestPipelineRunCancelled(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{ch: make(chan Message)}
	if err := p.Run(ctx, src); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if p.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", p.State())
	}
}
