package vibration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type MessageKind int

const (
	MessageSample MessageKind = iota + 1
	MessageClassification
)

// Message is one inbound stream message. Exactly one of Sample or
// Classification is meaningful, selected by Kind.
type Message struct {
	Kind           MessageKind
	Sample         Sample
	Classification ClassificationEvent
}

func SampleMessage(s Sample) Message {
	return Message{Kind: MessageSample, Sample: s}
}

func ClassificationMessage(ev ClassificationEvent) Message {
	return Message{Kind: MessageClassification, Classification: ev}
}

// MessageSource delivers messages in arrival order on a single channel.
// Err is consulted once the channel is closed; a nil result means the source
// ended cleanly.
type MessageSource interface {
	Messages() <-chan Message
	Err() error
}

// ClassificationOutcome is everything derived from one classification event.
type ClassificationOutcome struct {
	Event            ClassificationEvent `json:"event"`
	Spectrum         []SpectralPeak      `json:"spectrum"`
	Peaks            []SpectralPeak      `json:"peaks"`
	Entry            *HistoryEntry       `json:"entry,omitempty"`
	Recorded         bool                `json:"recorded"`
	SampleCount      int                 `json:"sampleCount"`
	SpectrumDuration time.Duration       `json:"-"`
}

// Observer is notified synchronously from the pipeline worker. Implementations
// must not block for long; the next message waits on them.
type Observer interface {
	OnSample(stats StatSnapshot, sampleCount int)
	OnClassification(outcome ClassificationOutcome)
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pipeline is the single owner of the sample buffer, the latest statistics
// and the history ledger. All methods must be called from one goroutine;
// Run is that goroutine's receive loop.
type Pipeline struct {
	cfg       Config
	buffer    *SampleBuffer
	analyzer  *SpectralAnalyzer
	ledger    *HistoryLedger
	stats     StatSnapshot
	state     State
	observers []Observer
	now       func() time.Time
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		buffer: NewSampleBuffer(cfg.BufferCapacity),
		analyzer: &SpectralAnalyzer{
			SamplingRate: cfg.SamplingRate,
			MaxBins:      cfg.MaxBins,
			MaxFrequency: cfg.MaxFrequency,
		},
		ledger: NewHistoryLedger(cfg.HistoryInterval, cfg.HistoryLimit),
		now:    time.Now,
	}, nil
}

// Observe registers an observer. Call before Run.
func (p *Pipeline) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// IngestSample appends s and recomputes the windowed statistics.
func (p *Pipeline) IngestSample(s Sample) StatSnapshot {
	p.buffer.Append(s)
	p.stats = ComputeStats(p.buffer, p.cfg.StatsWindow)
	for _, o := range p.observers {
		o.OnSample(p.stats, p.buffer.Len())
	}
	return p.stats
}

// HandleClassification derives the spectrum of the most recent block and
// offers the event to the history ledger.
func (p *Pipeline) HandleClassification(ev ClassificationEvent) ClassificationOutcome {
	block := p.buffer.RecentAmplitudes(p.cfg.SpectralBlock)

	started := time.Now()
	spectrum := p.analyzer.Spectrum(block)
	peaks := Peaks(spectrum, p.cfg.TopPeaks)
	elapsed := time.Since(started)

	outcome := ClassificationOutcome{
		Event:            ev,
		Spectrum:         spectrum,
		Peaks:            peaks,
		SampleCount:      p.buffer.Len(),
		SpectrumDuration: elapsed,
	}
	if entry, ok := p.ledger.TryRecord(ev, block, p.buffer.Len(), p.now()); ok {
		outcome.Entry = &entry
		outcome.Recorded = true
	}

	for _, o := range p.observers {
		o.OnClassification(outcome)
	}
	return outcome
}

// Handle dispatches one message. Unknown kinds are ignored.
func (p *Pipeline) Handle(msg Message) {
	switch msg.Kind {
	case MessageSample:
		p.IngestSample(msg.Sample)
	case MessageClassification:
		p.HandleClassification(msg.Classification)
	}
}

// Run processes messages from src until it closes or ctx is cancelled. A
// source that closes with an error leaves the pipeline stopped and the error
// is returned as a *TransportError. Buffer and ledger survive, so the caller
// may restart by calling Run with a fresh source.
func (p *Pipeline) Run(ctx context.Context, src MessageSource) error {
	p.state = StateRunning
	msgs := src.Messages()
	for {
		select {
		case <-ctx.Done():
			p.state = StateStopped
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				p.state = StateStopped
				err := src.Err()
				if err == nil {
					return nil
				}
				var transportErr *TransportError
				if errors.As(err, &transportErr) {
					return err
				}
				return &TransportError{Cause: err}
			}
			p.Handle(msg)
		}
	}
}

func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) Stats() StatSnapshot { return p.stats }

// Samples returns a copy of every buffered sample, oldest first.
func (p *Pipeline) Samples() []Sample { return p.buffer.Recent(p.buffer.Len()) }

func (p *Pipeline) SampleCount() int { return p.buffer.Len() }

// History returns the ledger entries, newest first.
func (p *Pipeline) History() []HistoryEntry { return p.ledger.Entries() }

func (p *Pipeline) Config() Config { return p.cfg }
