package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"vibration-monitor/db"
)

// Segment is one scenario worth of amplitude values.
type Segment struct {
	Scenario string
	Values   []float64
}

// SegmentSource yields scenario segments for the streamer, one at a time.
type SegmentSource interface {
	NextSegment(ctx context.Context, start time.Time, interval time.Duration) (Segment, error)
}

// ExampleGetter is the part of db.ExampleStore the real source needs.
type ExampleGetter interface {
	GetExample(ctx context.Context, category string) (db.Example, error)
}

const (
	RealSegmentLength   = 500
	RandomSegmentLength = 200
)

// ErrNoExamples is returned when the store holds no example for any category.
var ErrNoExamples = errors.New("no example segments available")

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRand) NormFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.NormFloat64()
}

// RealSource picks a random category per segment and replays the first
// RealSegmentLength values of its stored example.
type RealSource struct {
	store      ExampleGetter
	categories []string
	rnd        *lockedRand
}

func NewRealSource(store ExampleGetter, seed int64) *RealSource {
	return &RealSource{
		store:      store,
		categories: db.Categories,
		rnd:        newLockedRand(seed),
	}
}

func (s *RealSource) NextSegment(ctx context.Context, _ time.Time, _ time.Duration) (Segment, error) {
	// Categories missing from the store are skipped; give up once every
	// category has been tried without success.
	tried := make(map[string]bool, len(s.categories))
	for len(tried) < len(s.categories) {
		category := s.categories[s.rnd.Intn(len(s.categories))]
		if tried[category] {
			continue
		}
		tried[category] = true

		ex, err := s.store.GetExample(ctx, category)
		if errors.Is(err, db.ErrNotFound) || (err == nil && len(ex.Signal) == 0) {
			continue
		}
		if err != nil {
			return Segment{}, fmt.Errorf("failed to load example %s: %w", category, err)
		}

		values := ex.Signal
		if len(values) > RealSegmentLength {
			values = values[:RealSegmentLength]
		}
		out := make([]float64, len(values))
		copy(out, values)
		return Segment{Scenario: category, Values: out}, nil
	}
	return Segment{}, ErrNoExamples
}

const (
	ScenarioSimulatedFault = "simulated_fault"
	ScenarioSimulatedNoise = "simulated_noise"
)

// RandomSource alternates at random between a noisy low-frequency sine
// (simulated_fault) and low-level gaussian noise (simulated_noise). The sine
// is evaluated at the wall-clock time each value will be sent.
type RandomSource struct {
	rnd *lockedRand
}

func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rnd: newLockedRand(seed)}
}

func (s *RandomSource) NextSegment(ctx context.Context, start time.Time, interval time.Duration) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}

	noisy := s.rnd.Float64() > 0.5
	seg := Segment{Scenario: ScenarioSimulatedNoise, Values: make([]float64, RandomSegmentLength)}
	if noisy {
		seg.Scenario = ScenarioSimulatedFault
	}

	for i := range seg.Values {
		if noisy {
			t := unixSeconds(start.Add(time.Duration(i) * interval))
			seg.Values[i] = 0.5*math.Sin(10*t) + 0.2*s.rnd.NormFloat64()
		} else {
			seg.Values[i] = 0.05 * s.rnd.NormFloat64()
		}
	}
	return seg, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
