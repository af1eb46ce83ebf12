package vibration

import "time"

// TimestampLayout renders history timestamps as millisecond ISO-8601 in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ClassificationEvent is one verdict from the external classifier.
type ClassificationEvent struct {
	Label         string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Scenario      *string            `json:"scenario"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Features      map[string]float64 `json:"features,omitempty"`
}

// HistoryEntry is an accepted diagnostic event. Entries are never modified
// after creation.
type HistoryEntry struct {
	Timestamp   string    `json:"timestamp"`
	Label       string    `json:"prediction"`
	Confidence  float64   `json:"confidence"`
	SampleCount int       `json:"sampleCount"`
	Signal      []float64 `json:"signal"`
}

// HistoryLedger keeps the most recent accepted classification events,
// newest first, accepting at most one event per MinInterval.
type HistoryLedger struct {
	minInterval    time.Duration
	limit          int
	entries        []HistoryEntry
	lastAcceptedAt time.Time
	accepted       bool
}

// NewHistoryLedger creates a ledger. Non-positive arguments fall back to
// DefaultHistoryInterval and DefaultHistoryLimit.
func NewHistoryLedger(minInterval time.Duration, limit int) *HistoryLedger {
	if minInterval <= 0 {
		minInterval = DefaultHistoryInterval
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryLedger{
		minInterval: minInterval,
		limit:       limit,
		entries:     make([]HistoryEntry, 0, limit),
	}
}

// TryRecord appends an entry for event when no event has been accepted yet
// or more than MinInterval has passed since the last acceptance. It reports
// whether the entry was stored.
func (l *HistoryLedger) TryRecord(event ClassificationEvent, signal []float64, sampleCount int, now time.Time) (HistoryEntry, bool) {
	if l.accepted && now.Sub(l.lastAcceptedAt) <= l.minInterval {
		return HistoryEntry{}, false
	}
	l.accepted = true
	l.lastAcceptedAt = now

	snapshot := make([]float64, len(signal))
	copy(snapshot, signal)

	entry := HistoryEntry{
		Timestamp:   now.UTC().Format(TimestampLayout),
		Label:       event.Label,
		Confidence:  clampUnit(event.Confidence),
		SampleCount: sampleCount,
		Signal:      snapshot,
	}

	l.entries = append([]HistoryEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	return entry, true
}

// Entries returns the stored entries, newest first.
func (l *HistoryLedger) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *HistoryLedger) Len() int { return len(l.entries) }

// LastAcceptedAt returns the time of the last accepted event, if any.
func (l *HistoryLedger) LastAcceptedAt() (time.Time, bool) {
	return l.lastAcceptedAt, l.accepted
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
