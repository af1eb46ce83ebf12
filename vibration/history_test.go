package vibration

import (
	"fmt"
	"testing"
	"time"
)

var ledgerEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHistoryLedgerDebounce(t *testing.T) {
	t.Parallel()

	ledger := NewHistoryLedger(60*time.Second, 10)
	ev := ClassificationEvent{Label: "ball", Confidence: 0.8}

	if _, ok := ledger.TryRecord(ev, []float64{1}, 1, ledgerEpoch); !ok {
		t.Fatalf("first event was not accepted")
	}
	if _, ok := ledger.TryRecord(ev, []float64{1}, 2, ledgerEpoch.Add(10*time.Second)); ok {
		t.Fatalf("event 10s after acceptance was accepted")
	}
	if ledger.Len() != 1 {
		t.Fatalf("Len() = %d after debounced event, want 1", ledger.Len())
	}
	if _, ok := ledger.TryRecord(ev, []float64{1}, 3, ledgerEpoch.Add(60*time.Second)); ok {
		t.Fatalf("event exactly at the interval was accepted")
	}
	if _, ok := ledger.TryRecord(ev, []float64{1}, 4, ledgerEpoch.Add(61*time.Second)); !ok {
		t.Fatalf("event 61s after acceptance was rejected")
	}
	if ledger.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ledger.Len())
	}
}

func TestHistoryLedgerLimitAndOrder(t *testing.T) {
	t.Parallel()

	ledger := NewHistoryLedger(time.Minute, 10)
	for i := 0; i < 15; i++ {
		ev := ClassificationEvent{Label: fmt.Sprintf("event-%d", i), Confidence: 0.5}
		now := ledgerEpoch.Add(time.Duration(i) * 2 * time.Minute)
		if _, ok := ledger.TryRecord(ev, nil, i, now); !ok {
			t.Fatalf("event %d rejected", i)
		}
	}

	entries := ledger.Entries()
	if len(entries) != 10 {
		t.Fatalf("got %d entries, want 10", len(entries))
	}
	if entries[0].Label != "event-14" || entries[9].Label != "event-5" {
		t.Fatalf("entries not newest first: first=%s last=%s", entries[0].Label, entries[9].Label)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp >= entries[i-1].Timestamp {
			t.Fatalf("entry %d timestamp %s not older than %s", i, entries[i].Timestamp, entries[i-1].Timestamp)
		}
	}
}

func TestHistoryEntrySnapshot(t *testing.T) {
	t.Parallel()

	ledger := NewHistoryLedger(time.Minute, 10)
	signal := []float64{1, 2, 3}
	entry, ok := ledger.TryRecord(ClassificationEvent{Label: "normal", Confidence: 1.7}, signal, 3, ledgerEpoch)
	if !ok {
		t.Fatalf("event rejected")
	}
	signal[0] = 42

	if entry.Signal[0] != 1 || ledger.Entries()[0].Signal[0] != 1 {
		t.Fatalf("entry signal shares memory with the caller's slice")
	}
	if entry.Confidence != 1 {
		t.Fatalf("Confidence = %f, want clamped to 1", entry.Confidence)
	}
	if entry.Timestamp != "2024-03-01T12:00:00.000Z" {
		t.Fatalf("Timestamp = %q", entry.Timestamp)
	}
	if at, ok := ledger.LastAcceptedAt(); !ok || !at.Equal(ledgerEpoch) {
		t.Fatalf("LastAcceptedAt() = %v, %v", at, ok)
	}
}
