package vibration

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSampleBufferEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	buf := NewSampleBuffer(3)
	for i := 1; i <= 4; i++ {
		buf.Append(Sample{Time: float64(i), Amplitude: float64(i * 10)})
	}

	if buf.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", buf.Len())
	}
	if buf.Cap() != 3 {
		t.Fatalf("Cap() = %d, want 3", buf.Cap())
	}

	want := []Sample{{Time: 2, Amplitude: 20}, {Time: 3, Amplitude: 30}, {Time: 4, Amplitude: 40}}
	if diff := cmp.Diff(want, buf.Recent(10)); diff != "" {
		t.Fatalf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleBufferRecentReturnsTail(t *testing.T) {
	t.Parallel()

	buf := NewSampleBuffer(5)
	for i := 0; i < 7; i++ {
		buf.Append(Sample{Time: float64(i), Amplitude: float64(i)})
	}

	got := buf.RecentAmplitudes(2)
	if diff := cmp.Diff([]float64{5, 6}, got); diff != "" {
		t.Fatalf("RecentAmplitudes mismatch (-want +got):\n%s", diff)
	}

	latest, ok := buf.Latest()
	if !ok || latest.Amplitude != 6 {
		t.Fatalf("Latest() = %+v, %v; want amplitude 6", latest, ok)
	}
}

func TestSampleBufferEmpty(t *testing.T) {
	t.Parallel()

	buf := NewSampleBuffer(0)
	if buf.Cap() != DefaultBufferCapacity {
		t.Fatalf("Cap() = %d, want default %d", buf.Cap(), DefaultBufferCapacity)
	}
	if got := buf.Recent(5); len(got) != 0 {
		t.Fatalf("Recent on empty buffer returned %d samples", len(got))
	}
	if _, ok := buf.Latest(); ok {
		t.Fatalf("Latest on empty buffer reported a sample")
	}
}

func TestSampleBufferRecentIsACopy(t *testing.T) {
	t.Parallel()

	buf := NewSampleBuffer(4)
	buf.Append(Sample{Time: 0, Amplitude: 1})
	got := buf.Recent(1)
	got[0].Amplitude = 99

	if latest, _ := buf.Latest(); latest.Amplitude != 1 {
		t.Fatalf("mutating Recent result changed the buffer: %+v", latest)
	}
}
