package vibration

// Sample is one amplitude reading. Time is in seconds and is expected to be
// non-decreasing, but the buffer does not enforce it.
type Sample struct {
	Time      float64 `json:"time"`
	Amplitude float64 `json:"amplitude"`
}

// SampleBuffer is a fixed-capacity FIFO of samples. When full, Append
// overwrites the oldest sample. It is not safe for concurrent use; the
// pipeline's ingestion path is its only writer.
type SampleBuffer struct {
	buf  []Sample
	head int // index of next write position
	len  int
}

// NewSampleBuffer creates a buffer holding at most capacity samples. A
// non-positive capacity falls back to DefaultBufferCapacity.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &SampleBuffer{buf: make([]Sample, capacity)}
}

// Append inserts s at the tail, evicting the head when the buffer is full.
func (b *SampleBuffer) Append(s Sample) {
	b.buf[b.head] = s
	b.head = (b.head + 1) % len(b.buf)
	if b.len < len(b.buf) {
		b.len++
	}
}

// Recent returns a copy of the last min(n, Len()) samples in insertion order.
func (b *SampleBuffer) Recent(n int) []Sample {
	if n > b.len {
		n = b.len
	}
	if n <= 0 {
		return []Sample{}
	}

	out := make([]Sample, n)
	start := (b.head - n + len(b.buf)) % len(b.buf)
	for i := 0; i < n; i++ {
		out[i] = b.buf[(start+i)%len(b.buf)]
	}
	return out
}

// RecentAmplitudes is Recent projected onto the amplitude values.
func (b *SampleBuffer) RecentAmplitudes(n int) []float64 {
	recent := b.Recent(n)
	out := make([]float64, len(recent))
	for i, s := range recent {
		out[i] = s.Amplitude
	}
	return out
}

// Latest returns the most recently appended sample.
func (b *SampleBuffer) Latest() (Sample, bool) {
	if b.len == 0 {
		return Sample{}, false
	}
	return b.buf[(b.head-1+len(b.buf))%len(b.buf)], true
}

func (b *SampleBuffer) Len() int { return b.len }

func (b *SampleBuffer) Cap() int { return len(b.buf) }
