package vibration

import "math"

// StatSnapshot summarises the trailing window of the buffer.
type StatSnapshot struct {
	Amplitude  float64 `json:"amplitude"`
	RMS        float64 `json:"rms"`
	PeakToPeak float64 `json:"peakToPeak"`
}

// ComputeStats derives amplitude, RMS and peak-to-peak over the last
// windowSize samples of buf (all of them if fewer exist). An empty buffer
// yields the zero snapshot.
func ComputeStats(buf *SampleBuffer, windowSize int) StatSnapshot {
	if windowSize <= 0 {
		windowSize = DefaultStatsWindow
	}
	return computeWindow(buf.Recent(windowSize))
}

func computeWindow(window []Sample) StatSnapshot {
	if len(window) == 0 {
		return StatSnapshot{}
	}

	var sumSquares float64
	minAmp := window[0].Amplitude
	maxAmp := window[0].Amplitude
	for _, s := range window {
		sumSquares += s.Amplitude * s.Amplitude
		if s.Amplitude < minAmp {
			minAmp = s.Amplitude
		}
		if s.Amplitude > maxAmp {
			maxAmp = s.Amplitude
		}
	}

	return StatSnapshot{
		Amplitude:  math.Abs(window[len(window)-1].Amplitude),
		RMS:        math.Sqrt(sumSquares / float64(len(window))),
		PeakToPeak: maxAmp - minAmp,
	}
}
