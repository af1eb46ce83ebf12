package vibration

// Magnitude Spectrum
//
// The analyzer runs a direct discrete Fourier transform over one block of
// recent samples. A radix-2 FFT would be faster, but the block is capped at
// MaxBins (1024 by default) so the O(N^2) cost stays bounded and block sizes
// need not be powers of two.
//
// 1. N = min(len(samples), MaxBins). Fewer than 100 samples yields an empty
//    spectrum rather than an error.
// 2. For bin k: re = sum x[n]*cos(2*pi*k*n/N), im = -sum x[n]*sin(2*pi*k*n/N),
//    magnitude = sqrt(re^2 + im^2) / N.
// 3. Only bins k < N/2 are kept. The input is real-valued so the upper half
//    mirrors the lower half (Nyquist truncation).
// 4. Bin k maps to k * SamplingRate / N Hz.
// 5. The result is restricted to 0 < f <= MaxFrequency.
//
// Peaks sorts the spectrum by magnitude and takes the first k entries.
// Neighbouring bins of a single resonance can all rank highly; no minimum
// separation is enforced between the selected peaks.

import (
	"math"
	"sort"
)

// MinSpectrumSamples is the smallest block the analyzer will transform.
const MinSpectrumSamples = 100

// SpectralPeak is one bin of a magnitude spectrum.
type SpectralPeak struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// SpectralAnalyzer converts sample blocks into band-limited magnitude spectra.
type SpectralAnalyzer struct {
	SamplingRate float64
	MaxBins      int
	MaxFrequency float64
}

// NewSpectralAnalyzer creates an analyzer with the default block size and band.
func NewSpectralAnalyzer(samplingRate float64) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		SamplingRate: samplingRate,
		MaxBins:      DefaultMaxBins,
		MaxFrequency: DefaultMaxFrequency,
	}
}

// BinWidth is the frequency resolution in Hz for a block of n samples.
func (a *SpectralAnalyzer) BinWidth(n int) float64 {
	if n > a.MaxBins {
		n = a.MaxBins
	}
	if n <= 0 {
		return 0
	}
	return a.SamplingRate / float64(n)
}

// Spectrum returns the magnitude spectrum of the first min(len, MaxBins)
// samples, ordered by ascending frequency.
func (a *SpectralAnalyzer) Spectrum(samples []float64) []SpectralPeak {
	n := len(samples)
	if n > a.MaxBins {
		n = a.MaxBins
	}
	if n < MinSpectrumSamples {
		return []SpectralPeak{}
	}

	// cos/sin of 2*pi*m/N for m in [0, N). Bin k, sample j needs m = k*j mod N.
	cosTable := make([]float64, n)
	sinTable := make([]float64, n)
	for m := 0; m < n; m++ {
		angle := 2 * math.Pi * float64(m) / float64(n)
		cosTable[m] = math.Cos(angle)
		sinTable[m] = math.Sin(angle)
	}

	half := n / 2
	out := make([]SpectralPeak, 0, half)
	for k := 0; k < half; k++ {
		frequency := float64(k) * a.SamplingRate / float64(n)
		if frequency <= 0 || (a.MaxFrequency > 0 && frequency > a.MaxFrequency) {
			continue
		}

		var re, im float64
		idx := 0
		for j := 0; j < n; j++ {
			re += samples[j] * cosTable[idx]
			im -= samples[j] * sinTable[idx]
			idx += k
			if idx >= n {
				idx -= n
			}
		}

		out = append(out, SpectralPeak{
			Frequency: frequency,
			Magnitude: math.Sqrt(re*re+im*im) / float64(n),
		})
	}
	return out
}

// Peaks returns the k entries of spectrum with the largest magnitude, in
// descending magnitude order. Ties keep ascending frequency order.
func Peaks(spectrum []SpectralPeak, k int) []SpectralPeak {
	if k > len(spectrum) {
		k = len(spectrum)
	}
	if k <= 0 {
		return []SpectralPeak{}
	}

	sorted := make([]SpectralPeak, len(spectrum))
	copy(sorted, spectrum)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Magnitude > sorted[j].Magnitude
	})
	return sorted[:k]
}
