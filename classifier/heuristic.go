package classifier

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vibration-monitor/vibration"
)

// Characteristic defect frequencies (Hz) of the reference bearing at the
// default sampling rate. Normal operation is dominated by shaft rotation.
var faultFrequencies = map[string]float64{
	LabelNormal:    30,
	LabelOuterRace: 250,
	LabelInnerRace: 297,
	LabelBall:      400,
}

// FaultFrequency returns the characteristic frequency of a class label.
func FaultFrequency(label string) (float64, bool) {
	f, ok := faultFrequencies[label]
	return f, ok
}

// Heuristic is a model-free classifier used when no classification service
// is configured. It scores each class by how close the dominant spectral
// frequency sits to the class defect frequency and how impulsive the signal
// is, then turns the scores into probabilities with a softmax.
type Heuristic struct {
	analyzer *vibration.SpectralAnalyzer
	// Bandwidth is the frequency distance (Hz) that costs one unit of score.
	Bandwidth float64
}

// NewHeuristic creates a heuristic classifier for signals sampled at
// samplingRate Hz.
func NewHeuristic(samplingRate float64) *Heuristic {
	if samplingRate <= 0 {
		samplingRate = vibration.DefaultSamplingRate
	}
	return &Heuristic{
		analyzer: &vibration.SpectralAnalyzer{
			SamplingRate: samplingRate,
			MaxBins:      2048,
			MaxFrequency: samplingRate / 2,
		},
		Bandwidth: 60,
	}
}

func (h *Heuristic) Classify(ctx context.Context, signal []float64) (*Result, error) {
	if err := vibration.ValidateSignal(signal); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := h.ExtractFeatures(signal)

	scores := make([]float64, len(Labels))
	for i, label := range Labels {
		distance := (features["freq_peak"] - faultFrequencies[label]) / h.Bandwidth
		scores[i] = -distance * distance
		// Defects produce impacts, which show up as positive excess kurtosis.
		if label == LabelNormal {
			scores[i] -= math.Max(features["kurtosis"], 0) / 2
		} else {
			scores[i] += math.Max(features["kurtosis"], 0) / 6
		}
	}

	lse := floats.LogSumExp(scores)
	probabilities := make(map[string]float64, len(Labels))
	best := 0
	for i, label := range Labels {
		probabilities[label] = math.Exp(scores[i] - lse)
		if scores[i] > scores[best] {
			best = i
		}
	}

	return &Result{
		Prediction:    Labels[best],
		Confidence:    probabilities[Labels[best]],
		Probabilities: probabilities,
		Features:      features,
	}, nil
}

// ExtractFeatures computes the time and frequency domain descriptors the
// classification service reports for a signal.
func (h *Heuristic) ExtractFeatures(signal []float64) map[string]float64 {
	mean, std := stat.PopMeanStdDev(signal, nil)

	absSignal := make([]float64, len(signal))
	sqrtAbs := make([]float64, len(signal))
	var sumSquares float64
	for i, v := range signal {
		absSignal[i] = math.Abs(v)
		sqrtAbs[i] = math.Sqrt(absSignal[i])
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(len(signal)))
	peak := floats.Max(absSignal)
	absMean := stat.Mean(absSignal, nil)
	sqrtAbsMean := stat.Mean(sqrtAbs, nil)

	features := map[string]float64{
		"mean":             mean,
		"std":              std,
		"rms":              rms,
		"peak":             peak,
		"peak_to_peak":     floats.Max(signal) - floats.Min(signal),
		"crest_factor":     safeRatio(peak, rms),
		"skewness":         zeroIfNaN(stat.Skew(signal, nil)),
		"kurtosis":         zeroIfNaN(stat.ExKurtosis(signal, nil)),
		"clearance_factor": safeRatio(peak, sqrtAbsMean*sqrtAbsMean),
		"shape_factor":     safeRatio(rms, absMean),
		"impulse_factor":   safeRatio(peak, absMean),
	}

	spectrum := h.analyzer.Spectrum(signal)
	freqs := make([]float64, len(spectrum))
	psd := make([]float64, len(spectrum))
	for i, bin := range spectrum {
		freqs[i] = bin.Frequency
		psd[i] = bin.Magnitude * bin.Magnitude
	}

	var freqMean, freqStd, freqPeak float64
	if total := floats.Sum(psd); total > 0 {
		freqMean = floats.Dot(freqs, psd) / total
		var spread float64
		for i, f := range freqs {
			spread += psd[i] * (f - freqMean) * (f - freqMean)
		}
		freqStd = math.Sqrt(spread / total)
		freqPeak = freqs[floats.MaxIdx(psd)]
	}
	features["freq_mean"] = freqMean
	features["freq_std"] = freqStd
	features["freq_peak"] = freqPeak

	return features
}

func safeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
