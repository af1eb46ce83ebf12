package classifier

import (
	"context"
	"sort"
)

// Class labels produced by the bearing fault model.
const (
	LabelBall      = "ball"
	LabelInnerRace = "inner_race"
	LabelNormal    = "normal"
	LabelOuterRace = "outer_race"
)

// Labels lists every class in the order the model reports probabilities.
var Labels = []string{LabelBall, LabelInnerRace, LabelNormal, LabelOuterRace}

// Result is one classification of a signal.
type Result struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      map[string]float64 `json:"features"`
}

// Classifier assigns a fault label to a signal of at least
// vibration.MinSignalLength samples.
type Classifier interface {
	Classify(ctx context.Context, signal []float64) (*Result, error)
}

// TimeDomainKeys are the feature names shown in the time-domain table. Every
// other key is treated as frequency-domain.
var TimeDomainKeys = map[string]struct{}{
	"rms":          {},
	"peak":         {},
	"peak_to_peak": {},
	"crest_factor": {},
	"kurtosis":     {},
	"skewness":     {},
	"std":          {},
}

// SplitFeatures partitions features by key membership in TimeDomainKeys.
func SplitFeatures(features map[string]float64) (timeDomain, frequencyDomain map[string]float64) {
	timeDomain = make(map[string]float64)
	frequencyDomain = make(map[string]float64)
	for k, v := range features {
		if _, ok := TimeDomainKeys[k]; ok {
			timeDomain[k] = v
		} else {
			frequencyDomain[k] = v
		}
	}
	return timeDomain, frequencyDomain
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
