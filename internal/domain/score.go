package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ProbabilityPlaces is the number of decimal places kept in a ScoreResult.
const ProbabilityPlaces = 3

// Band thresholds. Comparisons are strict, so a probability of exactly
// HighThreshold is Moderate and exactly ModerateThreshold is Low.
const (
	HighThreshold     = 0.75
	ModerateThreshold = 0.5
)

// RiskBand is the qualitative classification of a probability.
type RiskBand string

const (
	BandLow      RiskBand = "Low"
	BandModerate RiskBand = "Moderate"
	BandHigh     RiskBand = "High"
)

// BandFor classifies a probability.
func BandFor(p float64) RiskBand {
	switch {
	case p > HighThreshold:
		return BandHigh
	case p > ModerateThreshold:
		return BandModerate
	default:
		return BandLow
	}
}

// Headline is the banner text shown next to a result.
func (b RiskBand) Headline() string {
	switch b {
	case BandHigh:
		return "High Risk of Civil Unrest"
	case BandModerate:
		return "Moderate Risk"
	default:
		return "Low Risk"
	}
}

// ScoreResult is the outcome of one evaluation. It is created fresh for every
// call and never mutated.
type ScoreResult struct {
	Probability float64  `json:"probability"`
	Band        RiskBand `json:"risk_band"`
	Z           float64  `json:"z"`
}

type scoreResultJSON struct {
	Probability *float64 `json:"probability"`
	Band        RiskBand `json:"risk_band"`
	Z           *float64 `json:"z"`
}

// MarshalJSON writes a non-finite probability or z as null. Extreme inputs
// overflow z to an infinity, which encoding/json refuses to encode.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreResultJSON{
		Probability: finiteOrNil(r.Probability),
		Band:        r.Band,
		Z:           finiteOrNil(r.Z),
	})
}

// UnmarshalJSON reads null as NaN.
func (r *ScoreResult) UnmarshalJSON(data []byte) error {
	var raw scoreResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ScoreResult{Probability: valueOrNaN(raw.Probability), Band: raw.Band, Z: valueOrNaN(raw.Z)}
	return nil
}

func finiteOrNil(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func valueOrNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}

// Percent formats the probability as a percentage with one decimal, e.g. "97.6%".
func (r ScoreResult) Percent() string {
	return fmt.Sprintf("%.1f%%", r.Probability*100)
}

func logistic(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// roundProbability rounds half-to-even at ProbabilityPlaces. The decimal is
// built from the shortest representation of p, so 0.7505 becomes 0.750.
// NaN and infinities pass through; decimal cannot represent them.
func roundProbability(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return p
	}
	r, _ := decimal.NewFromFloat(p).RoundBank(ProbabilityPlaces).Float64()
	return r
}
