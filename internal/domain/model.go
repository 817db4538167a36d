package domain

// DefaultModelName identifies the built-in coefficient set.
const DefaultModelName = "baseline"

// Model is a parameterized scoring engine: an intercept plus one coefficient
// per factor, and the preset table offered alongside it.
type Model struct {
	Name         string
	Intercept    float64
	Coefficients InputVector
	Presets      *PresetTable
}

// DefaultModel returns the built-in model with the canonical preset table.
func DefaultModel() *Model {
	return &Model{
		Name:      DefaultModelName,
		Intercept: -2.5,
		Coefficients: InputVector{
			EconomicPressure:       1.2,
			PoliticalPolarization:  0.9,
			JusticeTrigger:         2.0,
			SocialMediaVirality:    1.1,
			SymbolicTiming:         1.5,
			ActivistInfrastructure: 0.8,
			HistoryOfUnrest:        1.0,
		},
		Presets: DefaultPresets(),
	}
}

var defaultModel = DefaultModel()

// Evaluate scores an InputVector with the built-in model.
func Evaluate(in InputVector) ScoreResult {
	return defaultModel.Evaluate(in)
}

// LinearPredictor returns Z, accumulated from the intercept in canonical
// factor order.
func (m *Model) LinearPredictor(in InputVector) float64 {
	w := m.Coefficients.Values()
	x := in.Values()
	z := m.Intercept
	for i := range w {
		z += w[i] * x[i]
	}
	return z
}

// Evaluate maps an InputVector to a probability and risk band. It has no side
// effects and accepts values outside [0, 1].
func (m *Model) Evaluate(in InputVector) ScoreResult {
	z := m.LinearPredictor(in)
	p := roundProbability(logistic(z))
	return ScoreResult{
		Probability: p,
		Band:        BandFor(p),
		Z:           z,
	}
}

// Monotonic reports whether every coefficient is non-negative, i.e. raising a
// single factor can never lower the probability.
func (m *Model) Monotonic() bool {
	for _, w := range m.Coefficients.Values() {
		if w < 0 {
			return false
		}
	}
	return true
}
