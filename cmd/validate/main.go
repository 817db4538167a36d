// Command validate performs integrity checks on a scoring model definition and,
// optionally, on a preset assessment fixture generated from it. It verifies the
// schema, coefficient signs, preset ranges, band boundaries and that the
// fixture still matches what the model produces.
//
// Usage:
//
//	go run ./cmd/validate
//	go run ./cmd/validate -model deploy/model.yaml
//	go run ./cmd/validate -fixture data/fixtures/preset_assessments.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/modelfile"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type fixture struct {
	Model       string              `json:"model"`
	GeneratedAt time.Time           `json:"generated_at"`
	Assessments []domain.Assessment `json:"assessments"`
}

func main() {
	modelPath := flag.String("model", "", "model definition file (default: built-in model)")
	fixturePath := flag.String("fixture", "", "preset assessment fixture to cross-check (optional)")
	flag.Parse()

	if code := run(*modelPath, *fixturePath); code != 0 {
		os.Exit(code)
	}
}

func run(modelPath, fixturePath string) int {
	fmt.Println("=== Unrest Risk Model Validation ===")
	fmt.Println()

	schema := &phase{name: "Phase 1: Model schema"}
	model := domain.DefaultModel()
	source := "built-in"
	if modelPath != "" {
		m, err := modelfile.Load(modelPath)
		if err != nil {
			schema.errorf("%v", err)
		} else {
			model = m
			source = modelPath
		}
	}

	phases := []*phase{schema}
	if schema.passed() {
		phases = append(phases,
			validateCoefficients(model),
			validatePresets(model),
			validateBoundaries(model),
		)
		if fixturePath != "" {
			phases = append(phases, validateFixture(model, fixturePath))
		}
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Model: %s (%s), %d presets\n", model.Name, source, model.Presets.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateCoefficients checks that every weight is finite and non-negative so
// raising a single factor can never lower the probability.
func validateCoefficients(m *domain.Model) *phase {
	p := &phase{name: "Phase 2: Coefficient signs"}
	if !finite(m.Intercept) {
		p.errorf("intercept is not finite: %v", m.Intercept)
	}
	for _, f := range domain.Factors {
		w := m.Coefficients.Get(f)
		switch {
		case !finite(w):
			p.errorf("%s: coefficient is not finite: %v", f, w)
		case w < 0:
			p.errorf("%s: coefficient %v is negative", f, w)
		}
	}
	return p
}

func validatePresets(m *domain.Model) *phase {
	p := &phase{name: "Phase 3: Preset ranges"}
	if m.Presets.Len() == 0 {
		fmt.Println("  Note: model defines no presets; only Custom is selectable")
	}
	for _, preset := range m.Presets.Entries() {
		if !preset.Inputs.InRange() {
			p.errorf("%s: inputs outside [0, 1]: %+v", preset.Name, preset.Inputs)
			continue
		}
		checkResult(p, preset.Name, m.Evaluate(preset.Inputs))
	}
	checkResult(p, domain.CustomLabel, m.Evaluate(domain.Uniform(domain.CustomDefault)))
	return p
}

// validateBoundaries exercises the band thresholds and the per-factor
// monotonicity of the model over the unit cube.
func validateBoundaries(m *domain.Model) *phase {
	p := &phase{name: "Phase 4: Boundary behavior"}

	bands := []struct {
		prob float64
		want domain.RiskBand
	}{
		{0, domain.BandLow},
		{domain.ModerateThreshold, domain.BandLow},
		{domain.ModerateThreshold + 0.001, domain.BandModerate},
		{domain.HighThreshold, domain.BandModerate},
		{domain.HighThreshold + 0.001, domain.BandHigh},
		{1, domain.BandHigh},
	}
	for _, tc := range bands {
		if got := domain.BandFor(tc.prob); got != tc.want {
			p.errorf("BandFor(%v) = %s, want %s", tc.prob, got, tc.want)
		}
	}

	lo := m.Evaluate(domain.Uniform(0))
	hi := m.Evaluate(domain.Uniform(1))
	checkResult(p, "all-zero", lo)
	checkResult(p, "all-one", hi)
	if !floatEq(lo.Z, m.Intercept) {
		p.errorf("all-zero Z = %v, want intercept %v", lo.Z, m.Intercept)
	}

	for _, base := range []float64{0, domain.CustomDefault} {
		start := domain.Uniform(base)
		before := m.Evaluate(start)
		for _, f := range domain.Factors {
			after := m.Evaluate(start.With(f, 1))
			if after.Probability < before.Probability {
				p.errorf("raising %s from %v to 1 lowered probability %v -> %v",
					f, base, before.Probability, after.Probability)
			}
		}
	}
	return p
}

// validateFixture re-scores every fixture entry and compares it with the
// recorded result.
func validateFixture(m *domain.Model, path string) *phase {
	p := &phase{name: "Phase 5: Fixture consistency"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		p.errorf("decode fixture: %v", err)
		return p
	}

	// Same fixed clock as genfixtures so AssessedAt matches.
	domain.SetClock(clockwork.NewFakeClockAt(fx.GeneratedAt))
	defer domain.SetClock(nil)

	if fx.Model != m.Name {
		p.errorf("fixture model %q, want %q", fx.Model, m.Name)
	}

	seen := make(map[string]bool, len(fx.Assessments))
	for _, want := range fx.Assessments {
		seen[want.Label] = true
		base, label, err := m.Presets.Resolve(want.Label)
		if err != nil {
			p.errorf("%s: %v", want.Label, err)
			continue
		}
		if base != want.Inputs {
			p.errorf("%s: inputs drifted: fixture %+v, model %+v", label, want.Inputs, base)
		}
		got := m.Evaluate(base)
		if got.Probability != want.Result.Probability || got.Band != want.Result.Band {
			p.errorf("%s: fixture %v %s, model %v %s",
				label, want.Result.Probability, want.Result.Band, got.Probability, got.Band)
		}
		if !floatEq(got.Z, want.Result.Z) {
			p.errorf("%s: fixture z %v, model z %v", label, want.Result.Z, got.Z)
		}
		if !want.AssessedAt.Equal(domain.Now()) {
			p.errorf("%s: assessed_at %s does not match generated_at", label, want.AssessedAt.Format(time.RFC3339))
		}
	}

	for _, name := range append(m.Presets.Names(), domain.CustomLabel) {
		if !seen[name] {
			p.errorf("%s: missing from fixture", name)
		}
	}
	return p
}

func checkResult(p *phase, label string, r domain.ScoreResult) {
	if math.IsNaN(r.Probability) || r.Probability < 0 || r.Probability > 1 {
		p.errorf("%s: probability %v outside [0, 1]", label, r.Probability)
		return
	}
	if r.Band != domain.BandFor(r.Probability) {
		p.errorf("%s: band %s inconsistent with probability %v", label, r.Band, r.Probability)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
