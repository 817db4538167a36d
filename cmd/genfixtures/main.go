// Command genfixtures evaluates every preset of a scoring model, plus the
// Custom default, and writes the results as a JSON fixture for the assess
// test suite. It uses the domain package directly so the fixture always
// matches real scoring behavior.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures/preset_assessments.json
//	go run ./cmd/genfixtures -model deploy/model.yaml -out /tmp/fixture.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/modelfile"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var generatedAt = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	Model       string              `json:"model"`
	GeneratedAt time.Time           `json:"generated_at"`
	Assessments []domain.Assessment `json:"assessments"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	modelPath := flag.String("model", "", "model definition file (default: built-in model)")
	out := flag.String("out", "", "output path for the preset assessment fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	model := domain.DefaultModel()
	if *modelPath != "" {
		m, err := modelfile.Load(*modelPath)
		if err != nil {
			return err
		}
		model = m
	}

	// Fixed clock for reproducible assessed_at timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	fx := fixture{
		Model:       model.Name,
		GeneratedAt: generatedAt,
		Assessments: make([]domain.Assessment, 0, model.Presets.Len()+1),
	}
	for _, p := range model.Presets.Entries() {
		fx.Assessments = append(fx.Assessments, assessment(model, p.Name, p.Inputs))
	}
	fx.Assessments = append(fx.Assessments, assessment(model, domain.CustomLabel, domain.Uniform(domain.CustomDefault)))

	if err := writeJSON(*out, fx); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d assessments to %s", len(fx.Assessments), *out)

	printStats(fx.Assessments)
	return nil
}

// assessment builds a fixture entry. IDs are name-derived so regenerating the
// fixture produces no diff.
func assessment(m *domain.Model, label string, in domain.InputVector) domain.Assessment {
	return domain.Assessment{
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte("unrest-preset:"+label)).String(),
		Label:      label,
		Inputs:     in,
		Result:     m.Evaluate(in),
		Model:      m.Name,
		AssessedAt: domain.Now().UTC(),
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(assessments []domain.Assessment) {
	counts := map[domain.RiskBand]int{}
	for _, a := range assessments {
		counts[a.Result.Band]++
		log.Printf("  %-16s %6s  %s", a.Label, a.Result.Percent(), a.Result.Band)
	}
	log.Printf("bands: %d High, %d Moderate, %d Low",
		counts[domain.BandHigh], counts[domain.BandModerate], counts[domain.BandLow])
}
