// Package modelfile loads scoring models from YAML definitions.
//
// A definition names the model, sets the intercept and all seven
// coefficients, and optionally replaces the preset table:
//
//	name: baseline
//	intercept: -2.5
//	coefficients:
//	  economic_pressure: 1.2
//	  political_polarization: 0.9
//	  justice_trigger: 2.0
//	  social_media_virality: 1.1
//	  symbolic_timing: 1.5
//	  activist_infrastructure: 0.8
//	  history_of_unrest: 1.0
//	presets:
//	  - name: Los Angeles
//	    inputs: {economic_pressure: 0.6, political_polarization: 0.8, ...}
//
// Omitting presets keeps the built-in table; "presets: []" removes it.
package modelfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type document struct {
	Name         string       `yaml:"name" validate:"required,max=64"`
	Intercept    *float64     `yaml:"intercept" validate:"required"`
	Coefficients coefficients `yaml:"coefficients"`
	Presets      []presetDoc  `yaml:"presets" validate:"omitempty,dive"`
}

type coefficients struct {
	EconomicPressure       *float64 `yaml:"economic_pressure" validate:"required"`
	PoliticalPolarization  *float64 `yaml:"political_polarization" validate:"required"`
	JusticeTrigger         *float64 `yaml:"justice_trigger" validate:"required"`
	SocialMediaVirality    *float64 `yaml:"social_media_virality" validate:"required"`
	SymbolicTiming         *float64 `yaml:"symbolic_timing" validate:"required"`
	ActivistInfrastructure *float64 `yaml:"activist_infrastructure" validate:"required"`
	HistoryOfUnrest        *float64 `yaml:"history_of_unrest" validate:"required"`
}

// Preset inputs must lie in [0, 1]; unlike live submissions, presets are
// baselines and are never extrapolated.
type presetInputs struct {
	EconomicPressure       *float64 `yaml:"economic_pressure" validate:"required,min=0,max=1"`
	PoliticalPolarization  *float64 `yaml:"political_polarization" validate:"required,min=0,max=1"`
	JusticeTrigger         *float64 `yaml:"justice_trigger" validate:"required,min=0,max=1"`
	SocialMediaVirality    *float64 `yaml:"social_media_virality" validate:"required,min=0,max=1"`
	SymbolicTiming         *float64 `yaml:"symbolic_timing" validate:"required,min=0,max=1"`
	ActivistInfrastructure *float64 `yaml:"activist_infrastructure" validate:"required,min=0,max=1"`
	HistoryOfUnrest        *float64 `yaml:"history_of_unrest" validate:"required,min=0,max=1"`
}

type presetDoc struct {
	Name   string       `yaml:"name" validate:"required,max=64"`
	Inputs presetInputs `yaml:"inputs"`
}

// Load reads and validates a model definition from path.
func Load(path string) (*domain.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a YAML model definition.
func Parse(data []byte) (*domain.Model, error) {
	var doc document
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := validate.Struct(doc); err != nil {
		return nil, describe(err)
	}

	m := &domain.Model{
		Name:      doc.Name,
		Intercept: *doc.Intercept,
		Coefficients: domain.NewInputVector(
			*doc.Coefficients.EconomicPressure,
			*doc.Coefficients.PoliticalPolarization,
			*doc.Coefficients.JusticeTrigger,
			*doc.Coefficients.SocialMediaVirality,
			*doc.Coefficients.SymbolicTiming,
			*doc.Coefficients.ActivistInfrastructure,
			*doc.Coefficients.HistoryOfUnrest,
		),
		Presets: domain.DefaultPresets(),
	}

	if doc.Presets != nil {
		presets := make([]domain.Preset, len(doc.Presets))
		for i, p := range doc.Presets {
			presets[i] = domain.Preset{Name: p.Name, Inputs: p.Inputs.vector()}
		}
		table, err := domain.NewPresetTable(presets)
		if err != nil {
			return nil, err
		}
		m.Presets = table
	}

	return m, nil
}

// Encode renders a model as a YAML definition that Parse accepts.
func Encode(m *domain.Model) ([]byte, error) {
	w := m.Coefficients
	doc := document{
		Name:      m.Name,
		Intercept: &m.Intercept,
		Coefficients: coefficients{
			EconomicPressure:       &w.EconomicPressure,
			PoliticalPolarization:  &w.PoliticalPolarization,
			JusticeTrigger:         &w.JusticeTrigger,
			SocialMediaVirality:    &w.SocialMediaVirality,
			SymbolicTiming:         &w.SymbolicTiming,
			ActivistInfrastructure: &w.ActivistInfrastructure,
			HistoryOfUnrest:        &w.HistoryOfUnrest,
		},
		Presets: []presetDoc{},
	}
	for _, p := range m.Presets.Entries() {
		in := p.Inputs
		doc.Presets = append(doc.Presets, presetDoc{
			Name: p.Name,
			Inputs: presetInputs{
				EconomicPressure:       &in.EconomicPressure,
				PoliticalPolarization:  &in.PoliticalPolarization,
				JusticeTrigger:         &in.JusticeTrigger,
				SocialMediaVirality:    &in.SocialMediaVirality,
				SymbolicTiming:         &in.SymbolicTiming,
				ActivistInfrastructure: &in.ActivistInfrastructure,
				HistoryOfUnrest:        &in.HistoryOfUnrest,
			},
		})
	}
	return yaml.Marshal(doc)
}

func (p presetInputs) vector() domain.InputVector {
	return domain.NewInputVector(
		*p.EconomicPressure,
		*p.PoliticalPolarization,
		*p.JusticeTrigger,
		*p.SocialMediaVirality,
		*p.SymbolicTiming,
		*p.ActivistInfrastructure,
		*p.HistoryOfUnrest,
	)
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "document.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid model: %s", strings.Join(msgs, "; "))
}
