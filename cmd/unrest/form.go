package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
)

// errAborted is returned by a prompter when the user cancels (ctrl+c, esc).
var errAborted = errors.New("aborted")

// submission is one completed form: the selected city and the full, possibly
// edited, factor vector.
type submission struct {
	City   string
	Inputs domain.Override
}

type prompter interface {
	Submission(presets *domain.PresetTable) (submission, error)
	Again() (bool, error)
}

// huhPrompter asks for a city first, then shows the seven factors prefilled
// from that city's preset for editing.
type huhPrompter struct{}

func (huhPrompter) Submission(presets *domain.PresetTable) (submission, error) {
	city := domain.CustomLabel
	options := huh.NewOptions(cityOptions(presets)...)
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("City").
			Description("Prefills the factors below; Custom starts every factor at 0.5").
			Options(options...).
			Value(&city),
	)).Run()
	if err != nil {
		return submission{}, huhErr(err)
	}

	base, _, err := presets.Resolve(city)
	if err != nil {
		return submission{}, err
	}

	values := make([]string, len(domain.Factors))
	fields := make([]huh.Field, len(domain.Factors))
	for i, f := range domain.Factors {
		values[i] = strconv.FormatFloat(base.Get(f), 'f', -1, 64)
		fields[i] = huh.NewInput().
			Title(f.Label()).
			Value(&values[i]).
			Validate(validateFactor)
	}
	if err := huh.NewForm(huh.NewGroup(fields...).Title(city)).Run(); err != nil {
		return submission{}, huhErr(err)
	}

	var ov domain.Override
	for i, f := range domain.Factors {
		v, err := parseFactor(values[i])
		if err != nil {
			return submission{}, fmt.Errorf("%s: %w", f.Label(), err)
		}
		ov = setOverride(ov, f, v)
	}
	return submission{City: city, Inputs: ov}, nil
}

// cityOptions lists Custom first, then the presets in table order.
func cityOptions(presets *domain.PresetTable) []string {
	return append([]string{domain.CustomLabel}, presets.Names()...)
}

func (huhPrompter) Again() (bool, error) {
	again := true
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Assess another?").
			Affirmative("Yes").
			Negative("No").
			Value(&again),
	)).Run()
	if err != nil {
		return false, huhErr(err)
	}
	return again, nil
}

func huhErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	return err
}

func validateFactor(s string) error {
	_, err := parseFactor(s)
	return err
}

func parseFactor(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("enter a number")
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, errors.New("must be between 0 and 1")
	}
	return v, nil
}
