package domain

import (
	"errors"
	"fmt"
	"strings"
)

// CustomLabel is the selection that bypasses the preset table.
const CustomLabel = "Custom"

// CustomDefault is the starting value of every factor for a Custom selection.
const CustomDefault = 0.5

// ErrUnknownPreset is returned when a preset name is not in the table.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named baseline InputVector for a city.
type Preset struct {
	Name   string      `json:"name" yaml:"name"`
	Inputs InputVector `json:"inputs" yaml:"inputs"`
}

// PresetTable is a read-only, ordered name -> InputVector lookup.
type PresetTable struct {
	entries []Preset
	index   map[string]int
}

// NewPresetTable builds a table preserving the given order. Names must be
// non-empty, unique (case-insensitive) and must not shadow CustomLabel.
func NewPresetTable(entries []Preset) (*PresetTable, error) {
	t := &PresetTable{
		entries: make([]Preset, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, p := range entries {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errors.New("preset name is empty")
		}
		if strings.EqualFold(name, CustomLabel) {
			return nil, fmt.Errorf("preset %q shadows the %s selection", name, CustomLabel)
		}
		key := strings.ToLower(name)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("duplicate preset %q", name)
		}
		t.index[key] = len(t.entries)
		t.entries = append(t.entries, Preset{Name: name, Inputs: p.Inputs})
	}
	return t, nil
}

// DefaultPresets returns the canonical city table.
func DefaultPresets() *PresetTable {
	t, err := NewPresetTable([]Preset{
		{Name: "Los Angeles", Inputs: NewInputVector(0.6, 0.8, 0.8, 0.75, 0.6, 0.7, 0.9)},
		{Name: "New York", Inputs: NewInputVector(0.7, 0.85, 0.9, 0.8, 0.7, 0.7, 0.85)},
		{Name: "Washington DC", Inputs: NewInputVector(0.65, 0.9, 0.9, 0.7, 0.75, 0.8, 0.8)},
		{Name: "Boston", Inputs: NewInputVector(0.55, 0.75, 0.4, 0.5, 0.4, 0.6, 0.3)},
		{Name: "Miami", Inputs: NewInputVector(0.7, 0.7, 0.7, 0.6, 0.5, 0.5, 0.6)},
		{Name: "Dallas", Inputs: NewInputVector(0.5, 0.65, 0.3, 0.4, 0.35, 0.4, 0.3)},
		{Name: "Phoenix", Inputs: NewInputVector(0.6, 0.7, 0.4, 0.45, 0.4, 0.4, 0.35)},
		{Name: "Seattle", Inputs: NewInputVector(0.6, 0.8, 0.8, 0.7, 0.6, 0.65, 0.8)},
		{Name: "San Francisco", Inputs: NewInputVector(0.65, 0.85, 0.85, 0.8, 0.65, 0.75, 0.9)},
	})
	if err != nil {
		panic(err) // static table
	}
	return t
}

// Lookup returns the preset inputs for a city name (case-insensitive).
func (t *PresetTable) Lookup(name string) (InputVector, bool) {
	if t == nil {
		return InputVector{}, false
	}
	i, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return InputVector{}, false
	}
	return t.entries[i].Inputs, true
}

// Resolve returns the prefilled vector and display label for a selection.
// An empty name or CustomLabel yields the Custom default; any other name must
// exist in the table.
func (t *PresetTable) Resolve(name string) (InputVector, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, CustomLabel) {
		return Uniform(CustomDefault), CustomLabel, nil
	}
	in, ok := t.Lookup(name)
	if !ok {
		return InputVector{}, "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return in, t.entries[t.index[strings.ToLower(name)]].Name, nil
}

// Names returns city names in table order.
func (t *PresetTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.entries))
	for i, p := range t.entries {
		names[i] = p.Name
	}
	return names
}

// Entries returns a copy of the table rows.
func (t *PresetTable) Entries() []Preset {
	if t == nil {
		return nil
	}
	out := make([]Preset, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of presets.
func (t *PresetTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
