package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakePrompter struct {
	submissions []submission
	err         error
	asked       int
}

func (p *fakePrompter) Submission(_ *domain.PresetTable) (submission, error) {
	if p.err != nil {
		return submission{}, p.err
	}
	s := p.submissions[p.asked]
	p.asked++
	return s, nil
}

func (p *fakePrompter) Again() (bool, error) {
	return p.asked < len(p.submissions), nil
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	if a.isTerminal == nil {
		a.isTerminal = func() bool { return true }
	}
	var buf bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func ptr(v float64) *float64 { return &v }

// --- score ---

func TestScore_CityJSON(t *testing.T) {
	out, err := execute(t, &app{}, "score", "--city", "Los Angeles", "--json")
	require.NoError(t, err)

	var got domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Los Angeles", got.Label)
	assert.Equal(t, 0.976, got.Result.Probability)
	assert.Equal(t, domain.BandHigh, got.Result.Band)
	assert.Equal(t, domain.DefaultModelName, got.Model)
}

func TestScore_FlagsOverridePreset(t *testing.T) {
	out, err := execute(t, &app{}, "score", "--city", "dallas", "--justice-trigger", "1", "--json")
	require.NoError(t, err)

	var got domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Dallas", got.Label)
	assert.Equal(t, 1.0, got.Inputs.JusticeTrigger)
	assert.Equal(t, 0.65, got.Inputs.PoliticalPolarization)
	assert.Equal(t, domain.BandHigh, got.Result.Band)
}

func TestScore_CustomDefault(t *testing.T) {
	out, err := execute(t, &app{}, "score", "--inputs")
	require.NoError(t, err)

	assert.Contains(t, out, "Custom")
	assert.Contains(t, out, "Estimated Probability: 85.2%")
	assert.Contains(t, out, "High Risk of Civil Unrest")
	assert.Contains(t, out, "Justice Trigger (e.g., police incident)")
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"out of range", []string{"score", "--economic-pressure", "1.5"}, "between 0 and 1"},
		{"negative", []string{"score", "--history-of-unrest", "-0.1"}, "between 0 and 1"},
		{"nan", []string{"score", "--symbolic-timing", "NaN"}, "between 0 and 1"},
		{"not a number", []string{"score", "--symbolic-timing", "high"}, "invalid argument"},
		{"unknown city", []string{"score", "--city", "Atlantis"}, "unknown preset"},
		{"positional args", []string{"score", "Boston"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, &app{}, tt.args...)
			require.Error(t, err)
			assert.Contains(t, out+err.Error(), tt.want)
		})
	}
}

func TestScore_ModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: flat
intercept: 0
coefficients:
  economic_pressure: 0
  political_polarization: 0
  justice_trigger: 0
  social_media_virality: 0
  symbolic_timing: 0
  activist_infrastructure: 0
  history_of_unrest: 0
`), 0o600))

	out, err := execute(t, &app{}, "--model", path, "score", "--city", "Boston", "--json")
	require.NoError(t, err)

	var got domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "flat", got.Model)
	assert.Equal(t, 0.5, got.Result.Probability)
	assert.Equal(t, domain.BandLow, got.Result.Band)
}

func TestScore_BadModelFile(t *testing.T) {
	_, err := execute(t, &app{}, "--model", filepath.Join(t.TempDir(), "missing.yaml"), "score")
	require.Error(t, err)
}

// --- presets ---

func TestPresets_Table(t *testing.T) {
	out, err := execute(t, &app{}, "presets")
	require.NoError(t, err)

	for _, name := range domain.DefaultPresets().Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, domain.CustomLabel)
	assert.Contains(t, out, "70.5%") // Dallas
}

func TestPresets_JSON(t *testing.T) {
	out, err := execute(t, &app{}, "presets", "--json")
	require.NoError(t, err)

	var got []domain.Preset
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.DefaultPresets().Entries(), got)
}

// --- form ---

func TestForm_RequiresTerminal(t *testing.T) {
	a := &app{isTerminal: func() bool { return false }, prompter: &fakePrompter{}}
	_, err := execute(t, a, "form")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}

func TestForm_AccumulatesHistory(t *testing.T) {
	p := &fakePrompter{submissions: []submission{
		{City: "Miami"},
		{City: domain.CustomLabel, Inputs: domain.Override{JusticeTrigger: ptr(0)}},
	}}
	out, err := execute(t, &app{prompter: p}, "form")
	require.NoError(t, err)

	assert.Equal(t, 2, p.asked)
	assert.Contains(t, out, "94.2%")
	assert.Equal(t, 2, strings.Count(out, "Session History"))

	last := out[strings.LastIndex(out, "Session History"):]
	assert.Contains(t, last, "Miami")
	assert.Contains(t, last, domain.CustomLabel)
}

func TestForm_AbortIsNotAnError(t *testing.T) {
	_, err := execute(t, &app{prompter: &fakePrompter{err: errAborted}}, "form")
	require.NoError(t, err)
}

func TestForm_PrompterError(t *testing.T) {
	_, err := execute(t, &app{prompter: &fakePrompter{err: errors.New("tty gone")}}, "form")
	require.ErrorContains(t, err, "tty gone")
}

func TestCityOptions_CustomFirst(t *testing.T) {
	presets := domain.DefaultPresets()
	opts := cityOptions(presets)

	require.Len(t, opts, presets.Len()+1)
	assert.Equal(t, domain.CustomLabel, opts[0])
	assert.Equal(t, presets.Names(), opts[1:])
}

func TestParseFactor(t *testing.T) {
	for _, s := range []string{"0", "1", "0.35", ".5"} {
		_, err := parseFactor(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "abc", "1.01", "-1", "NaN"} {
		_, err := parseFactor(s)
		assert.Error(t, err, s)
	}
}

// --- headlines ---

const rss = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Transit strike enters second week</title><link>https://news.example/1</link></item>
  <item><title>City council delays budget vote</title><link>https://news.example/2</link></item>
  <item><title>Third story</title><link>https://news.example/3</link></item>
</channel></rss>`

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss))
	}))
	defer srv.Close()

	out, err := execute(t, &app{}, "headlines", "--feed", srv.URL, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Transit strike enters second week")
	assert.Contains(t, out, "https://news.example/2")
	assert.NotContains(t, out, "Third story")
}

func TestHeadlines_FailSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	out, err := execute(t, &app{}, "headlines", "--feed", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "No headlines available.")
}

func TestHeadlines_RequiresFeed(t *testing.T) {
	t.Setenv("FEED_URL", "")
	_, err := execute(t, &app{}, "headlines")
	require.ErrorContains(t, err, "--feed is required")
}
