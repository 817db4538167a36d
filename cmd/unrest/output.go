package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
)

var (
	colorHigh     = lipgloss.Color("#E74C3C")
	colorModerate = lipgloss.Color("#F4D03F")
	colorLow      = lipgloss.Color("#2CD7C7")
	colorMuted    = lipgloss.Color("#7F8C8D")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	resultBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func bandColor(b domain.RiskBand) lipgloss.Color {
	switch b {
	case domain.BandHigh:
		return colorHigh
	case domain.BandModerate:
		return colorModerate
	default:
		return colorLow
	}
}

func renderAssessment(w io.Writer, a domain.Assessment) {
	band := lipgloss.NewStyle().Bold(true).Foreground(bandColor(a.Result.Band))
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(a.Label),
		"Estimated Probability: "+a.Result.Percent(),
		band.Render(a.Result.Band.Headline()),
	)
	fmt.Fprintln(w, resultBox.BorderForeground(bandColor(a.Result.Band)).Render(body))
}

func renderInputs(w io.Writer, in domain.InputVector) {
	for _, f := range domain.Factors {
		fmt.Fprintf(w, "  %-44s %.2f\n", f.Label(), in.Get(f))
	}
}

func renderHistory(w io.Writer, entries []domain.HistoryEntry) {
	fmt.Fprintln(w, headerStyle.Render("Session History"))
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no assessments yet"))
		return
	}
	for _, e := range entries {
		pct := domain.ScoreResult{Probability: e.Probability}.Percent()
		band := lipgloss.NewStyle().Foreground(bandColor(e.Band)).Render(string(e.Band))
		fmt.Fprintf(w, "  %s  %-16s %7s  %s\n", e.Date.Format("2006-01-02"), e.Label, pct, band)
	}
}

func renderPresets(w io.Writer, m *domain.Model) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Presets (model %s)", m.Name)))
	rows := append(m.Presets.Entries(), domain.Preset{Name: domain.CustomLabel, Inputs: domain.Uniform(domain.CustomDefault)})
	for _, p := range rows {
		r := m.Evaluate(p.Inputs)
		band := lipgloss.NewStyle().Foreground(bandColor(r.Band)).Render(string(r.Band))
		fmt.Fprintf(w, "  %-16s %7s  %-10s %s\n", p.Name, r.Percent(), band, mutedStyle.Render(formatVector(p.Inputs)))
	}
}

func renderHeadlines(w io.Writer, headlines []domain.Headline) {
	fmt.Fprintln(w, headerStyle.Render("Recent Headlines"))
	if len(headlines) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No headlines available."))
		return
	}
	for _, h := range headlines {
		fmt.Fprintf(w, "  - %s\n", h.Title)
		if h.Link != "" {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(h.Link))
		}
	}
}

func formatVector(in domain.InputVector) string {
	vals := in.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
