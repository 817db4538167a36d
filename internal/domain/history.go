package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used for history entries.
const DateLayout = time.DateOnly

// HistoryEntry is one past evaluation as shown in a session's history.
type HistoryEntry struct {
	Date        time.Time `json:"-"`
	Label       string    `json:"label"`
	Probability float64   `json:"probability"`
	Band        RiskBand  `json:"risk_band"`
}

// CalendarDate truncates t to midnight UTC of its UTC calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type historyEntryJSON struct {
	Date        string   `json:"date"`
	Label       string   `json:"label"`
	Probability *float64 `json:"probability"`
	Band        RiskBand `json:"risk_band"`
}

// MarshalJSON renders Date as YYYY-MM-DD and a non-finite probability as null.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(historyEntryJSON{
		Date:        h.Date.Format(DateLayout),
		Label:       h.Label,
		Probability: finiteOrNil(h.Probability),
		Band:        h.Band,
	})
}

// UnmarshalJSON parses the YYYY-MM-DD date form written by MarshalJSON.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	*h = HistoryEntry{Date: date, Label: raw.Label, Probability: valueOrNaN(raw.Probability), Band: raw.Band}
	return nil
}
