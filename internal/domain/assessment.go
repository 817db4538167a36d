package domain

import (
	"context"
	"time"
)

// Assessment is a scored submission as published to downstream consumers.
type Assessment struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id,omitempty"`
	Label      string      `json:"label"`
	Inputs     InputVector `json:"inputs"`
	Result     ScoreResult `json:"result"`
	Model      string      `json:"model"`
	AssessedAt time.Time   `json:"assessed_at"`
}

// Headline is a single news feed item.
type Headline struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published,omitempty"`
}

// HeadlineFetcher retrieves recent headlines from a feed. Implementations
// fail soft: any fetch or parse failure yields an empty slice.
type HeadlineFetcher interface {
	FetchHeadlines(ctx context.Context, feedURL string, limit int) []Headline
}
