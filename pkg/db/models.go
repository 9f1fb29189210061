package db

import "time"

// Source is a provenance record for a processed document.
type Source struct {
	ID                    int64
	SourceType            string
	Title                 string
	Author                string
	Website               string
	URL                   string
	Language              string
	AddedAt               time.Time
	LastProcessedSentence int
}

// Triple is a stored relation triple with its occurrence statistics.
type Triple struct {
	ID              int64
	SourceID        int64
	Subject         string
	Label           string
	Object          string
	Origin          string
	Modifiers       []string
	Attributes      []string
	Sentence        string
	RunID           string
	OccurrenceCount int
	FirstSeenAt     time.Time
}

// Run records one extraction run over a source.
type Run struct {
	ID         string
	SourceID   int64
	Language   string
	Rules      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Sentences  int
	Skipped    int
	Triples    int
}

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)
