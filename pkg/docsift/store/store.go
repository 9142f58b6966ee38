package store

import (
	"context"
	"time"
)

// Store persists batch runs and their per-file outcomes.
type Store interface {
	Close() error

	// RecordRun inserts or replaces a run and all of its outcomes.
	RecordRun(ctx context.Context, r Run) error
	// GetRun returns a run with its outcomes.
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns the most recent runs first, without outcomes.
	// A limit of zero or less returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// FailureCounts tallies failed outcomes of a run by error kind.
	FailureCounts(ctx context.Context, id string) (map[string]int, error)
}

// Run is a stored batch run
type Run struct {
	ID         string
	InputRoot  string
	OutputRoot string
	Format     string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Canceled   bool
	Outcomes   []Outcome
}

// Outcome is one processed file of a run
type Outcome struct {
	Path     string
	Format   string
	OK       bool
	Kind     string
	Error    string
	Output   string
	Duration time.Duration
}
