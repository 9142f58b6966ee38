package batch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
	"github.com/cognicore/docsift/pkg/docsift/reader"
)

// ErrDuplicateOutcome is returned when a path is recorded twice.
var ErrDuplicateOutcome = errors.New("outcome already recorded for path")

// Outcome is the result of processing one file.
type Outcome struct {
	Path   string           `json:"path"`
	Format reader.Format    `json:"format,omitempty"`
	OK     bool             `json:"ok"`
	Kind   internalerr.Kind `json:"kind,omitempty"`
	Error  string           `json:"error,omitempty"`
	// Output is the written file, empty on failure.
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary aggregates the outcomes of one run. Recording is safe for
// concurrent use; read the exported fields only after Run returns.
type Summary struct {
	RunID      string
	Total      int
	Succeeded  int
	Failed     int
	Canceled   bool
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

func newSummary(runID string, started time.Time, expected int) *Summary {
	return &Summary{
		RunID:     runID,
		StartedAt: started,
		Outcomes:  make([]Outcome, 0, expected),
		seen:      make(map[string]struct{}, expected),
	}
}

func (s *Summary) record(o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[o.Path]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateOutcome, o.Path)
	}
	s.seen[o.Path] = struct{}{}

	s.Outcomes = append(s.Outcomes, o)
	s.Total++
	if o.OK {
		s.Succeeded++
	} else {
		s.Failed++
	}
	return nil
}

func (s *Summary) done() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Total
}

func (s *Summary) finish(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.Slice(s.Outcomes, func(i, j int) bool { return s.Outcomes[i].Path < s.Outcomes[j].Path })
	s.FinishedAt = at
}

// Failures returns the failed outcomes in path order.
func (s *Summary) Failures() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Outcome
	for _, o := range s.Outcomes {
		if !o.OK {
			out = append(out, o)
		}
	}
	return out
}

// Elapsed is the wall time of the run.
func (s *Summary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Text renders a short human-readable report.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	fmt.Fprintf(&b, "Files: %d  Succeeded: %d  Failed: %d\n", s.Total, s.Succeeded, s.Failed)
	fmt.Fprintf(&b, "Elapsed: %s\n", s.Elapsed().Round(time.Millisecond))
	if s.Canceled {
		b.WriteString("Run was canceled before all files were dispatched\n")
	}
	failures := s.Failures()
	if len(failures) > 0 {
		b.WriteString("Failures:\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "  %s [%s] %s\n", f.Path, f.Kind, f.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
