package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

// Report is the on-disk record of a run.
type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Canceled   bool            `json:"canceled"`
	Failures   []ReportFailure `json:"failures"`
}

// ReportFailure is one failed file.
type ReportFailure struct {
	Path  string           `json:"path"`
	Kind  internalerr.Kind `json:"kind"`
	Error string           `json:"error"`
}

// NewReport builds the report for sum.
func NewReport(sum *Summary) Report {
	r := Report{
		RunID:      sum.RunID,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Total:      sum.Total,
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
		Canceled:   sum.Canceled,
		Failures:   []ReportFailure{},
	}
	for _, f := range sum.Failures() {
		r.Failures = append(r.Failures, ReportFailure{Path: f.Path, Kind: f.Kind, Error: f.Error})
	}
	return r
}

// WriteReport writes the run report for sum to path as indented JSON.
func WriteReport(path string, sum *Summary) error {
	data, err := json.MarshalIndent(NewReport(sum), "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return internalerr.New(internalerr.KindWriteError, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return internalerr.New(internalerr.KindWriteError, path, err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read report: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
