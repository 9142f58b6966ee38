// Package storetest is a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/docsift/pkg/docsift/store"
)

// SampleRun builds a run with two successes and two failures.
func SampleRun(id string, started time.Time) store.Run {
	return store.Run{
		ID:         id,
		InputRoot:  "/data/in",
		OutputRoot: "/data/out",
		Format:     "json",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Total:      4,
		Succeeded:  2,
		Failed:     2,
		Outcomes: []store.Outcome{
			{Path: "/data/in/d.txt", Format: "text", OK: true, Output: "/data/out/d.processed.txt", Duration: 3 * time.Millisecond},
			{Path: "/data/in/a.json", Format: "json", Kind: "MalformedContent", Error: "unexpected EOF"},
			{Path: "/data/in/c.txt", Format: "text", Kind: "WriteError", Error: "permission denied"},
			{Path: "/data/in/b.csv", Format: "csv", OK: true, Output: "/data/out/b.processed.csv", Duration: time.Millisecond},
		},
	}
}

// Run exercises every Store operation against stores built by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("RecordAndGet", func(t *testing.T) {
		st := open(t)
		want := SampleRun("run-1", base)
		require.NoError(t, st.RecordRun(ctx, want))

		got, ok, err := st.GetRun(ctx, "run-1")
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, want.InputRoot, got.InputRoot)
		assert.Equal(t, want.Format, got.Format)
		assert.Equal(t, 4, got.Total)
		assert.Equal(t, 2, got.Failed)
		assert.True(t, want.StartedAt.Equal(got.StartedAt))
		assert.True(t, want.FinishedAt.Equal(got.FinishedAt))

		require.Len(t, got.Outcomes, 4)
		paths := []string{got.Outcomes[0].Path, got.Outcomes[1].Path, got.Outcomes[2].Path, got.Outcomes[3].Path}
		assert.Equal(t, []string{"/data/in/a.json", "/data/in/b.csv", "/data/in/c.txt", "/data/in/d.txt"}, paths)
		assert.Equal(t, "MalformedContent", got.Outcomes[0].Kind)
		assert.True(t, got.Outcomes[3].OK)
		assert.Equal(t, 3*time.Millisecond, got.Outcomes[3].Duration)
	})

	t.Run("Missing", func(t *testing.T) {
		st := open(t)
		_, ok, err := st.GetRun(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RecordReplacesOutcomes", func(t *testing.T) {
		st := open(t)
		run := SampleRun("run-1", base)
		require.NoError(t, st.RecordRun(ctx, run))

		run.Outcomes = run.Outcomes[:1]
		run.Total, run.Succeeded, run.Failed = 1, 1, 0
		run.Canceled = true
		require.NoError(t, st.RecordRun(ctx, run))

		got, ok, err := st.GetRun(ctx, "run-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, got.Outcomes, 1)
		assert.Equal(t, 1, got.Total)
		assert.True(t, got.Canceled)
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		st := open(t)
		assert.Error(t, st.RecordRun(ctx, store.Run{}))
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		st := open(t)
		for i := 0; i < 5; i++ {
			r := SampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, st.RecordRun(ctx, r))
		}

		runs, err := st.ListRuns(ctx, 3)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "run-4", runs[0].ID)
		assert.Equal(t, "run-2", runs[2].ID)
		assert.Empty(t, runs[0].Outcomes)

		all, err := st.ListRuns(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("FailureCounts", func(t *testing.T) {
		st := open(t)
		require.NoError(t, st.RecordRun(ctx, SampleRun("run-1", base)))

		counts, err := st.FailureCounts(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"MalformedContent": 1, "WriteError": 1}, counts)

		empty, err := st.FailureCounts(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
