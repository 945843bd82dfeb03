package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRecordAndListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		Snapshot: "data/biz/2026-08-01.json",
		Sources:  []string{"biz", "pol"},
		Stats: RunStats{
			OPs:       40,
			Questions: 12,
			NewOPs:    8,
			Created:   5,
			Updated:   3,
			Skipped:   1,
		},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
	}
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, run.Snapshot, got.Snapshot)
	assert.Equal(t, []string{"biz", "pol"}, got.Sources)
	assert.Equal(t, run.Stats, got.Stats)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := Run{
			ID:         string(rune('a' + i)),
			Snapshot:   "snap",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		}
		require.NoError(t, s.RecordRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSQLiteListRunsEmpty(t *testing.T) {
	s := newTestSQLite(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
