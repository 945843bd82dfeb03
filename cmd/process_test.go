package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
}

func TestUnprocessedSnapshots(t *testing.T) {
	dir := t.TempDir()

	// One processed snapshot, one fresh one, plus the processed
	// snapshot's own outputs which must never count as input.
	touch(t, filepath.Join(dir, "catalogs", "biz", "biz_100.json"))
	touch(t, filepath.Join(dir, "catalogs", "biz", "biz_100_questions.json"))
	touch(t, filepath.Join(dir, "catalogs", "biz", "biz_100_questions.csv"))
	touch(t, filepath.Join(dir, "catalogs", "pol", "pol_200.json"))

	snapshots, err := unprocessedSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, filepath.Join(dir, "catalogs", "pol", "pol_200.json"), snapshots[0])
}

func TestUnprocessedSnapshotsEmptyDataDir(t *testing.T) {
	snapshots, err := unprocessedSnapshots(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 200, map[string]string{"status": "ok"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
