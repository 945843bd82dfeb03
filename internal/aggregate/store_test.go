package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmi-tools/questmine/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func annotated(id int64, source, simplified string) model.Question {
	return model.Question{
		OP:         model.OP{ID: id, Source: source, Replies: 100, Timestamp: 1755000000 + id},
		Text:       simplified,
		Simplified: simplified,
		Subject:    "test",
		Explicit:   boolPtr(true),
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Load(filepath.Join(t.TempDir(), "questions.json"),
		[]string{"biz", "pol"}, []string{"google", "bing"})
	require.NoError(t, err)
	return s
}

func TestMergeCreatesAndGroups(t *testing.T) {
	s := newTestStore(t)

	stats := s.Merge([]model.Question{
		annotated(1, "biz", "Is the dollar collapsing?"),
		annotated(2, "biz", "is the DOLLAR collapsing??"),
		annotated(3, "biz", "Is gold a scam?"),
	})

	assert.Equal(t, MergeStats{Created: 2}, stats)
	require.Len(t, s.Records, 2)

	rec := s.Records[Fingerprint("Is the dollar collapsing?")]
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, 2, rec.SourceCounts["biz"])
	assert.Equal(t, []int64{1, 2}, rec.IDs)
	assert.Contains(t, rec.SearchURLs["google"], "google.com/search?q=")
}

func TestMergeUpdatesExistingRecord(t *testing.T) {
	s := newTestStore(t)

	s.Merge([]model.Question{annotated(1, "biz", "Is the dollar collapsing?")})
	stats := s.Merge([]model.Question{annotated(2, "pol", "Is the dollar collapsing?")})

	assert.Equal(t, MergeStats{Updated: 1}, stats)
	rec := s.Records[Fingerprint("Is the dollar collapsing?")]
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, 1, rec.SourceCounts["biz"])
	assert.Equal(t, 1, rec.SourceCounts["pol"])
}

func TestMergeIsIdempotentPerOP(t *testing.T) {
	s := newTestStore(t)
	q := annotated(1, "biz", "Is the dollar collapsing?")

	s.Merge([]model.Question{q})
	stats := s.Merge([]model.Question{q})

	assert.Equal(t, MergeStats{}, stats)
	assert.Equal(t, 1, s.Records[Fingerprint(q.Simplified)].Count)
}

func TestMergeSkipsUnsimplifiedQuestions(t *testing.T) {
	s := newTestStore(t)

	q := annotated(1, "biz", "Is the dollar collapsing?")
	q.Simplified = ""

	stats := s.Merge([]model.Question{q})
	assert.Equal(t, MergeStats{Skipped: 1}, stats)
	assert.Empty(t, s.Records)
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")

	s, err := Load(path, []string{"biz"}, []string{"google"})
	require.NoError(t, err)
	s.Merge([]model.Question{annotated(1, "biz", "Is the dollar collapsing?")})
	require.NoError(t, s.Save())

	loaded, err := Load(path, []string{"biz"}, []string{"google"})
	require.NoError(t, err)
	require.Len(t, loaded.Records, 1)

	rec := loaded.Records[Fingerprint("Is the dollar collapsing?")]
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, "test", rec.Subject)
	assert.True(t, rec.Explicit)

	// No stray temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadCorruptStoreFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	_, err := Load(path, nil, nil)
	assert.Error(t, err)
}

func TestSearchURLsEscapesQuery(t *testing.T) {
	urls := SearchURLs("is this real?", []string{"google", "bing", "unknown"})
	assert.Len(t, urls, 2)
	assert.Equal(t, "https://www.google.com/search?q=is+this+real%3F", urls["google"])
	assert.NotContains(t, urls, "unknown")
}
