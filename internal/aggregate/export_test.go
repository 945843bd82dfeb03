package aggregate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmi-tools/questmine/internal/model"
)

func exportRecord() *model.Record {
	return &model.Record{
		Fingerprint:  "abc123",
		Question:     "Is the dollar collapsing?",
		Count:        3,
		SourceCounts: map[string]int{"pol": 1, "biz": 2},
		Replies:      420,
		Subject:      "dollar",
		Explicit:     true,
		SearchURLs: map[string]string{
			"google": "https://www.google.com/search?q=x",
			"bing":   "https://www.bing.com/search?q=x",
		},
		Toxicity: model.Scores{
			Perspective: map[string]float64{"TOXICITY": 0.42},
			Moderation:  map[string]float64{"OPENAI_MOD_AVG": 0.125},
		},
	}
}

func TestExportHeaderAndRowAlign(t *testing.T) {
	sources := []string{"pol", "biz"}
	engines := []string{"google", "bing"}

	header := exportHeader(sources, engines)
	row := exportRow(exportRecord(), sources, engines)
	require.Equal(t, len(header), len(row))

	cols := make(map[string]string, len(header))
	for i, col := range header {
		cols[col] = row[i]
	}

	assert.Equal(t, "abc123", cols["fingerprint"])
	assert.Equal(t, "3", cols["count"])
	assert.Equal(t, "2", cols["biz_count"])
	assert.Equal(t, "1", cols["pol_count"])
	assert.Equal(t, "0.42", cols["TOXICITY"])
	assert.Equal(t, "", cols["SEVERE_TOXICITY"])
	assert.Equal(t, "0.125", cols["moderation_avg"])
	assert.Equal(t, "https://www.bing.com/search?q=x", cols["url_bing"])
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, WriteCSV(path, []*model.Record{exportRecord()}, []string{"biz"}, []string{"google"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "fingerprint", rows[0][0])
	assert.Equal(t, "abc123", rows[1][0])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, WriteXLSX(path, []*model.Record{exportRecord()}, []string{"biz"}, []string{"google"}))
	assert.FileExists(t, path)
}

func TestWriteRunOutputs(t *testing.T) {
	dir := t.TempDir()
	questions := []model.Question{
		{
			OP:         model.OP{ID: 1, Timestamp: 1755000000, Source: "biz", Replies: 150},
			Text:       "is it over?",
			Simplified: "Is the market over?",
			Subject:    "market",
			Explicit:   boolPtr(true),
		},
	}

	jsonPath := filepath.Join(dir, "run_questions.json")
	csvPath := filepath.Join(dir, "run_questions.csv")
	require.NoError(t, WriteRunJSON(jsonPath, questions))
	require.NoError(t, WriteRunCSV(csvPath, questions))

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "is it over?", rows[1][4])
	assert.Equal(t, "Is the market over?", rows[1][5])
}
