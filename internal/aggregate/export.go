package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dmi-tools/questmine/internal/model"
	"github.com/dmi-tools/questmine/pkg/perspective"
)

// exportHeader builds the flat column set for tabular exports.
func exportHeader(sources, engines []string) []string {
	header := []string{"fingerprint", "question", "count"}
	for _, s := range sortedCopy(sources) {
		header = append(header, s+"_count")
	}
	header = append(header, "replies", "subject", "explicit")
	header = append(header, perspective.Attributes...)
	header = append(header, "moderation_avg")
	for _, e := range sortedCopy(engines) {
		header = append(header, "url_"+e)
	}
	return header
}

func exportRow(rec *model.Record, sources, engines []string) []string {
	row := []string{rec.Fingerprint, rec.Question, strconv.Itoa(rec.Count)}
	for _, s := range sortedCopy(sources) {
		row = append(row, strconv.Itoa(rec.SourceCounts[s]))
	}
	row = append(row, strconv.Itoa(rec.Replies), rec.Subject, strconv.FormatBool(rec.Explicit))
	for _, attr := range perspective.Attributes {
		row = append(row, formatScore(rec.Toxicity.Perspective, attr))
	}
	row = append(row, formatScore(rec.Toxicity.Moderation, "OPENAI_MOD_AVG"))
	for _, e := range sortedCopy(engines) {
		row = append(row, rec.SearchURLs[e])
	}
	return row
}

// formatScore renders a score map entry, empty string when the source
// produced nothing for this question.
func formatScore(scores map[string]float64, key string) string {
	v, ok := scores[key]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// WriteCSV exports the filtered aggregate records as a flat CSV file.
func WriteCSV(path string, records []*model.Record, sources, engines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "aggregate: create csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader(sources, engines)); err != nil {
		return eris.Wrap(err, "aggregate: write csv header")
	}
	for _, rec := range records {
		if err := w.Write(exportRow(rec, sources, engines)); err != nil {
			return eris.Wrapf(err, "aggregate: write csv row %s", rec.Fingerprint)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "aggregate: flush csv")
}

// WriteXLSX exports the filtered aggregate records as a spreadsheet.
func WriteXLSX(path string, records []*model.Record, sources, engines []string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("questions")
	if err != nil {
		return eris.Wrap(err, "aggregate: add xlsx sheet")
	}

	headerRow := sheet.AddRow()
	for _, col := range exportHeader(sources, engines) {
		headerRow.AddCell().Value = col
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, col := range exportRow(rec, sources, engines) {
			row.AddCell().Value = col
		}
	}

	return eris.Wrapf(file.Save(path), "aggregate: save xlsx %s", path)
}

// WriteRunJSON writes one run's annotated questions next to its snapshot.
func WriteRunJSON(path string, questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return eris.Wrap(err, "aggregate: encode run questions")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "aggregate: write %s", path)
}

// WriteRunCSV writes one run's annotated questions as a flat CSV file.
func WriteRunCSV(path string, questions []model.Question) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "aggregate: create csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	header := []string{"id", "timestamp_utc", "source", "replies", "question", "question_simplified", "subject", "explicit"}
	header = append(header, perspective.Attributes...)
	header = append(header, "moderation_avg")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "aggregate: write csv header")
	}
	for _, q := range questions {
		row := []string{
			strconv.FormatInt(q.ID, 10),
			strconv.FormatInt(q.Timestamp, 10),
			q.Source,
			strconv.Itoa(q.Replies),
			q.Text,
			q.Simplified,
			q.Subject,
		}
		if q.Explicit != nil {
			row = append(row, strconv.FormatBool(*q.Explicit))
		} else {
			row = append(row, "")
		}
		for _, attr := range perspective.Attributes {
			row = append(row, formatScore(q.Toxicity.Perspective, attr))
		}
		row = append(row, formatScore(q.Toxicity.Moderation, "OPENAI_MOD_AVG"))
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "aggregate: write csv row %d", q.ID)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "aggregate: flush csv")
}
