package aggregate

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/dmi-tools/questmine/internal/model"
)

// searchURLTemplates maps a configured engine name to its query URL prefix.
var searchURLTemplates = map[string]string{
	"google": "https://www.google.com/search?q=",
	"bing":   "https://www.bing.com/search?q=",
}

// SearchURLs builds the per-engine query URLs stored on a new record.
// Unknown engines are skipped.
func SearchURLs(question string, engines []string) map[string]string {
	if len(engines) == 0 {
		return nil
	}
	urls := make(map[string]string, len(engines))
	for _, engine := range engines {
		prefix, ok := searchURLTemplates[engine]
		if !ok {
			continue
		}
		urls[engine] = prefix + url.QueryEscape(question)
	}
	return urls
}

// Store is the file-backed aggregate dataset. It is a single-writer
// resource: every run loads it fully, merges, and rewrites it in full.
type Store struct {
	path string

	// Records maps fingerprint to aggregate record.
	Records map[string]*model.Record

	// Sources and Engines seed new records with per-source counters and
	// search URLs.
	Sources []string
	Engines []string
}

// MergeStats summarizes one run's effect on the aggregate.
type MergeStats struct {
	Created int
	Updated int
	Skipped int
}

// Load reads the aggregate dataset at path. A missing file yields an empty
// store; an unreadable or corrupt one is a fatal error surfaced before any
// state is mutated.
func Load(path string, sources, engines []string) (*Store, error) {
	s := &Store{
		path:    path,
		Records: make(map[string]*model.Record),
		Sources: sources,
		Engines: engines,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: read store %s", path)
	}
	if err := json.Unmarshal(data, &s.Records); err != nil {
		return nil, eris.Wrapf(err, "aggregate: decode store %s", path)
	}
	return s, nil
}

// Merge folds one run's annotated questions into the store. Questions are
// grouped by fingerprint within the run first, then each contributing item
// passes through the record's id-guarded merge, so the operation is
// idempotent and commutative per fingerprint. Questions whose annotation
// batch was skipped have no simplified text and are excluded from the
// aggregate (they remain in the per-run output).
func (s *Store) Merge(questions []model.Question) MergeStats {
	var stats MergeStats

	order := make([]string, 0, len(questions))
	groups := make(map[string][]model.Question)
	for _, q := range questions {
		if q.Simplified == "" {
			stats.Skipped++
			continue
		}
		fp := Fingerprint(q.Simplified)
		if _, ok := groups[fp]; !ok {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], q)
	}

	for _, fp := range order {
		group := groups[fp]
		rec, existed := s.Records[fp]
		if !existed {
			rec = model.NewRecord(fp, group[0], s.Sources, SearchURLs(group[0].Simplified, s.Engines))
			s.Records[fp] = rec
			stats.Created++
		}
		changed := false
		for _, q := range group {
			if rec.Merge(q) {
				changed = true
			}
		}
		if existed && changed {
			stats.Updated++
		}
	}
	return stats
}

// Save rewrites the full dataset. The write goes to a temp file first and
// is renamed into place so a crash never leaves a truncated store.
func (s *Store) Save() error {
	data, err := json.Marshal(s.Records)
	if err != nil {
		return eris.Wrap(err, "aggregate: encode store")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrapf(err, "aggregate: create dir for %s", s.path)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "aggregate: write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrapf(err, "aggregate: rename %s", tmp)
	}
	return nil
}
