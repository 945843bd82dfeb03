package model

// Record is the durable aggregate entry for one deduplicated question,
// keyed by the fingerprint of its simplified text.
type Record struct {
	Fingerprint  string            `json:"fingerprint"`
	Question     string            `json:"question_simplified"`
	Count        int               `json:"count"`
	SourceCounts map[string]int    `json:"source_counts"`
	Replies      int               `json:"replies"`
	Subject      string            `json:"subject"`
	Subjects     []string          `json:"subjects_all"`
	Explicit     bool              `json:"explicit"`
	ExplicitAll  []bool            `json:"explicit_all"`
	Originals    []string          `json:"questions_original"`
	IDs          []int64           `json:"ids"`
	Timestamps   []int64           `json:"timestamps"`
	SearchURLs   map[string]string `json:"search_urls,omitempty"`
	Toxicity     Scores            `json:"toxicity"`
}

// NewRecord creates an empty aggregate record seeded from the first
// representative of a fingerprint. Counters and history lists start empty;
// the caller folds each contributing question in via Merge. Toxicity scores
// are treated as source-deterministic, so they are fixed here and never
// recomputed on later merges.
func NewRecord(fingerprint string, first Question, sources []string, searchURLs map[string]string) *Record {
	counts := make(map[string]int, len(sources))
	for _, s := range sources {
		counts[s] = 0
	}
	if _, ok := counts[first.Source]; !ok {
		counts[first.Source] = 0
	}
	return &Record{
		Fingerprint:  fingerprint,
		Question:     first.Simplified,
		SourceCounts: counts,
		SearchURLs:   searchURLs,
		Toxicity:     first.Toxicity,
	}
}

// Merge folds one observed question into the record. It returns false
// without touching any field when the question's OP id has already
// contributed, which keeps repeated submissions from double counting.
func (r *Record) Merge(q Question) bool {
	for _, id := range r.IDs {
		if id == q.ID {
			return false
		}
	}

	if r.SourceCounts == nil {
		r.SourceCounts = make(map[string]int)
	}
	r.SourceCounts[q.Source]++
	r.Count = 0
	for _, n := range r.SourceCounts {
		r.Count += n
	}
	r.Replies += q.Replies

	r.Subjects = append(r.Subjects, q.Subject)
	if s, ok := mode(r.Subjects); ok {
		r.Subject = s
	}

	// Questions whose explicitness batch was skipped carry no vote.
	if q.Explicit != nil {
		r.ExplicitAll = append(r.ExplicitAll, *q.Explicit)
		if e, ok := mode(r.ExplicitAll); ok {
			r.Explicit = e
		}
	}

	r.Originals = append(r.Originals, q.Text)
	r.IDs = append(r.IDs, q.ID)
	r.Timestamps = append(r.Timestamps, q.Timestamp)
	return true
}

// mode returns the most frequent value in history. Ties go to the value
// that appeared first in the list.
func mode[T comparable](history []T) (T, bool) {
	var zero T
	if len(history) == 0 {
		return zero, false
	}
	counts := make(map[T]int, len(history))
	for _, v := range history {
		counts[v]++
	}
	best := history[0]
	bestN := counts[best]
	seen := map[T]bool{best: true}
	for _, v := range history {
		if seen[v] {
			continue
		}
		seen[v] = true
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, true
}
