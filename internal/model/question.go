package model

// OP is one thread-opening post parsed from a catalog snapshot. Title and
// Body are HTML-stripped before an OP is constructed.
type OP struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp_utc"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Replies   int    `json:"replies"`
	Source    string `json:"source"`
}

// FullText returns the text questions are extracted from.
func (o OP) FullText() string {
	return o.Title + "\n" + o.Body
}

// Question is a single question-ending sentence extracted from an OP,
// carrying its parent OP's fields. The annotation fields stay unset when
// the corresponding stage was skipped for the question's batch.
type Question struct {
	OP
	Text       string `json:"question"`
	Simplified string `json:"question_simplified,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Explicit   *bool  `json:"explicit,omitempty"`
	Toxicity   Scores `json:"toxicity"`
}

// ScoreText returns the text toxicity scoring operates on: the simplified
// question when annotation succeeded, the raw sentence otherwise.
func (q Question) ScoreText() string {
	if q.Simplified != "" {
		return q.Simplified
	}
	return q.Text
}

// Scores holds the per-source toxicity score maps for one question. A nil
// map means the source failed for this question; the run still carries the
// question forward.
type Scores struct {
	Perspective map[string]float64 `json:"perspective,omitempty"`
	Moderation  map[string]float64 `json:"moderation,omitempty"`
}
