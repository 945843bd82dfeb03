package extract

import (
	"strings"
	"unicode"

	"github.com/dmi-tools/questmine/internal/model"
)

// Options controls which OPs and sentences qualify as candidate questions.
type Options struct {
	// MinReplies drops OPs below the reply threshold.
	MinReplies int
	// MaxQuestionLength drops individual questions at or above this many
	// bytes before they reach the annotation prompts.
	MaxQuestionLength int
}

// Result is the outcome of question extraction over one snapshot.
type Result struct {
	// Questions holds one entry per qualifying sentence, in OP order.
	Questions []model.Question
	// OPIDs lists every OP that yielded at least one question, before the
	// length filter. These are the ids the ledger records for the run.
	OPIDs []int64
}

// Questions splits text into sentences and returns the distinct ones that
// end in a question mark. Splitting avoids boundaries inside abbreviations
// ("e.g. x") and after initials ("Dr."). Capitalization is preserved so the
// annotation model can use it.
func Questions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if !strings.HasSuffix(sentence, "?") || seen[sentence] {
			continue
		}
		seen[sentence] = true
		out = append(out, sentence)
	}
	return out
}

// Extract builds candidate questions from the snapshot's OPs. OPs with too
// few replies or zero qualifying questions are dropped.
func Extract(ops []model.OP, opts Options) Result {
	var res Result
	for _, op := range ops {
		if op.Replies < opts.MinReplies {
			continue
		}
		questions := Questions(op.FullText())
		if len(questions) == 0 {
			continue
		}
		res.OPIDs = append(res.OPIDs, op.ID)
		for _, q := range questions {
			if opts.MaxQuestionLength > 0 && len(q) >= opts.MaxQuestionLength {
				continue
			}
			res.Questions = append(res.Questions, model.Question{OP: op, Text: q})
		}
	}
	return res
}

// splitSentences cuts text at whitespace that follows a sentence-ending
// rune, skipping boundaries that look like abbreviations or initials.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		prev := runes[i-1]
		if prev != '.' && prev != '?' && prev != '!' && prev != '\n' {
			continue
		}
		if abbreviationBefore(runes, i) {
			continue
		}
		out = append(out, string(runes[start:i]))
		start = i + 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// abbreviationBefore reports whether the text just before position i looks
// like "e.g." (word, dot, word, dot) or an initial such as "Mr.".
func abbreviationBefore(runes []rune, i int) bool {
	if i >= 4 && isWordRune(runes[i-4]) && runes[i-3] == '.' && isWordRune(runes[i-2]) {
		return true
	}
	if i >= 3 && unicode.IsUpper(runes[i-3]) && unicode.IsLower(runes[i-2]) && runes[i-1] == '.' {
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
