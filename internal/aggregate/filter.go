package aggregate

import (
	"sort"

	"github.com/dmi-tools/questmine/internal/model"
)

// CanonicalToxicityMetric is the Perspective attribute threshold filtering
// and exports key on.
const CanonicalToxicityMetric = "TOXICITY"

// FilterOpts selects aggregate records worth downstream attention.
type FilterOpts struct {
	MinCount       int
	MustBeExplicit bool
	MinToxicity    float64
}

// Filter returns the records passing every enabled threshold, ordered by
// descending count with fingerprint as a stable tiebreak.
func Filter(records map[string]*model.Record, opts FilterOpts) []*model.Record {
	var out []*model.Record
	for _, rec := range records {
		if rec.Count < opts.MinCount {
			continue
		}
		if opts.MustBeExplicit && !rec.Explicit {
			continue
		}
		if opts.MinToxicity > 0 && rec.Toxicity.Perspective[CanonicalToxicityMetric] < opts.MinToxicity {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}
