// Package extract turns raw catalog snapshots into candidate questions.
package extract

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/dmi-tools/questmine/internal/model"
)

// page mirrors one page of a catalog snapshot endpoint.
type page struct {
	Threads []thread `json:"threads"`
}

// thread is the subset of catalog thread fields the pipeline consumes.
type thread struct {
	No      int64  `json:"no"`
	Time    int64  `json:"time"`
	Sub     string `json:"sub"`
	Com     string `json:"com"`
	Replies int    `json:"replies"`
}

// ParseCatalog builds OP records from a raw catalog snapshot. A snapshot
// that does not decode as a list of pages, or a page without a threads
// list, is a fatal input error and is surfaced rather than retried.
func ParseCatalog(raw []byte, source string) ([]model.OP, error) {
	var pages []page
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, eris.Wrapf(err, "extract: decode catalog for %s", source)
	}

	var ops []model.OP
	for i, p := range pages {
		if p.Threads == nil {
			return nil, eris.Errorf("extract: catalog page %d for %s has no threads list", i, source)
		}
		for _, th := range p.Threads {
			ops = append(ops, model.OP{
				ID:        th.No,
				Timestamp: th.Time,
				Title:     StripHTML(th.Sub),
				Body:      StripHTML(th.Com),
				Replies:   th.Replies,
				Source:    source,
			})
		}
	}
	return ops, nil
}
