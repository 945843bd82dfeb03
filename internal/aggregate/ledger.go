package aggregate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// Ledger is the persisted set of OP ids that have already contributed to
// the aggregate, across all sources. It only ever grows.
type Ledger struct {
	path string
	ids  map[int64]struct{}
}

// LoadLedger reads the ledger at path, returning an empty ledger when the
// file does not exist yet.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, ids: make(map[int64]struct{})}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: read ledger %s", path)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, eris.Wrapf(err, "aggregate: decode ledger %s", path)
	}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return l, nil
}

// Contains reports whether id has already been processed.
func (l *Ledger) Contains(id int64) bool {
	_, ok := l.ids[id]
	return ok
}

// AddAll unions ids into the ledger.
func (l *Ledger) AddAll(ids []int64) {
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
}

// Len returns the number of recorded ids.
func (l *Ledger) Len() int {
	return len(l.ids)
}

// Save persists the ledger as a sorted JSON array, via temp file + rename.
func (l *Ledger) Save() error {
	ids := make([]int64, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	data, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "aggregate: encode ledger")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return eris.Wrapf(err, "aggregate: create dir for %s", l.path)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "aggregate: write %s", tmp)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return eris.Wrapf(err, "aggregate: rename %s", tmp)
	}
	return nil
}
