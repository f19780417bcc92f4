package storage

import "sync"

// UnitOfWork buffers saves between Begin and Commit and forwards them as one
// SaveAll, so several slots change together or not at all. Outside of a
// Begin/Commit pair it passes saves straight through.
type UnitOfWork struct {
	target BatchSaver

	mu      sync.Mutex
	depth   int
	order   []string
	pending map[string]Entry
}

func NewUnitOfWork(target BatchSaver) *UnitOfWork {
	return &UnitOfWork{target: target, pending: make(map[string]Entry)}
}

// Begin opens (or nests into) a unit.
func (u *UnitOfWork) Begin() {
	u.mu.Lock()
	u.depth++
	u.mu.Unlock()
}

// Commit closes the innermost unit; the outermost Commit forwards the buffered entries.
func (u *UnitOfWork) Commit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.depth == 0 {
		return
	}
	u.depth--
	if u.depth > 0 {
		return
	}
	entries := make([]Entry, 0, len(u.order))
	for _, k := range u.order {
		entries = append(entries, u.pending[k])
	}
	u.order = nil
	u.pending = make(map[string]Entry)
	// Forward under the lock so a pass-through save cannot overtake this batch.
	u.target.SaveAll(entries...)
}

func (u *UnitOfWork) Save(key string, version int, value any) {
	e := Entry{Key: key, Version: version, Value: value}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.depth == 0 {
		u.target.SaveAll(e)
		return
	}
	if _, seen := u.pending[key]; !seen {
		u.order = append(u.order, key)
	}
	u.pending[key] = e
}

var _ Saver = (*UnitOfWork)(nil)
