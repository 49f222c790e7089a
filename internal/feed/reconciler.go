// Package feed owns the reconciled transaction feed: the bounded,
// de-duplicated, arrival-ordered collection every other component reads.
package feed

import (
	"errors"
	"sync"

	"github.com/andreiluca/fraudwatch/internal/model"
)

// ErrMissingID reports a record that reached the feed without a transaction
// id. The normalizer guarantees one is always present, so this is a contract
// violation by the caller, not a recoverable runtime condition.
var ErrMissingID = errors.New("transaction without id")

// DefaultRetention is the feed bound used when none is configured.
const DefaultRetention = 100

// Feed is the reconciled transaction collection. All mutation goes through
// LoadInitialBatch and Ingest; both are safe for concurrent use, since the
// live stream reader and the renderer run on different goroutines.
type Feed struct {
	ids     map[string]struct{}
	entries []model.Transaction
	retain  int
	loaded  bool
	mu      sync.Mutex
}

// New creates an empty feed retaining at most retention records.
func New(retention int) *Feed {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Feed{
		retain: retention,
		ids:    make(map[string]struct{}),
	}
}

// LoadInitialBatch installs the historical batch. When live events have
// already been ingested the batch is merged in front of them instead of
// replacing them, skipping ids already present, so a slow initial fetch never
// discards events that raced ahead of it. Returns the number of records
// actually added.
func (f *Feed) LoadInitialBatch(records []model.Transaction) (int, error) {
	for _, tx := range records {
		if tx.ID == "" {
			return 0, ErrMissingID
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	merged := make([]model.Transaction, 0, len(records)+len(f.entries))
	seen := make(map[string]struct{}, len(records)+len(f.entries))
	added := 0
	for _, tx := range records {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		if _, dup := f.ids[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		merged = append(merged, tx)
		added++
	}
	merged = append(merged, f.entries...)

	f.entries = merged
	for id := range seen {
		f.ids[id] = struct{}{}
	}
	f.loaded = true
	f.evictLocked()
	return added, nil
}

// Ingest appends one live event. A record whose id is already present is a
// duplicate and is silently dropped. Once the retention bound is exceeded the
// oldest records are evicted first. Returns whether the record was added.
func (f *Feed) Ingest(tx model.Transaction) (bool, error) {
	if tx.ID == "" {
		return false, ErrMissingID
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.ids[tx.ID]; dup {
		return false, nil
	}
	f.ids[tx.ID] = struct{}{}
	f.entries = append(f.entries, tx)
	f.evictLocked()
	return true, nil
}

func (f *Feed) evictLocked() {
	for len(f.entries) > f.retain {
		delete(f.ids, f.entries[0].ID)
		f.entries = f.entries[1:]
	}
}

// Snapshot returns a copy of the feed in arrival order, oldest first.
// Presentation may reverse it; relative arrival order among retained records
// is the only ordering guarantee.
func (f *Feed) Snapshot() []model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Transaction, len(f.entries))
	copy(out, f.entries)
	return out
}

// Len returns the number of retained records.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Loaded reports whether the initial batch has been installed.
func (f *Feed) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}
