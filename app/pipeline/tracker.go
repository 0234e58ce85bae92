package pipeline

import (
	"time"

	"github.com/okhotin/pagepress/app/storage"
)

// Timestamp renders an object's last-modified time in the canonical form
// stored in the ledger. Skip decisions compare these strings for exact
// equality; any drift, including a re-upload with identical content, forces
// a re-fetch.
func Timestamp(obj storage.Object) string {
	return obj.LastModified.UTC().Format(time.RFC3339)
}

// Tracker answers the per-object skip decision against the ledger's
// flattened path index.
type Tracker struct {
	index map[string]string
}

func NewTracker(index map[string]string) *Tracker {
	if index == nil {
		index = make(map[string]string)
	}
	return &Tracker{index: index}
}

// ShouldSkip reports whether the object was already processed at exactly its
// current last-modified timestamp.
func (t *Tracker) ShouldSkip(obj storage.Object) bool {
	stored, ok := t.index[obj.Key]
	return ok && stored == Timestamp(obj)
}
