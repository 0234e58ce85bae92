package pairs

import (
	"sort"
	"strings"

	"github.com/okhotin/pagepress/app/storage"
)

// Fixed filenames written by the crawler for every page directory.
const (
	HTMLFileName     = "page.html"
	MetadataFileName = "metadata.json"
)

// Pair is the unit of work identified by domain/contentHash, corresponding
// to one crawled page. It holds at most one HTML object and one metadata
// object, recomputed from the raw listing on every run.
type Pair struct {
	ID          string
	Domain      string
	ContentHash string
	HTML        *storage.Object
	Metadata    *storage.Object
	Files       []storage.Object

	IsComplete bool
	IsBroken   bool
}

// Group partitions a flat object listing into pairs keyed by
// domain/contentHash. Keys with fewer than three path segments are dropped
// without reporting; the crawler occasionally leaves marker objects behind
// and those are not errors.
func Group(objects []storage.Object) map[string]*Pair {
	grouped := make(map[string]*Pair)

	for _, obj := range objects {
		segments := strings.Split(strings.Trim(obj.Key, "/"), "/")
		if len(segments) < 3 {
			continue
		}

		domain := segments[0]
		contentHash := segments[1]
		fileName := segments[len(segments)-1]
		id := domain + "/" + contentHash

		pair, ok := grouped[id]
		if !ok {
			pair = &Pair{
				ID:          id,
				Domain:      domain,
				ContentHash: contentHash,
			}
			grouped[id] = pair
		}

		pair.Files = append(pair.Files, obj)

		switch fileName {
		case HTMLFileName:
			o := obj
			pair.HTML = &o
		case MetadataFileName:
			o := obj
			pair.Metadata = &o
		}
	}

	for _, pair := range grouped {
		sort.Slice(pair.Files, func(i, j int) bool {
			return pair.Files[i].Key < pair.Files[j].Key
		})
		Classify(pair)
	}

	return grouped
}

// Classify derives the completeness flags from the presence of the two fixed
// filenames. A metadata-only pair is neither complete nor broken.
func Classify(pair *Pair) {
	hasHTML := pair.HTML != nil
	hasMetadata := pair.Metadata != nil

	pair.IsComplete = hasHTML && hasMetadata
	pair.IsBroken = hasHTML && !hasMetadata
}
