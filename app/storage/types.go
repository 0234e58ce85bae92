package storage

import (
	"time"
)

// Object is one entry from a bucket listing. Key is bucket-relative, shaped
// as <domain>/<contentHash>/<filename> for crawler output.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}
