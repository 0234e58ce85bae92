package storage

import (
	"context"
	"time"
)

// Lister lists candidate objects from a bucket. When exhaustive is false only
// objects modified after the since cutoff are returned.
type Lister interface {
	ListObjects(ctx context.Context, bucket, prefix string, since time.Time, exhaustive bool) ([]Object, error)
}

// Fetcher retrieves raw object bytes.
type Fetcher interface {
	FetchObject(ctx context.Context, bucket, key string) ([]byte, error)
}
