package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/okhotin/pagepress/app/storage"
)

// FetchResult is the transient per-object outcome of one fetch attempt,
// consumed to populate the ledger's sub-records.
type FetchResult struct {
	Object           storage.Object
	Data             []byte
	Success          bool
	Error            string
	ProcessingTimeMs int64
}

// FetchPool fetches a batch of objects over a bounded worker pool. Failures
// are isolated per object; every input object yields exactly one result.
type FetchPool struct {
	fetcher     storage.Fetcher
	workerCount int
}

func NewFetchPool(fetcher storage.Fetcher, workerCount int) *FetchPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &FetchPool{fetcher: fetcher, workerCount: workerCount}
}

// Run fetches all objects and returns results keyed by object key.
func (p *FetchPool) Run(ctx context.Context, bucket string, objects []storage.Object) map[string]FetchResult {
	results := make(map[string]FetchResult, len(objects))
	if len(objects) == 0 {
		return results
	}

	jobs := make(chan storage.Object)
	resultCh := make(chan FetchResult)

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range jobs {
				resultCh <- p.fetchOne(ctx, bucket, obj)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, obj := range objects {
			select {
			case jobs <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		results[result.Object.Key] = result
	}

	return results
}

func (p *FetchPool) fetchOne(ctx context.Context, bucket string, obj storage.Object) FetchResult {
	started := time.Now()

	data, err := p.fetcher.FetchObject(ctx, bucket, obj.Key)
	elapsed := time.Since(started).Milliseconds()

	if err != nil {
		slog.Warn("Object fetch failed", "key", obj.Key, "error", err)
		return FetchResult{
			Object:           obj,
			Success:          false,
			Error:            err.Error(),
			ProcessingTimeMs: elapsed,
		}
	}

	return FetchResult{
		Object:           obj,
		Data:             data,
		Success:          true,
		ProcessingTimeMs: elapsed,
	}
}
