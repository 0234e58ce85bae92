package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okhotin/pagepress/app/content"
	"github.com/okhotin/pagepress/app/database"
	"github.com/okhotin/pagepress/app/pairs"
	"github.com/okhotin/pagepress/app/sources"
	"github.com/okhotin/pagepress/app/storage"
)

// Options configures one pipeline run.
type Options struct {
	Source     sources.Source
	Exhaustive bool
	DryRun     bool
}

// Runner drives one full reconciliation pass: list, group, classify, skip,
// fetch, assemble, reconcile, persist. Article persistence happens before
// ledger writes, so a failed article batch never leaves the ledger ahead of
// the articles.
type Runner struct {
	lister      storage.Lister
	fetchPool   *FetchPool
	assembler   *content.Assembler
	ledger      database.LedgerRepository
	reconciler  *Reconciler
	workerCount int
}

func NewRunner(lister storage.Lister, fetcher storage.Fetcher, assembler *content.Assembler,
	ledger database.LedgerRepository, articles database.ArticleRepository, workerCount int) *Runner {
	return &Runner{
		lister:      lister,
		fetchPool:   NewFetchPool(fetcher, workerCount),
		assembler:   assembler,
		ledger:      ledger,
		reconciler:  NewReconciler(articles),
		workerCount: workerCount,
	}
}

// Run executes one pass over the source. Per-object failures are recorded
// and reported; only listing, article-batch and ledger errors are fatal.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Source:    opts.Source.Name,
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	slog.Info("Run started", "run_id", report.RunID, "source", opts.Source.Name,
		"bucket", opts.Source.Bucket, "lookback_hours", opts.Source.LookbackHours,
		"exhaustive", opts.Exhaustive, "dry_run", opts.DryRun)

	since := time.Now().UTC().Add(-time.Duration(opts.Source.LookbackHours) * time.Hour)
	objects, err := r.lister.ListObjects(ctx, opts.Source.Bucket, opts.Source.Prefix, since, opts.Exhaustive)
	if err != nil {
		return report, fmt.Errorf("failed to list objects: %w", err)
	}
	report.ObjectsListed = len(objects)

	grouped := pairs.Group(objects)
	report.PairsTotal = len(grouped)
	for _, pair := range grouped {
		if pair.IsComplete {
			report.PairsComplete++
		}
		if pair.IsBroken {
			report.PairsBroken++
		}
	}

	index, err := r.ledger.GetPathIndex()
	if err != nil {
		return report, fmt.Errorf("failed to load ledger index: %w", err)
	}
	tracker := NewTracker(index)

	var toFetch []storage.Object
	for _, pair := range grouped {
		for _, obj := range pairObjects(pair) {
			if tracker.ShouldSkip(obj) {
				report.ObjectsSkipped++
				continue
			}
			toFetch = append(toFetch, obj)
		}
	}

	results := r.fetchPool.Run(ctx, opts.Source.Bucket, toFetch)
	report.ObjectsFetched = len(results)
	for _, result := range results {
		if !result.Success {
			report.FetchFailures++
		}
	}

	// Deterministic order for assembly and ledger writes
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var candidates []content.Article
	for _, id := range ids {
		pair := grouped[id]
		if !pair.IsComplete {
			continue
		}

		htmlResult, hasHTML := results[pair.HTML.Key]
		metadataResult, hasMetadata := results[pair.Metadata.Key]
		if !hasHTML || !hasMetadata || !htmlResult.Success || !metadataResult.Success {
			continue
		}

		candidate, diagnostics := r.assembler.Run(pair, htmlResult.Data, metadataResult.Data)
		report.Diagnostics = append(report.Diagnostics, diagnostics...)
		if candidate != nil {
			candidates = append(candidates, *candidate)
		}
	}
	report.CandidatesAssembled = len(candidates)

	saved, skipped, err := r.reconciler.Run(candidates, opts.DryRun)
	if err != nil {
		return report, err
	}
	report.ArticlesSaved = saved
	report.ArticlesSkipped = skipped

	if !opts.DryRun {
		if err := r.writeLedger(grouped, ids, results, report); err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	report.Log()

	return report, nil
}

// writeLedger upserts one merged row per pair that had at least one object
// fetched in this run.
func (r *Runner) writeLedger(grouped map[string]*pairs.Pair, ids []string, results map[string]FetchResult, report *Report) error {
	processedAt := time.Now().UTC()

	for _, id := range ids {
		pair := grouped[id]

		record := database.ProcessedFile{
			PairID:      pair.ID,
			Domain:      pair.Domain,
			ContentHash: pair.ContentHash,
			ProcessedAt: processedAt,
		}

		touched := false
		if pair.HTML != nil {
			if result, ok := results[pair.HTML.Key]; ok {
				record.HTML = toSubRecord(result)
				touched = true
			}
		}
		if pair.Metadata != nil {
			if result, ok := results[pair.Metadata.Key]; ok {
				record.Metadata = toSubRecord(result)
				touched = true
			}
		}
		if !touched {
			continue
		}

		if err := r.ledger.UpsertMerged(record); err != nil {
			return fmt.Errorf("failed to write ledger for pair %s: %w", pair.ID, err)
		}
		report.LedgerWrites++
	}

	return nil
}

func pairObjects(pair *pairs.Pair) []storage.Object {
	var objects []storage.Object
	if pair.HTML != nil {
		objects = append(objects, *pair.HTML)
	}
	if pair.Metadata != nil {
		objects = append(objects, *pair.Metadata)
	}
	return objects
}

func toSubRecord(result FetchResult) *database.SubRecord {
	status := database.StatusSuccess
	if !result.Success {
		status = database.StatusFailed
	}
	return &database.SubRecord{
		Path:             result.Object.Key,
		LastModified:     Timestamp(result.Object),
		Status:           status,
		Error:            result.Error,
		SizeBytes:        result.Object.Size,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
}
