package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/okhotin/pagepress/app/content"
	"github.com/okhotin/pagepress/app/database"
)

// Reconciler splits candidate articles into new and already-present by
// checking persisted identities in bulk, then persists the new ones.
// Persisted articles are immutable: a known identity is never re-submitted,
// so re-running over the same state writes nothing.
type Reconciler struct {
	articles database.ArticleRepository
}

func NewReconciler(articles database.ArticleRepository) *Reconciler {
	return &Reconciler{articles: articles}
}

// Run partitions the candidates and saves the new articles in one batch.
// When dryRun is set the partition is still computed but nothing is written.
// A persistence failure aborts the whole batch.
func (r *Reconciler) Run(candidates []content.Article, dryRun bool) (saved int, skipped int, err error) {
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	ids := make([]string, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.PairID
	}

	existing, err := r.articles.GetExistingIDs(ids)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to check existing articles: %w", err)
	}

	var fresh []database.Article
	for _, candidate := range candidates {
		if existing[candidate.PairID] {
			skipped++
			continue
		}
		fresh = append(fresh, toRecord(candidate))
	}

	if dryRun {
		slog.Debug("Dry run, skipping article persistence", "new", len(fresh), "skipped", skipped)
		return len(fresh), skipped, nil
	}

	if err := r.articles.InsertNew(fresh); err != nil {
		return 0, skipped, fmt.Errorf("failed to save article batch: %w", err)
	}

	return len(fresh), skipped, nil
}

func toRecord(candidate content.Article) database.Article {
	return database.Article{
		PairID:             candidate.PairID,
		Domain:             candidate.Domain,
		ContentHash:        candidate.ContentHash,
		Title:              candidate.Title,
		Excerpt:            candidate.Excerpt,
		Content:            candidate.Content,
		ContentLength:      candidate.ContentLength,
		IsPotentiallyEmpty: candidate.IsPotentiallyEmpty,
		URL:                candidate.URL,
		CrawlTime:          candidate.CrawlTime,
		CrawlDatetime:      candidate.CrawlDatetime,
		Depth:              candidate.Depth,
	}
}
