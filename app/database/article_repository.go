package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// SQLArticleRepository handles database operations for persisted articles
type SQLArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

// GetExistingIDs checks which of the given pair identities already have a
// persisted article. One query for the whole batch.
func (r *SQLArticleRepository) GetExistingIDs(pairIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(pairIDs) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(pairIDs)), ",")
	args := make([]interface{}, len(pairIDs))
	for i, id := range pairIDs {
		args[i] = id
	}

	rows, err := r.db.Query("SELECT pair_id FROM articles WHERE pair_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan existing article id: %w", err)
		}
		existing[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating existing article ids: %w", err)
	}

	return existing, nil
}

// InsertNew persists a batch of articles in one transaction. The upsert is a
// no-op for identities that already exist, which keeps the write idempotent
// against races with a concurrent run; any error aborts the whole batch.
func (r *SQLArticleRepository) InsertNew(articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (
			pair_id, domain, content_hash, title, excerpt, content,
			content_length, is_potentially_empty, url, crawl_time,
			crawl_datetime, depth, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pair_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare article insert: %w", err)
	}
	defer stmt.Close()

	for _, article := range articles {
		var crawlDatetime interface{}
		if article.CrawlDatetime != nil {
			crawlDatetime = article.CrawlDatetime.UTC().Format(time.RFC3339)
		}

		createdAt := article.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err := stmt.Exec(article.PairID, article.Domain, article.ContentHash,
			article.Title, article.Excerpt, article.Content,
			article.ContentLength, article.IsPotentiallyEmpty, article.URL,
			article.CrawlTime, crawlDatetime, article.Depth,
			createdAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert article %s: %w", article.PairID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit article batch: %w", err)
	}

	return nil
}

// GetArticle returns one article by pair identity, or nil when absent.
func (r *SQLArticleRepository) GetArticle(pairID string) (*Article, error) {
	row := r.db.QueryRow(`
		SELECT pair_id, domain, content_hash, COALESCE(title, ''), COALESCE(excerpt, ''),
		       COALESCE(content, ''), content_length, is_potentially_empty,
		       COALESCE(url, ''), COALESCE(crawl_time, ''), crawl_datetime, depth, created_at
		FROM articles
		WHERE pair_id = ?
	`, pairID)

	var article Article
	var crawlDatetime sql.NullString
	var createdAt string

	err := row.Scan(&article.PairID, &article.Domain, &article.ContentHash,
		&article.Title, &article.Excerpt, &article.Content,
		&article.ContentLength, &article.IsPotentiallyEmpty,
		&article.URL, &article.CrawlTime, &crawlDatetime, &article.Depth, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	if crawlDatetime.Valid {
		if parsed, err := time.Parse(time.RFC3339, crawlDatetime.String); err == nil {
			article.CrawlDatetime = &parsed
		}
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		article.CreatedAt = parsed
	}

	return &article, nil
}

func (r *SQLArticleRepository) GetArticleCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}
