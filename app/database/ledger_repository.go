package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ LedgerRepository = (*SQLLedgerRepository)(nil)

// SQLLedgerRepository handles database operations for the processing ledger
type SQLLedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *SQLLedgerRepository {
	return &SQLLedgerRepository{db: db}
}

// UpsertMerged writes one ledger row, carrying forward sub-records that were
// not re-fetched in the current run. HasBoth and OverallStatus are recomputed
// from the merged row, so a pair whose metadata was skipped this run keeps
// its previously recorded metadata sub-record.
func (r *SQLLedgerRepository) UpsertMerged(record ProcessedFile) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := r.getRecordTx(tx, record.PairID)
	if err != nil {
		return err
	}

	if existing != nil {
		if record.HTML == nil {
			record.HTML = existing.HTML
		}
		if record.Metadata == nil {
			record.Metadata = existing.Metadata
		}
	}
	record.Derive()

	html := record.HTML
	if html == nil {
		html = &SubRecord{}
	}
	metadata := record.Metadata
	if metadata == nil {
		metadata = &SubRecord{}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO processed_files (
			pair_id, domain, content_hash,
			html_path, html_last_modified, html_status, html_error,
			html_size_bytes, html_processing_ms,
			metadata_path, metadata_last_modified, metadata_status, metadata_error,
			metadata_size_bytes, metadata_processing_ms,
			has_both, overall_status, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.PairID, record.Domain, record.ContentHash,
		nullString(html.Path), nullString(html.LastModified), nullString(html.Status),
		nullString(html.Error), nullInt(record.HTML, html.SizeBytes), nullInt(record.HTML, html.ProcessingTimeMs),
		nullString(metadata.Path), nullString(metadata.LastModified), nullString(metadata.Status),
		nullString(metadata.Error), nullInt(record.Metadata, metadata.SizeBytes), nullInt(record.Metadata, metadata.ProcessingTimeMs),
		record.HasBoth, record.OverallStatus, record.ProcessedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert ledger record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger upsert: %w", err)
	}

	return nil
}

// GetRecord returns one ledger row by pair identity, or nil when absent.
func (r *SQLLedgerRepository) GetRecord(pairID string) (*ProcessedFile, error) {
	rows, err := r.db.Query(selectRecords+" WHERE pair_id = ?", pairID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *SQLLedgerRepository) GetRecordCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM processed_files").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger record count: %w", err)
	}
	return count, nil
}

// GetPathIndex flattens every sub-record of every ledger row into a
// path -> lastModified map, the input of the skip decision.
func (r *SQLLedgerRepository) GetPathIndex() (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT html_path, html_last_modified, metadata_path, metadata_last_modified
		FROM processed_files
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger path index: %w", err)
	}
	defer rows.Close()

	index := make(map[string]string)
	for rows.Next() {
		var htmlPath, htmlModified, metadataPath, metadataModified sql.NullString
		if err := rows.Scan(&htmlPath, &htmlModified, &metadataPath, &metadataModified); err != nil {
			return nil, fmt.Errorf("failed to scan path index row: %w", err)
		}
		if htmlPath.Valid && htmlModified.Valid {
			index[htmlPath.String] = htmlModified.String
		}
		if metadataPath.Valid && metadataModified.Valid {
			index[metadataPath.String] = metadataModified.String
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating path index rows: %w", err)
	}

	return index, nil
}

// QueryRecords returns ledger rows matching the filter, newest first.
func (r *SQLLedgerRepository) QueryRecords(filter RecordFilter) ([]ProcessedFile, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(clause string, arg interface{}) {
		conditions = append(conditions, clause)
		args = append(args, arg)
	}

	if filter.PairID != "" {
		addCondition("pair_id = ?", filter.PairID)
	}
	if filter.Domain != "" {
		addCondition("domain = ?", filter.Domain)
	}
	if filter.ContentHash != "" {
		addCondition("content_hash = ?", filter.ContentHash)
	}
	if filter.Status != "" {
		addCondition("overall_status = ?", filter.Status)
	}
	if filter.HasBoth != nil {
		addCondition("has_both = ?", *filter.HasBoth)
	}
	if filter.ProcessedAfter != nil {
		addCondition("processed_at >= ?", filter.ProcessedAfter.UTC().Format(time.RFC3339))
	}
	if filter.ProcessedBefore != nil {
		addCondition("processed_at <= ?", filter.ProcessedBefore.UTC().Format(time.RFC3339))
	}
	if filter.HTMLModifiedAfter != nil {
		addCondition("html_last_modified >= ?", filter.HTMLModifiedAfter.UTC().Format(time.RFC3339))
	}
	if filter.HTMLModifiedBefore != nil {
		addCondition("html_last_modified <= ?", filter.HTMLModifiedBefore.UTC().Format(time.RFC3339))
	}
	if filter.MetadataModifiedAfter != nil {
		addCondition("metadata_last_modified >= ?", filter.MetadataModifiedAfter.UTC().Format(time.RFC3339))
	}
	if filter.MetadataModifiedBefore != nil {
		addCondition("metadata_last_modified <= ?", filter.MetadataModifiedBefore.UTC().Format(time.RFC3339))
	}

	query := selectRecords
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY processed_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Skip)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetSummary aggregates the whole ledger: per-domain and overall counts plus
// the extreme processed/modified timestamps.
func (r *SQLLedgerRepository) GetSummary() (*Summary, error) {
	const aggregateColumns = `
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN overall_status = 'success' THEN 1 ELSE 0 END), 0) AS success,
			COALESCE(SUM(CASE WHEN overall_status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN overall_status = 'incomplete' THEN 1 ELSE 0 END), 0) AS incomplete,
			COALESCE(SUM(CASE WHEN has_both = 1 THEN 1 ELSE 0 END), 0) AS complete,
			COALESCE(SUM(CASE WHEN html_path IS NOT NULL AND metadata_path IS NULL THEN 1 ELSE 0 END), 0) AS html_only,
			COALESCE(SUM(CASE WHEN metadata_path IS NOT NULL AND html_path IS NULL THEN 1 ELSE 0 END), 0) AS metadata_only,
			COALESCE(SUM(COALESCE(html_processing_ms, 0)), 0) AS html_ms,
			COALESCE(SUM(COALESCE(metadata_processing_ms, 0)), 0) AS metadata_ms`

	summary := &Summary{}

	rows, err := r.db.Query("SELECT domain, " + aggregateColumns + " FROM processed_files GROUP BY domain ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger by domain: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DomainSummary
		if err := rows.Scan(&d.Domain, &d.Total, &d.Success, &d.Failed, &d.Incomplete,
			&d.Complete, &d.HTMLOnly, &d.MetadataOnly, &d.HTMLProcessingMs, &d.MetadataProcessingMs); err != nil {
			return nil, fmt.Errorf("failed to scan domain summary row: %w", err)
		}
		summary.Domains = append(summary.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domain summary rows: %w", err)
	}

	overall := &summary.Overall
	err = r.db.QueryRow("SELECT "+aggregateColumns+" FROM processed_files").Scan(&overall.Total, &overall.Success, &overall.Failed,
		&overall.Incomplete, &overall.Complete, &overall.HTMLOnly, &overall.MetadataOnly,
		&overall.HTMLProcessingMs, &overall.MetadataProcessingMs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger overall: %w", err)
	}

	var firstProcessed, lastProcessed sql.NullString
	err = r.db.QueryRow("SELECT MIN(processed_at), MAX(processed_at) FROM processed_files").
		Scan(&firstProcessed, &lastProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to get processed timestamp range: %w", err)
	}
	summary.FirstProcessedAt = firstProcessed.String
	summary.LastProcessedAt = lastProcessed.String

	var firstModified, lastModified sql.NullString
	err = r.db.QueryRow(`
		SELECT MIN(m), MAX(m) FROM (
			SELECT html_last_modified AS m FROM processed_files WHERE html_last_modified IS NOT NULL
			UNION ALL
			SELECT metadata_last_modified FROM processed_files WHERE metadata_last_modified IS NOT NULL
		)
	`).Scan(&firstModified, &lastModified)
	if err != nil {
		return nil, fmt.Errorf("failed to get modified timestamp range: %w", err)
	}
	summary.FirstModifiedAt = firstModified.String
	summary.LastModifiedAt = lastModified.String

	return summary, nil
}

const selectRecords = `
	SELECT pair_id, domain, content_hash,
	       html_path, html_last_modified, html_status, html_error,
	       html_size_bytes, html_processing_ms,
	       metadata_path, metadata_last_modified, metadata_status, metadata_error,
	       metadata_size_bytes, metadata_processing_ms,
	       has_both, overall_status, processed_at
	FROM processed_files`

func (r *SQLLedgerRepository) getRecordTx(tx *sql.Tx, pairID string) (*ProcessedFile, error) {
	rows, err := tx.Query(selectRecords+" WHERE pair_id = ?", pairID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func scanRecords(rows *sql.Rows) ([]ProcessedFile, error) {
	var records []ProcessedFile
	for rows.Next() {
		var record ProcessedFile
		var processedAt string
		var htmlPath, htmlModified, htmlStatus, htmlError sql.NullString
		var htmlSize, htmlMs sql.NullInt64
		var metadataPath, metadataModified, metadataStatus, metadataError sql.NullString
		var metadataSize, metadataMs sql.NullInt64

		err := rows.Scan(&record.PairID, &record.Domain, &record.ContentHash,
			&htmlPath, &htmlModified, &htmlStatus, &htmlError, &htmlSize, &htmlMs,
			&metadataPath, &metadataModified, &metadataStatus, &metadataError, &metadataSize, &metadataMs,
			&record.HasBoth, &record.OverallStatus, &processedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}

		record.HTML = subRecord(htmlPath, htmlModified, htmlStatus, htmlError, htmlSize, htmlMs)
		record.Metadata = subRecord(metadataPath, metadataModified, metadataStatus, metadataError, metadataSize, metadataMs)

		if parsed, err := time.Parse(time.RFC3339, processedAt); err == nil {
			record.ProcessedAt = parsed
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return records, nil
}

func subRecord(path, modified, status, errMsg sql.NullString, size, ms sql.NullInt64) *SubRecord {
	if !path.Valid {
		return nil
	}
	return &SubRecord{
		Path:             path.String,
		LastModified:     modified.String,
		Status:           status.String,
		Error:            errMsg.String,
		SizeBytes:        size.Int64,
		ProcessingTimeMs: ms.Int64,
	}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(present *SubRecord, v int64) interface{} {
	if present == nil {
		return nil
	}
	return v
}
