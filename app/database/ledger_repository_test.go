package database

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func htmlSub(modified string) *SubRecord {
	return &SubRecord{
		Path:             "ex.com/h1/page.html",
		LastModified:     modified,
		Status:           StatusSuccess,
		SizeBytes:        2048,
		ProcessingTimeMs: 12,
	}
}

func metadataSub(modified string) *SubRecord {
	return &SubRecord{
		Path:             "ex.com/h1/metadata.json",
		LastModified:     modified,
		Status:           StatusSuccess,
		SizeBytes:        256,
		ProcessingTimeMs: 3,
	}
}

func TestUpsertMerged_InsertAndRead(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	record := ProcessedFile{
		PairID:      "ex.com/h1",
		Domain:      "ex.com",
		ContentHash: "h1",
		HTML:        htmlSub("2024-01-01T00:00:00Z"),
		Metadata:    metadataSub("2024-01-01T00:00:00Z"),
		ProcessedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	if err := repo.UpsertMerged(record); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := repo.GetRecord("ex.com/h1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got == nil {
		t.Fatal("Expected ledger record to exist")
	}
	if !got.HasBoth {
		t.Error("Expected has_both to be derived true")
	}
	if got.OverallStatus != OverallSuccess {
		t.Errorf("Expected overall status success, got %s", got.OverallStatus)
	}
	if got.HTML == nil || got.HTML.LastModified != "2024-01-01T00:00:00Z" {
		t.Errorf("Unexpected HTML sub-record: %+v", got.HTML)
	}
	if got.Metadata == nil || got.Metadata.SizeBytes != 256 {
		t.Errorf("Unexpected metadata sub-record: %+v", got.Metadata)
	}
}

func TestUpsertMerged_CarriesForwardUnfetchedSubRecord(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	full := ProcessedFile{
		PairID:      "ex.com/h1",
		Domain:      "ex.com",
		ContentHash: "h1",
		HTML:        htmlSub("2024-01-01T00:00:00Z"),
		Metadata:    metadataSub("2024-01-01T00:00:00Z"),
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.UpsertMerged(full); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Second run re-fetches only the HTML object
	partial := ProcessedFile{
		PairID:      "ex.com/h1",
		Domain:      "ex.com",
		ContentHash: "h1",
		HTML:        htmlSub("2024-02-01T00:00:00Z"),
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.UpsertMerged(partial); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := repo.GetRecord("ex.com/h1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got.HTML.LastModified != "2024-02-01T00:00:00Z" {
		t.Errorf("Expected updated HTML timestamp, got %s", got.HTML.LastModified)
	}
	if got.Metadata == nil {
		t.Fatal("Expected metadata sub-record to be preserved across a partial upsert")
	}
	if got.Metadata.LastModified != "2024-01-01T00:00:00Z" {
		t.Errorf("Expected preserved metadata timestamp, got %s", got.Metadata.LastModified)
	}
	if !got.HasBoth || got.OverallStatus != OverallSuccess {
		t.Errorf("Expected merged row to stay complete/success, got hasBoth=%v status=%s", got.HasBoth, got.OverallStatus)
	}
}

func TestUpsertMerged_FailedSubRecordWins(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	record := ProcessedFile{
		PairID:      "ex.com/h1",
		Domain:      "ex.com",
		ContentHash: "h1",
		HTML: &SubRecord{
			Path:         "ex.com/h1/page.html",
			LastModified: "2024-01-01T00:00:00Z",
			Status:       StatusFailed,
			Error:        "connection reset",
		},
		Metadata:    metadataSub("2024-01-01T00:00:00Z"),
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.UpsertMerged(record); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, _ := repo.GetRecord("ex.com/h1")
	if got.OverallStatus != OverallFailed {
		t.Errorf("Expected overall failed, got %s", got.OverallStatus)
	}
	if got.HTML.Error != "connection reset" {
		t.Errorf("Expected error message preserved, got %q", got.HTML.Error)
	}
}

func TestUpsertMerged_SingleSubRecordIsIncomplete(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	record := ProcessedFile{
		PairID:      "ex.com/h9",
		Domain:      "ex.com",
		ContentHash: "h9",
		HTML:        htmlSub("2024-01-01T00:00:00Z"),
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.UpsertMerged(record); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, _ := repo.GetRecord("ex.com/h9")
	if got.HasBoth {
		t.Error("Expected has_both false for HTML-only record")
	}
	if got.OverallStatus != OverallIncomplete {
		t.Errorf("Expected incomplete, got %s", got.OverallStatus)
	}
}

func TestGetPathIndex(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	record := ProcessedFile{
		PairID:      "ex.com/h1",
		Domain:      "ex.com",
		ContentHash: "h1",
		HTML:        htmlSub("2024-01-01T00:00:00Z"),
		Metadata:    metadataSub("2024-01-02T00:00:00Z"),
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.UpsertMerged(record); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	index, err := repo.GetPathIndex()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(index) != 2 {
		t.Fatalf("Expected 2 flattened paths, got %d", len(index))
	}
	if index["ex.com/h1/page.html"] != "2024-01-01T00:00:00Z" {
		t.Errorf("Unexpected HTML timestamp in index: %s", index["ex.com/h1/page.html"])
	}
	if index["ex.com/h1/metadata.json"] != "2024-01-02T00:00:00Z" {
		t.Errorf("Unexpected metadata timestamp in index: %s", index["ex.com/h1/metadata.json"])
	}
}

func TestQueryRecords_Filters(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, pair := range []struct {
		domain, hash string
		failed       bool
	}{
		{"a.com", "h1", false},
		{"a.com", "h2", true},
		{"b.org", "h3", false},
	} {
		html := htmlSub("2024-01-01T00:00:00Z")
		html.Path = pair.domain + "/" + pair.hash + "/page.html"
		if pair.failed {
			html.Status = StatusFailed
			html.Error = "timeout"
		}
		metadata := metadataSub("2024-01-01T00:00:00Z")
		metadata.Path = pair.domain + "/" + pair.hash + "/metadata.json"

		record := ProcessedFile{
			PairID:      pair.domain + "/" + pair.hash,
			Domain:      pair.domain,
			ContentHash: pair.hash,
			HTML:        html,
			Metadata:    metadata,
			ProcessedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.UpsertMerged(record); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	byDomain, err := repo.QueryRecords(RecordFilter{Domain: "a.com"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(byDomain) != 2 {
		t.Errorf("Expected 2 records for a.com, got %d", len(byDomain))
	}

	byStatus, err := repo.QueryRecords(RecordFilter{Status: OverallFailed})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].PairID != "a.com/h2" {
		t.Errorf("Expected single failed record a.com/h2, got %+v", byStatus)
	}

	cutoff := base.Add(90 * time.Minute)
	recent, err := repo.QueryRecords(RecordFilter{ProcessedAfter: &cutoff})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(recent) != 1 || recent[0].PairID != "b.org/h3" {
		t.Errorf("Expected only the latest record, got %+v", recent)
	}

	// Newest first
	all, err := repo.QueryRecords(RecordFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(all) != 3 || all[0].PairID != "b.org/h3" {
		t.Errorf("Expected records sorted by processed_at descending, got %+v", all)
	}

	// Pagination
	paged, err := repo.QueryRecords(RecordFilter{Limit: 1, Skip: 1})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(paged) != 1 || paged[0].PairID != "a.com/h2" {
		t.Errorf("Expected second newest record, got %+v", paged)
	}
}

func TestGetSummary(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	records := []ProcessedFile{
		{
			PairID: "a.com/h1", Domain: "a.com", ContentHash: "h1",
			HTML:     htmlSub("2024-01-01T00:00:00Z"),
			Metadata: metadataSub("2024-01-03T00:00:00Z"),
		},
		{
			PairID: "a.com/h2", Domain: "a.com", ContentHash: "h2",
			HTML: &SubRecord{Path: "a.com/h2/page.html", LastModified: "2024-01-02T00:00:00Z", Status: StatusFailed, Error: "boom"},
		},
		{
			PairID: "b.org/h3", Domain: "b.org", ContentHash: "h3",
			Metadata: metadataSub("2024-01-01T12:00:00Z"),
		},
	}
	for i := range records {
		records[i].ProcessedAt = time.Date(2024, 1, 10, i, 0, 0, 0, time.UTC)
		if err := repo.UpsertMerged(records[i]); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	summary, err := repo.GetSummary()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if summary.Overall.Total != 3 {
		t.Errorf("Expected 3 total, got %d", summary.Overall.Total)
	}
	if summary.Overall.Success != 1 || summary.Overall.Failed != 1 || summary.Overall.Incomplete != 1 {
		t.Errorf("Unexpected overall status counts: %+v", summary.Overall)
	}
	if summary.Overall.Complete != 1 || summary.Overall.HTMLOnly != 1 || summary.Overall.MetadataOnly != 1 {
		t.Errorf("Unexpected overall completeness counts: %+v", summary.Overall)
	}

	if len(summary.Domains) != 2 {
		t.Fatalf("Expected 2 domain summaries, got %d", len(summary.Domains))
	}
	if summary.Domains[0].Domain != "a.com" || summary.Domains[0].Total != 2 {
		t.Errorf("Unexpected first domain summary: %+v", summary.Domains[0])
	}

	if summary.FirstProcessedAt != "2024-01-10T00:00:00Z" || summary.LastProcessedAt != "2024-01-10T02:00:00Z" {
		t.Errorf("Unexpected processed range: %s .. %s", summary.FirstProcessedAt, summary.LastProcessedAt)
	}
	if summary.FirstModifiedAt != "2024-01-01T00:00:00Z" || summary.LastModifiedAt != "2024-01-03T00:00:00Z" {
		t.Errorf("Unexpected modified range: %s .. %s", summary.FirstModifiedAt, summary.LastModifiedAt)
	}
}

func TestGetSummary_EmptyLedger(t *testing.T) {
	repo := NewLedgerRepository(setupTestDB(t))

	summary, err := repo.GetSummary()
	if err != nil {
		t.Fatalf("Expected no error on empty ledger, got: %v", err)
	}
	if summary.Overall.Total != 0 {
		t.Errorf("Expected empty overall summary, got %+v", summary.Overall)
	}
	if len(summary.Domains) != 0 {
		t.Errorf("Expected no domain summaries, got %d", len(summary.Domains))
	}
}
