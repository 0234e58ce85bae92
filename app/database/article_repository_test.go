package database

import (
	"testing"
	"time"
)

func sampleArticle(pairID, domain, hash string) Article {
	crawled := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Article{
		PairID:        pairID,
		Domain:        domain,
		ContentHash:   hash,
		Title:         "Sample Title",
		Excerpt:       "Sample excerpt",
		Content:       "Sample body text of reasonable length for a test fixture.",
		ContentLength: 57,
		URL:           "https://" + domain + "/a",
		CrawlTime:     "2024-01-01",
		CrawlDatetime: &crawled,
		Depth:         1,
	}
}

func TestInsertNew_AndGet(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	if err := repo.InsertNew([]Article{sampleArticle("ex.com/h1", "ex.com", "h1")}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := repo.GetArticle("ex.com/h1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got == nil {
		t.Fatal("Expected article to exist")
	}
	if got.Title != "Sample Title" || got.Domain != "ex.com" {
		t.Errorf("Unexpected article fields: %+v", got)
	}
	if got.CrawlDatetime == nil || got.CrawlDatetime.Year() != 2024 {
		t.Errorf("Unexpected crawl_datetime: %v", got.CrawlDatetime)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}
}

func TestInsertNew_ExistingIdentityNotOverwritten(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	first := sampleArticle("ex.com/h1", "ex.com", "h1")
	if err := repo.InsertNew([]Article{first}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	second := sampleArticle("ex.com/h1", "ex.com", "h1")
	second.Title = "Rewritten Title"
	if err := repo.InsertNew([]Article{second}); err != nil {
		t.Fatalf("Expected conflicting insert to be a no-op, got: %v", err)
	}

	got, _ := repo.GetArticle("ex.com/h1")
	if got.Title != "Sample Title" {
		t.Errorf("Persisted article must be immutable, got title %q", got.Title)
	}
}

func TestGetExistingIDs(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	if err := repo.InsertNew([]Article{
		sampleArticle("a.com/h1", "a.com", "h1"),
		sampleArticle("b.org/h2", "b.org", "h2"),
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	existing, err := repo.GetExistingIDs([]string{"a.com/h1", "b.org/h2", "c.net/h3"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(existing) != 2 {
		t.Errorf("Expected 2 existing identities, got %d", len(existing))
	}
	if !existing["a.com/h1"] || !existing["b.org/h2"] {
		t.Errorf("Expected known identities present, got %v", existing)
	}
	if existing["c.net/h3"] {
		t.Error("Unknown identity must not be reported as existing")
	}
}

func TestGetExistingIDs_EmptyInput(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	existing, err := repo.GetExistingIDs(nil)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got: %v", err)
	}
	if len(existing) != 0 {
		t.Errorf("Expected empty result, got %v", existing)
	}
}

func TestGetArticle_Missing(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	got, err := repo.GetArticle("nope/none")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing article, got %+v", got)
	}
}

func TestGetArticleCount(t *testing.T) {
	repo := NewArticleRepository(setupTestDB(t))

	if err := repo.InsertNew([]Article{sampleArticle("a.com/h1", "a.com", "h1")}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	count, err := repo.GetArticleCount()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 article, got %d", count)
	}
}
