package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/okhotin/pagepress/app/content"
	"github.com/okhotin/pagepress/app/database"
)

func setupArticleRepo(t *testing.T) database.ArticleRepository {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database.NewArticleRepository(db)
}

func candidate(pairID string) content.Article {
	return content.Article{
		PairID:        pairID,
		Domain:        "ex.com",
		ContentHash:   "h",
		Title:         "Title",
		Content:       "Body",
		ContentLength: 4,
		URL:           "https://ex.com/a",
	}
}

func TestReconciler_PartitionsNewAndExisting(t *testing.T) {
	repo := setupArticleRepo(t)
	reconciler := NewReconciler(repo)

	saved, skipped, err := reconciler.Run([]content.Article{candidate("ex.com/h1"), candidate("ex.com/h2")}, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 2 || skipped != 0 {
		t.Errorf("Expected 2 saved, 0 skipped; got %d/%d", saved, skipped)
	}

	saved, skipped, err = reconciler.Run([]content.Article{candidate("ex.com/h1"), candidate("ex.com/h3")}, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 1 || skipped != 1 {
		t.Errorf("Expected 1 saved, 1 skipped; got %d/%d", saved, skipped)
	}
}

func TestReconciler_RerunIsIdempotent(t *testing.T) {
	repo := setupArticleRepo(t)
	reconciler := NewReconciler(repo)
	batch := []content.Article{candidate("ex.com/h1"), candidate("ex.com/h2")}

	if _, _, err := reconciler.Run(batch, false); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	saved, skipped, err := reconciler.Run(batch, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 0 {
		t.Errorf("Second run over same state must write nothing, got %d saved", saved)
	}
	if skipped != 2 {
		t.Errorf("Expected all candidates skipped, got %d", skipped)
	}

	count, _ := repo.GetArticleCount()
	if count != 2 {
		t.Errorf("Expected 2 persisted articles, got %d", count)
	}
}

func TestReconciler_EmptyBatch(t *testing.T) {
	reconciler := NewReconciler(setupArticleRepo(t))

	saved, skipped, err := reconciler.Run(nil, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 0 || skipped != 0 {
		t.Errorf("Expected zero counts for empty batch, got %d/%d", saved, skipped)
	}
}

func TestReconciler_DryRun(t *testing.T) {
	repo := setupArticleRepo(t)
	reconciler := NewReconciler(repo)

	saved, _, err := reconciler.Run([]content.Article{candidate("ex.com/h1")}, true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if saved != 1 {
		t.Errorf("Dry run should report would-be saves, got %d", saved)
	}

	count, _ := repo.GetArticleCount()
	if count != 0 {
		t.Errorf("Dry run must not persist, got %d articles", count)
	}
}
