package database

// LedgerRepository is the persisted incremental-processing record used for
// skip decisions and status reporting.
type LedgerRepository interface {
	UpsertMerged(record ProcessedFile) error
	GetRecord(pairID string) (*ProcessedFile, error)
	GetRecordCount() (int, error)
	GetPathIndex() (map[string]string, error)
	QueryRecords(filter RecordFilter) ([]ProcessedFile, error)
	GetSummary() (*Summary, error)
}

// ArticleRepository persists assembled articles keyed by pair identity.
type ArticleRepository interface {
	GetExistingIDs(pairIDs []string) (map[string]bool, error)
	InsertNew(articles []Article) error
	GetArticle(pairID string) (*Article, error)
	GetArticleCount() (int, error)
}
