package database

import (
	"time"
)

// Per-object ledger status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Overall pair status values, derived from the sub-records.
const (
	OverallSuccess    = "success"
	OverallFailed     = "failed"
	OverallIncomplete = "incomplete"
	OverallUnknown    = "unknown"
)

// SubRecord is the processing outcome for one object of a pair (the HTML
// document or the metadata document). LastModified is the object's RFC3339
// timestamp at fetch time and doubles as the skip cache key.
type SubRecord struct {
	Path             string
	LastModified     string
	Status           string
	Error            string
	SizeBytes        int64
	ProcessingTimeMs int64
}

// ProcessedFile is one ledger row, keyed by pair identity. Rows are created
// or merged on every run that fetches at least one object of the pair and
// are never deleted.
type ProcessedFile struct {
	PairID        string
	Domain        string
	ContentHash   string
	HTML          *SubRecord
	Metadata      *SubRecord
	HasBoth       bool
	OverallStatus string
	ProcessedAt   time.Time
}

// Derive recomputes HasBoth and OverallStatus from the sub-records. Any
// failed sub-record wins; a missing one downgrades to incomplete.
func (r *ProcessedFile) Derive() {
	r.HasBoth = r.HTML != nil && r.Metadata != nil

	switch {
	case r.HTML == nil && r.Metadata == nil:
		r.OverallStatus = OverallUnknown
	case (r.HTML != nil && r.HTML.Status == StatusFailed) ||
		(r.Metadata != nil && r.Metadata.Status == StatusFailed):
		r.OverallStatus = OverallFailed
	case r.HTML == nil || r.Metadata == nil:
		r.OverallStatus = OverallIncomplete
	default:
		r.OverallStatus = OverallSuccess
	}
}

// Article is a persisted article record, keyed by pair identity. Existing
// rows are immutable; the reconciler never re-submits a known identity.
type Article struct {
	PairID             string
	Domain             string
	ContentHash        string
	Title              string
	Excerpt            string
	Content            string
	ContentLength      int
	IsPotentiallyEmpty bool
	URL                string
	CrawlTime          string
	CrawlDatetime      *time.Time
	Depth              int
	CreatedAt          time.Time
}

// RecordFilter narrows ledger queries. Zero values mean "no constraint".
type RecordFilter struct {
	PairID                string
	Domain                string
	ContentHash           string
	Status                string
	HasBoth               *bool
	ProcessedAfter        *time.Time
	ProcessedBefore       *time.Time
	HTMLModifiedAfter     *time.Time
	HTMLModifiedBefore    *time.Time
	MetadataModifiedAfter *time.Time
	MetadataModifiedBefore *time.Time
	Limit                 int
	Skip                  int
}

// DomainSummary aggregates ledger rows for one domain (or, for the overall
// row, across all of them).
type DomainSummary struct {
	Domain               string
	Total                int
	Success              int
	Failed               int
	Incomplete           int
	Complete             int
	HTMLOnly             int
	MetadataOnly         int
	HTMLProcessingMs     int64
	MetadataProcessingMs int64
}

// Summary is the ledger-wide aggregation report.
type Summary struct {
	Domains          []DomainSummary
	Overall          DomainSummary
	FirstProcessedAt string
	LastProcessedAt  string
	FirstModifiedAt  string
	LastModifiedAt   string
}
