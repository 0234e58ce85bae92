package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okhotin/pagepress/app/database"
	"github.com/okhotin/pagepress/app/tasks"
)

// GetHealth returns service health together with basic ledger counts.
func (h *Handler) GetHealth(c *gin.Context) {
	recordCount, err := h.ledgerRepo.GetRecordCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}

	articleCount, err := h.articleRepo.GetArticleCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"records":   recordCount,
		"articles":  articleCount,
		"sources":   len(h.srcs),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// QueryRecords returns ledger rows matching the query-string filters.
func (h *Handler) QueryRecords(c *gin.Context) {
	filter, err := parseRecordFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.ledgerRepo.QueryRecords(*filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query records"})
		return
	}

	items := make([]gin.H, 0, len(records))
	for i := range records {
		items = append(items, recordJSON(&records[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(items),
		"limit":   filter.Limit,
		"skip":    filter.Skip,
		"records": items,
	})
}

// GetSummary returns per-domain and overall ledger aggregates.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.ledgerRepo.GetSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}

	domains := make([]gin.H, 0, len(summary.Domains))
	for i := range summary.Domains {
		domains = append(domains, domainSummaryJSON(&summary.Domains[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"domains":            domains,
		"overall":            domainSummaryJSON(&summary.Overall),
		"first_processed_at": summary.FirstProcessedAt,
		"last_processed_at":  summary.LastProcessedAt,
		"first_modified_at":  summary.FirstModifiedAt,
		"last_modified_at":   summary.LastModifiedAt,
	})
}

// GetArticle returns one persisted article by pair identity.
func (h *Handler) GetArticle(c *gin.Context) {
	pairID := c.Param("domain") + "/" + c.Param("hash")

	article, err := h.articleRepo.GetArticle(pairID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load article"})
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("article not found: %s", pairID)})
		return
	}

	resp := gin.H{
		"pair_id":              article.PairID,
		"domain":               article.Domain,
		"content_hash":         article.ContentHash,
		"title":                article.Title,
		"excerpt":              article.Excerpt,
		"content":              article.Content,
		"content_length":       article.ContentLength,
		"is_potentially_empty": article.IsPotentiallyEmpty,
		"url":                  article.URL,
		"crawl_time":           article.CrawlTime,
		"depth":                article.Depth,
		"created_at":           article.CreatedAt.UTC().Format(time.RFC3339),
	}
	if article.CrawlDatetime != nil {
		resp["crawl_datetime"] = article.CrawlDatetime.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// TriggerProcess enqueues an out-of-band pipeline run. The optional "source"
// parameter restricts the run to one configured source; "exhaustive" ignores
// the lookback window.
func (h *Handler) TriggerProcess(c *gin.Context) {
	sourceName := c.Query("source")
	exhaustive := c.Query("exhaustive") == "true"

	var matched []string

	for _, src := range h.srcs {
		if sourceName != "" && src.Name != sourceName {
			continue
		}

		task := tasks.NewProcessRunTask(src, exhaustive, h.runner)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":  "failed to enqueue run",
				"source": src.Name,
				"detail": err.Error(),
			})
			return
		}
		matched = append(matched, src.Name)
	}

	if len(matched) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown source: %s", sourceName)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "processing runs enqueued",
		"sources":    matched,
		"exhaustive": exhaustive,
	})
}

func parseRecordFilter(c *gin.Context) (*database.RecordFilter, error) {
	filter := &database.RecordFilter{
		PairID:      c.Query("pair_id"),
		Domain:      c.Query("domain"),
		ContentHash: c.Query("hash"),
		Status:      c.Query("status"),
	}

	switch filter.Status {
	case "", database.OverallSuccess, database.OverallFailed, database.OverallIncomplete, database.OverallUnknown:
	default:
		return nil, fmt.Errorf("invalid status: %s", filter.Status)
	}

	if v := c.Query("has_both"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid has_both: %s", v)
		}
		filter.HasBoth = &parsed
	}

	timeParams := []struct {
		name string
		dest **time.Time
	}{
		{"processed_after", &filter.ProcessedAfter},
		{"processed_before", &filter.ProcessedBefore},
		{"html_modified_after", &filter.HTMLModifiedAfter},
		{"html_modified_before", &filter.HTMLModifiedBefore},
		{"metadata_modified_after", &filter.MetadataModifiedAfter},
		{"metadata_modified_before", &filter.MetadataModifiedBefore},
	}

	for _, p := range timeParams {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := parseTimeParam(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", p.name, v)
		}
		*p.dest = t
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			return nil, fmt.Errorf("invalid limit: %s", v)
		}
		filter.Limit = n
	}

	if v := c.Query("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid skip: %s", v)
		}
		filter.Skip = n
	}

	return filter, nil
}

func parseTimeParam(value string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func recordJSON(r *database.ProcessedFile) gin.H {
	item := gin.H{
		"pair_id":        r.PairID,
		"domain":         r.Domain,
		"content_hash":   r.ContentHash,
		"has_both":       r.HasBoth,
		"overall_status": r.OverallStatus,
		"processed_at":   r.ProcessedAt.UTC().Format(time.RFC3339),
	}
	if r.HTML != nil {
		item["html"] = subRecordJSON(r.HTML)
	}
	if r.Metadata != nil {
		item["metadata"] = subRecordJSON(r.Metadata)
	}
	return item
}

func subRecordJSON(s *database.SubRecord) gin.H {
	sub := gin.H{
		"path":               s.Path,
		"last_modified":      s.LastModified,
		"status":             s.Status,
		"size_bytes":         s.SizeBytes,
		"processing_time_ms": s.ProcessingTimeMs,
	}
	if s.Error != "" {
		sub["error"] = s.Error
	}
	return sub
}

func domainSummaryJSON(d *database.DomainSummary) gin.H {
	return gin.H{
		"domain":                 d.Domain,
		"total":                  d.Total,
		"success":                d.Success,
		"failed":                 d.Failed,
		"incomplete":             d.Incomplete,
		"complete":               d.Complete,
		"html_only":              d.HTMLOnly,
		"metadata_only":          d.MetadataOnly,
		"html_processing_ms":     d.HTMLProcessingMs,
		"metadata_processing_ms": d.MetadataProcessingMs,
	}
}
