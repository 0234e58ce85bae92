package content

import (
	"log/slog"
	"time"

	"github.com/okhotin/pagepress/app/pairs"
)

// Article is a candidate article assembled from one complete pair, keyed by
// the pair identity. Once persisted it is never overwritten.
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
}

type DiagnosticKind string

const (
	DiagnosticMetadataParseError DiagnosticKind = "metadata_parse_error"
	DiagnosticInvalidMetadata    DiagnosticKind = "invalid_metadata"
	DiagnosticFailedExtraction   DiagnosticKind = "failed_extraction"
)

// Diagnostic is one per-pair problem accumulated during assembly. Diagnostics
// are reported in the run summary, never raised individually.
type Diagnostic struct {
	PairID string
	Kind   DiagnosticKind
	Detail string
}

type Assembler struct {
	extractor       *Extractor
	minContentChars int
}

func NewAssembler(minContentChars int) *Assembler {
	return &Assembler{
		extractor:       NewExtractor(),
		minContentChars: minContentChars,
	}
}

// Run combines the fetched HTML and metadata of one pair into a candidate
// article. An article is produced only when essential metadata extraction
// succeeds and readability yields non-empty content; everything else is
// reported through diagnostics and the pair is skipped.
func (a *Assembler) Run(pair *pairs.Pair, htmlData, metadataData []byte) (*Article, []Diagnostic) {
	var diagnostics []Diagnostic

	metadata := ParseMetadata(metadataData)
	if metadata.ParseError != "" {
		diagnostics = append(diagnostics, Diagnostic{
			PairID: pair.ID,
			Kind:   DiagnosticMetadataParseError,
			Detail: metadata.ParseError,
		})
	}

	baseURL := PlaceholderBaseURL
	validation := metadata.Validate()
	if validation.Valid {
		baseURL = metadata.Fields["url"].(string)
	} else if metadata.ParseError == "" {
		diagnostics = append(diagnostics, Diagnostic{
			PairID: pair.ID,
			Kind:   DiagnosticInvalidMetadata,
			Detail: validation.Reason,
		})
	}

	essential, essentialErr := metadata.ExtractEssential()

	article, extractErr := a.extractor.Run(htmlData, baseURL)
	if extractErr != nil {
		diagnostics = append(diagnostics, Diagnostic{
			PairID: pair.ID,
			Kind:   DiagnosticFailedExtraction,
			Detail: extractErr.Error(),
		})
	} else if len(article.TextContent) < a.minContentChars {
		// Kept, but surfaced for reporting alongside hard failures
		diagnostics = append(diagnostics, Diagnostic{
			PairID: pair.ID,
			Kind:   DiagnosticFailedExtraction,
			Detail: "extracted content below minimum length",
		})
	}

	if essentialErr != nil {
		slog.Debug("No essential metadata, skipping article", "pair", pair.ID, "error", essentialErr)
		return nil, diagnostics
	}
	if extractErr != nil {
		return nil, diagnostics
	}

	candidate := &Article{
		PairID:             pair.ID,
		Domain:             pair.Domain,
		ContentHash:        pair.ContentHash,
		Title:              article.Title,
		Excerpt:            article.Excerpt,
		Content:            article.TextContent,
		ContentLength:      len(article.TextContent),
		IsPotentiallyEmpty: len(article.TextContent) < a.minContentChars,
		URL:                essential.URL,
		CrawlTime:          essential.CrawlTime,
		CrawlDatetime:      essential.CrawlDatetime,
		Depth:              essential.Depth,
	}

	return candidate, diagnostics
}
