package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Metadata is the parsed crawler metadata document for one pair. When the
// raw document is not valid JSON the value carries a sentinel parse error
// instead of fields; the pair keeps processing either way.
type Metadata struct {
	Fields     map[string]interface{}
	ParseError string
}

// Validation is the explicit outcome of metadata validation.
type Validation struct {
	Valid  bool
	Reason string
}

func Invalid(reason string) Validation {
	return Validation{Valid: false, Reason: reason}
}

// Essential is the minimal metadata subset required to build an article.
// At least one of url, crawl_time, depth must be present in the source
// document for extraction to succeed.
type Essential struct {
	URL           string
	CrawlTime     string
	CrawlDatetime *time.Time
	Depth         int
}

// ParseMetadata decodes a raw metadata document. Parse failures are not
// fatal: the returned value records the error and validates as invalid.
func ParseMetadata(data []byte) Metadata {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Metadata{ParseError: err.Error()}
	}
	return Metadata{Fields: fields}
}

// Validate reports whether the metadata has a well-formed absolute URL. Only
// valid metadata contributes a base URL for extraction.
func (m Metadata) Validate() Validation {
	if m.ParseError != "" {
		return Invalid("metadata is not valid JSON: " + m.ParseError)
	}

	raw, ok := m.Fields["url"].(string)
	if !ok || raw == "" {
		return Invalid("missing url field")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Invalid("url does not parse: " + err.Error())
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return Invalid("url is not absolute: " + raw)
	}

	return Validation{Valid: true}
}

// ExtractEssential pulls the essential subset out of the metadata. The
// crawl_datetime derivation is best-effort: an unparseable crawl_time leaves
// it absent without failing the extraction.
func (m Metadata) ExtractEssential() (*Essential, error) {
	if m.ParseError != "" {
		return nil, fmt.Errorf("metadata is not valid JSON: %s", m.ParseError)
	}

	rawURL, hasURL := m.Fields["url"].(string)
	rawCrawlTime, hasCrawlTime := m.Fields["crawl_time"].(string)
	depth, hasDepth := parseDepth(m.Fields["depth"])

	if !hasURL && !hasCrawlTime && !hasDepth {
		return nil, fmt.Errorf("none of url, crawl_time, depth present")
	}

	essential := &Essential{
		URL:       rawURL,
		CrawlTime: rawCrawlTime,
		Depth:     depth,
	}

	if hasCrawlTime {
		if parsed, err := dateparse.ParseAny(rawCrawlTime); err == nil {
			parsed = parsed.UTC()
			essential.CrawlDatetime = &parsed
		}
	}

	return essential, nil
}

// parseDepth accepts the crawler's loose depth encoding (number or string).
func parseDepth(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}
