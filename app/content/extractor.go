package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// PlaceholderBaseURL is handed to the extractor when a pair has no valid
// metadata URL. Readability needs an absolute base to resolve relative links.
const PlaceholderBaseURL = "https://example.com/"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run extracts readable article content from raw HTML. The input is
// normalized to UTF-8 first; crawler output preserves whatever encoding the
// origin served.
func (e *Extractor) Run(data []byte, baseURL string) (*readability.Article, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || !parsedURL.IsAbs() {
		parsedURL, _ = url.Parse(PlaceholderBaseURL)
	}

	reader, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to normalize charset: %w", err)
	}

	article, err := readability.FromReader(reader, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" && article.TextContent == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.TextContent))

	return &article, nil
}
