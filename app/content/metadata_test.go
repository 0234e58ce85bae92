package content

import (
	"testing"
)

func TestParseMetadata_ValidJSON(t *testing.T) {
	m := ParseMetadata([]byte(`{"url":"https://ex.com/a","crawl_time":"2024-01-01","depth":2}`))

	if m.ParseError != "" {
		t.Errorf("Expected no parse error, got: %s", m.ParseError)
	}
	if m.Fields["url"] != "https://ex.com/a" {
		t.Errorf("Unexpected url field: %v", m.Fields["url"])
	}
}

func TestParseMetadata_InvalidJSON(t *testing.T) {
	m := ParseMetadata([]byte(`{not json`))

	if m.ParseError == "" {
		t.Error("Expected sentinel parse error for invalid JSON")
	}
	if v := m.Validate(); v.Valid {
		t.Error("Metadata with parse error must validate as invalid")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		valid bool
	}{
		{"absolute url", `{"url":"https://a.b/c"}`, true},
		{"not a url", `{"url":"not a url"}`, false},
		{"relative url", `{"url":"/path/only"}`, false},
		{"missing url", `{"crawl_time":"2024-01-01"}`, false},
		{"empty url", `{"url":""}`, false},
		{"url wrong type", `{"url":42}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseMetadata([]byte(tt.json)).Validate()
			if v.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got valid=%v (reason: %s)", tt.valid, v.Valid, v.Reason)
			}
			if !v.Valid && v.Reason == "" {
				t.Error("Invalid result must carry a reason")
			}
		})
	}
}

func TestExtractEssential_AllFields(t *testing.T) {
	m := ParseMetadata([]byte(`{"url":"https://ex.com/a","crawl_time":"2024-01-01T12:00:00Z","depth":3}`))

	essential, err := m.ExtractEssential()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if essential.URL != "https://ex.com/a" {
		t.Errorf("Unexpected URL: %s", essential.URL)
	}
	if essential.CrawlTime != "2024-01-01T12:00:00Z" {
		t.Errorf("Unexpected crawl time: %s", essential.CrawlTime)
	}
	if essential.CrawlDatetime == nil {
		t.Fatal("Expected crawl_datetime to be derived")
	}
	if essential.CrawlDatetime.Year() != 2024 || essential.CrawlDatetime.Hour() != 12 {
		t.Errorf("Unexpected crawl_datetime: %v", essential.CrawlDatetime)
	}
	if essential.Depth != 3 {
		t.Errorf("Expected depth 3, got %d", essential.Depth)
	}
}

func TestExtractEssential_StringDepth(t *testing.T) {
	m := ParseMetadata([]byte(`{"depth":"5"}`))

	essential, err := m.ExtractEssential()
	if err != nil {
		t.Fatalf("Expected depth alone to satisfy the essential subset, got: %v", err)
	}
	if essential.Depth != 5 {
		t.Errorf("Expected depth 5, got %d", essential.Depth)
	}
}

func TestExtractEssential_UnparseableCrawlTime(t *testing.T) {
	m := ParseMetadata([]byte(`{"url":"https://ex.com/a","crawl_time":"whenever"}`))

	essential, err := m.ExtractEssential()
	if err != nil {
		t.Fatalf("Unparseable crawl_time must not fail extraction, got: %v", err)
	}
	if essential.CrawlDatetime != nil {
		t.Error("Expected crawl_datetime to be absent for an unparseable crawl_time")
	}
	if essential.CrawlTime != "whenever" {
		t.Errorf("Raw crawl_time should be preserved, got %s", essential.CrawlTime)
	}
}

func TestExtractEssential_NothingPresent(t *testing.T) {
	m := ParseMetadata([]byte(`{"other":"field"}`))

	if _, err := m.ExtractEssential(); err == nil {
		t.Error("Expected error when none of url, crawl_time, depth present")
	}
}

func TestExtractEssential_ParseError(t *testing.T) {
	m := ParseMetadata([]byte(`broken`))

	if _, err := m.ExtractEssential(); err == nil {
		t.Error("Expected error for metadata with parse error")
	}
}
