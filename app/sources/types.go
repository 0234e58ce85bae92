package sources

// File represents the top-level structure of a sources YAML file
type File struct {
	Sources []Source `yaml:"sources"`
}

// Source describes one ingest source: a bucket (and optional prefix) holding
// crawled page pairs
type Source struct {
	Name          string `yaml:"name"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Enabled       bool   `yaml:"enabled"`
	LookbackHours int    `yaml:"lookback_hours"`
}
