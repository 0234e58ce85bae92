package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of ingest source definitions
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the sources file and returns the enabled sources. When no path
// was configured an empty slice is returned and the caller falls back to the
// single source derived from flags.
func (l *Loader) Load() ([]Source, error) {
	if l.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var enabled []Source
	for i := range file.Sources {
		src := &file.Sources[i]
		l.setDefaults(src)
		if err := l.validate(src); err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", src.Name, err)
		}
		if src.Enabled {
			enabled = append(enabled, *src)
		}
	}

	return enabled, nil
}

// Default is the single source derived from flag configuration, used when no
// sources file is given.
func Default(bucket, prefix string, lookbackHours int) Source {
	return Source{
		Name:          bucket,
		Bucket:        bucket,
		Prefix:        prefix,
		Enabled:       true,
		LookbackHours: lookbackHours,
	}
}

func (l *Loader) setDefaults(src *Source) {
	if src.Name == "" {
		src.Name = src.Bucket
	}
	if src.LookbackHours == 0 {
		src.LookbackHours = 24
	}
}

func (l *Loader) validate(src *Source) error {
	if src.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if src.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must be non-negative")
	}
	return nil
}
