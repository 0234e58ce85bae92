package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Object store configuration
	S3Bucket    string `long:"s3-bucket" env:"S3_BUCKET" default:"crawl-pages" description:"Object store bucket holding crawled page pairs"`
	S3Prefix    string `long:"s3-prefix" env:"S3_PREFIX" description:"Key prefix to restrict listings (optional)"`
	S3Region    string `long:"s3-region" env:"S3_REGION" default:"us-east-1" description:"Object store region"`
	S3Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"Custom S3 endpoint (e.g. MinIO), empty for AWS"`
	S3AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"Static S3 access key (falls back to default credential chain)"`
	S3SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"Static S3 secret key"`

	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./pagepress.db" description:"SQLite database path"`

	// Processing configuration
	SourcesFile       string `long:"sources-file" env:"SOURCES_FILE" description:"YAML file with named ingest sources (optional)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of concurrent object fetch workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in minutes for serve mode"`
	LookbackHours     int    `long:"lookback-hours" env:"LOOKBACK_HOURS" default:"24" description:"Only consider objects modified within this window"`
	MinContentChars   int    `long:"min-content-chars" env:"MIN_CONTENT_CHARS" default:"200" description:"Minimum extracted text length before content is flagged as potentially empty"`
	Exhaustive        bool   `long:"exhaustive" env:"EXHAUSTIVE" description:"Ignore the lookback window and list every object (process mode)"`
	DryRun            bool   `long:"dry-run" env:"DRY_RUN" description:"Run the pipeline without writing articles or ledger rows (process mode)"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"PagePress/1.0" description:"User agent string for outgoing requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses configuration from command-line flags and environment variables.
// Remaining positional arguments (the invocation command and its operands) are
// returned to the caller.
func Load() (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	args, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		S3Bucket:          raw.S3Bucket,
		S3Prefix:          raw.S3Prefix,
		S3Region:          raw.S3Region,
		S3Endpoint:        raw.S3Endpoint,
		S3AccessKey:       raw.S3AccessKey,
		S3SecretKey:       raw.S3SecretKey,
		DBPath:            raw.DBPath,
		SourcesFile:       raw.SourcesFile,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		LookbackHours:     raw.LookbackHours,
		MinContentChars:   raw.MinContentChars,
		Exhaustive:        raw.Exhaustive,
		DryRun:            raw.DryRun,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, args, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
