package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/okhotin/pagepress/app/api"
	"github.com/okhotin/pagepress/app/cfg"
	"github.com/okhotin/pagepress/app/content"
	"github.com/okhotin/pagepress/app/database"
	"github.com/okhotin/pagepress/app/pipeline"
	"github.com/okhotin/pagepress/app/sources"
	"github.com/okhotin/pagepress/app/storage"
	"github.com/okhotin/pagepress/app/tasks"
)

func main() {
	c, args, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(c.Debug)

	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		runServe(c)
	case "process":
		runProcess(c, args)
	case "summarize":
		runSummarize(c)
	case "query":
		runQuery(c, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (expected serve, process, summarize or query)\n", command)
		os.Exit(2)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openDatabase connects to SQLite and applies pending migrations.
func openDatabase(c *cfg.Cfg) (*database.DB, error) {
	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	return db, nil
}

// loadSources returns the enabled sources from the sources file, falling back
// to the single source derived from flags.
func loadSources(c *cfg.Cfg) ([]sources.Source, error) {
	srcs, err := sources.NewLoader(c.SourcesFile).Load()
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		srcs = []sources.Source{sources.Default(c.S3Bucket, c.S3Prefix, c.LookbackHours)}
	}
	return srcs, nil
}

func buildRunner(c *cfg.Cfg, db *database.DB) (*pipeline.Runner, error) {
	client, err := storage.NewClient(c)
	if err != nil {
		return nil, err
	}

	ledgerRepo := database.NewLedgerRepository(db)
	articleRepo := database.NewArticleRepository(db)
	assembler := content.NewAssembler(c.MinContentChars)

	return pipeline.NewRunner(client, client, assembler, ledgerRepo, articleRepo, c.WorkerCount), nil
}

// runProcess executes one pipeline pass over each configured source and
// exits. Positional arguments restrict the pass to the named sources.
func runProcess(c *cfg.Cfg, args []string) {
	db, err := openDatabase(c)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srcs, err := loadSources(c)
	if err != nil {
		slog.Error("Failed to load sources", "error", err)
		os.Exit(1)
	}
	srcs = filterSources(srcs, args)
	if len(srcs) == 0 {
		slog.Error("No matching sources", "requested", strings.Join(args, ","))
		os.Exit(1)
	}

	runner, err := buildRunner(c, db)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	failed := false
	for _, src := range srcs {
		_, err := runner.Run(ctx, pipeline.Options{
			Source:     src,
			Exhaustive: c.Exhaustive,
			DryRun:     c.DryRun,
		})
		if err != nil {
			slog.Error("Run failed", "source", src.Name, "error", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func filterSources(srcs []sources.Source, names []string) []sources.Source {
	if len(names) == 0 {
		return srcs
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var matched []sources.Source
	for _, src := range srcs {
		if wanted[src.Name] {
			matched = append(matched, src)
		}
	}
	return matched
}

// runSummarize prints per-domain and overall ledger aggregates to stdout.
func runSummarize(c *cfg.Cfg) {
	db, err := openDatabase(c)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	summary, err := database.NewLedgerRepository(db).GetSummary()
	if err != nil {
		slog.Error("Failed to build summary", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%-30s %8s %8s %8s %10s %8s %9s %9s\n",
		"DOMAIN", "TOTAL", "SUCCESS", "FAILED", "INCOMPLETE", "COMPLETE", "HTML-ONLY", "META-ONLY")
	for _, d := range summary.Domains {
		printSummaryRow(d.Domain, d)
	}
	printSummaryRow("TOTAL", summary.Overall)

	fmt.Println()
	if summary.FirstProcessedAt != "" {
		fmt.Printf("Processed between %s and %s\n", summary.FirstProcessedAt, summary.LastProcessedAt)
	}
	if summary.FirstModifiedAt != "" {
		fmt.Printf("Objects modified between %s and %s\n", summary.FirstModifiedAt, summary.LastModifiedAt)
	}
	fmt.Printf("Processing time: html %dms, metadata %dms\n",
		summary.Overall.HTMLProcessingMs, summary.Overall.MetadataProcessingMs)
}

func printSummaryRow(label string, d database.DomainSummary) {
	fmt.Printf("%-30s %8d %8d %8d %10d %8d %9d %9d\n",
		label, d.Total, d.Success, d.Failed, d.Incomplete, d.Complete, d.HTMLOnly, d.MetadataOnly)
}

// runQuery prints ledger rows matching key=value filter arguments, e.g.
// "query domain=example.com status=failed limit=50".
func runQuery(c *cfg.Cfg, args []string) {
	filter, err := parseQueryArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	db, err := openDatabase(c)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	records, err := database.NewLedgerRepository(db).QueryRecords(*filter)
	if err != nil {
		slog.Error("Query failed", "error", err)
		os.Exit(1)
	}

	for _, record := range records {
		fmt.Printf("%s  status=%s has_both=%t processed_at=%s\n",
			record.PairID, record.OverallStatus, record.HasBoth,
			record.ProcessedAt.UTC().Format(time.RFC3339))
		printSubRecord("html", record.HTML)
		printSubRecord("metadata", record.Metadata)
	}
	fmt.Printf("%d record(s)\n", len(records))
}

func printSubRecord(label string, sub *database.SubRecord) {
	if sub == nil {
		return
	}
	line := fmt.Sprintf("  %-8s %s  %s  %d bytes  %dms", label, sub.Status, sub.LastModified, sub.SizeBytes, sub.ProcessingTimeMs)
	if sub.Error != "" {
		line += "  error: " + sub.Error
	}
	fmt.Println(line)
}

func parseQueryArgs(args []string) (*database.RecordFilter, error) {
	filter := &database.RecordFilter{}

	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || value == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}

		switch key {
		case "pair_id":
			filter.PairID = value
		case "domain":
			filter.Domain = value
		case "hash":
			filter.ContentHash = value
		case "status":
			filter.Status = value
		case "has_both":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid has_both: %s", value)
			}
			filter.HasBoth = &parsed
		case "processed_after":
			if err := setTimeFilter(&filter.ProcessedAfter, value); err != nil {
				return nil, err
			}
		case "processed_before":
			if err := setTimeFilter(&filter.ProcessedBefore, value); err != nil {
				return nil, err
			}
		case "html_modified_after":
			if err := setTimeFilter(&filter.HTMLModifiedAfter, value); err != nil {
				return nil, err
			}
		case "html_modified_before":
			if err := setTimeFilter(&filter.HTMLModifiedBefore, value); err != nil {
				return nil, err
			}
		case "metadata_modified_after":
			if err := setTimeFilter(&filter.MetadataModifiedAfter, value); err != nil {
				return nil, err
			}
		case "metadata_modified_before":
			if err := setTimeFilter(&filter.MetadataModifiedBefore, value); err != nil {
				return nil, err
			}
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", value)
			}
			filter.Limit = n
		case "skip":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid skip: %s", value)
			}
			filter.Skip = n
		default:
			return nil, fmt.Errorf("unknown filter: %s", key)
		}
	}

	return filter, nil
}

func setTimeFilter(dest **time.Time, value string) error {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02", value)
		if err != nil {
			return fmt.Errorf("invalid time %q (expected RFC3339 or YYYY-MM-DD)", value)
		}
	}
	*dest = &t
	return nil
}

// runServe starts the background scheduler and the HTTP API and blocks until
// a termination signal arrives.
func runServe(c *cfg.Cfg) {
	slog.Info("Starting PagePress server", "version", c.Version)

	db, err := openDatabase(c)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srcs, err := loadSources(c)
	if err != nil {
		slog.Error("Failed to load sources", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "count", len(srcs))

	runner, err := buildRunner(c, db)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	scheduler := tasks.NewScheduler(runner, srcs)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "interval_minutes", c.SchedulerInterval)

	ledgerRepo := database.NewLedgerRepository(db)
	articleRepo := database.NewArticleRepository(db)
	handler := api.NewHandler(ledgerRepo, articleRepo, scheduler, runner, srcs)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
