package pipeline

import (
	"log/slog"
	"time"

	"github.com/okhotin/pagepress/app/content"
)

// Report accumulates the outcome of one pipeline run. Per-item problems end
// up in Diagnostics; only fatal errors surface through the Run error return.
type Report struct {
	RunID     string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	ObjectsListed  int
	PairsTotal     int
	PairsComplete  int
	PairsBroken    int
	ObjectsSkipped int
	ObjectsFetched int
	FetchFailures  int

	CandidatesAssembled int
	ArticlesSaved       int
	ArticlesSkipped     int
	LedgerWrites        int

	Diagnostics []content.Diagnostic
}

func (r *Report) Log() {
	slog.Info("Run completed",
		"run_id", r.RunID,
		"source", r.Source,
		"duration", r.Duration.String(),
		"dry_run", r.DryRun,
		"objects", r.ObjectsListed,
		"pairs", r.PairsTotal,
		"complete", r.PairsComplete,
		"broken", r.PairsBroken,
		"skipped", r.ObjectsSkipped,
		"fetched", r.ObjectsFetched,
		"fetch_failures", r.FetchFailures,
		"candidates", r.CandidatesAssembled,
		"articles_saved", r.ArticlesSaved,
		"articles_skipped", r.ArticlesSkipped,
		"ledger_writes", r.LedgerWrites,
		"diagnostics", len(r.Diagnostics))

	for _, d := range r.Diagnostics {
		slog.Debug("Run diagnostic", "run_id", r.RunID, "pair", d.PairID, "kind", string(d.Kind), "detail", d.Detail)
	}
}
