package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okhotin/pagepress/app/pipeline"
	"github.com/okhotin/pagepress/app/sources"
)

type ProcessRunTask struct {
	Task
	Source     sources.Source
	Exhaustive bool
	runner     *pipeline.Runner
}

func NewProcessRunTask(source sources.Source, exhaustive bool, runner *pipeline.Runner) *ProcessRunTask {
	return &ProcessRunTask{
		Task:       NewTask(TaskTypeProcessRun, source.Name),
		Source:     source,
		Exhaustive: exhaustive,
		runner:     runner,
	}
}

func (t *ProcessRunTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.runner.Run(ctx, pipeline.Options{
		Source:     t.Source,
		Exhaustive: t.Exhaustive,
	})
	if err != nil {
		return fmt.Errorf("run failed for source %s: %w", t.Source.Name, err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"articles_saved", report.ArticlesSaved,
		"fetch_failures", report.FetchFailures)

	return nil
}
