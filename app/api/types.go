package api

import (
	"github.com/okhotin/pagepress/app/database"
	"github.com/okhotin/pagepress/app/pipeline"
	"github.com/okhotin/pagepress/app/sources"
	"github.com/okhotin/pagepress/app/tasks"
)

type Handler struct {
	ledgerRepo  database.LedgerRepository
	articleRepo database.ArticleRepository
	scheduler   tasks.TaskSchedulerInterface
	runner      *pipeline.Runner
	srcs        []sources.Source
}

func NewHandler(ledgerRepo database.LedgerRepository, articleRepo database.ArticleRepository, scheduler tasks.TaskSchedulerInterface, runner *pipeline.Runner, srcs []sources.Source) *Handler {
	return &Handler{
		ledgerRepo:  ledgerRepo,
		articleRepo: articleRepo,
		scheduler:   scheduler,
		runner:      runner,
		srcs:        srcs,
	}
}
