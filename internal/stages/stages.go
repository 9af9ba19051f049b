// Package stages implements the pipeline stages: planning, web
// research, prior art search, criticism, synthesis, validation,
// persistence, and publication. Each stage depends on narrow
// collaborator interfaces so tests can substitute fakes.
package stages

import (
	"context"

	"github.com/fyrsmithlabs/researchd/internal/gh"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/search"
)

// defaultInstruments is used when a run does not name target
// instruments.
const defaultInstruments = "US Equities"

// WebSearcher runs a single web search query.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// RepoSearcher finds repositories matching a query.
type RepoSearcher interface {
	SearchRepositories(ctx context.Context, query string, maxResults int) ([]gh.Finding, error)
}

// IssueCreator opens an issue on a repository.
type IssueCreator interface {
	CreateIssue(ctx context.Context, repo, title, body string) (*gh.Issue, error)
}

func instrumentsOr(instruments string) string {
	if instruments == "" {
		return defaultInstruments
	}
	return instruments
}

func loggerOr(logger *logging.Logger) *logging.Logger {
	if logger == nil {
		return logging.FromContext(context.Background())
	}
	return logger
}
