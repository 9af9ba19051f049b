package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/search"
)

// Research runs the planned web searches. Query failures are logged
// and skipped; a run with no searcher configured proceeds with empty
// results rather than failing.
type Research struct {
	searcher WebSearcher
	logger   *logging.Logger
}

// NewResearch creates the research stage. searcher may be nil when no
// search backend is configured.
func NewResearch(searcher WebSearcher, logger *logging.Logger) *Research {
	return &Research{searcher: searcher, logger: loggerOr(logger)}
}

func (r *Research) Name() pipeline.StageName { return pipeline.StageResearch }

func (r *Research) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	if r.searcher == nil {
		r.logger.Warn(ctx, "web search not configured, proceeding without results")
		return pipeline.Update{WebResults: []search.Result{}}, nil
	}

	var results []search.Result
	for _, query := range s.SearchQueries {
		if err := ctx.Err(); err != nil {
			return pipeline.Update{}, err
		}
		found, err := r.searcher.Search(ctx, query)
		if err != nil {
			r.logger.Warn(ctx, "search query failed",
				zap.String("query", query), zap.Error(err))
			continue
		}
		results = append(results, found...)
	}

	r.logger.Info(ctx, "web research complete",
		zap.Int("queries", len(s.SearchQueries)),
		zap.Int("results", len(results)))

	if results == nil {
		results = []search.Result{}
	}
	return pipeline.Update{WebResults: results}, nil
}
