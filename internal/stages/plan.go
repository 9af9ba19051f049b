package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/prompts"
)

// Plan builds the research plan and the web search queries for the
// idea. On a restart pass the plan carries an iteration note steering
// research away from the approach that failed the gate, and the
// restart reason is cleared so later stages see a clean slate.
type Plan struct {
	logger *logging.Logger
}

// NewPlan creates the planning stage.
func NewPlan(logger *logging.Logger) *Plan {
	return &Plan{logger: loggerOr(logger)}
}

func (p *Plan) Name() pipeline.StageName { return pipeline.StagePlan }

func (p *Plan) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	plan := prompts.Plan(s.Idea, s.AlphaOnly)
	if s.RestartReason != "" {
		plan += prompts.IterationNote(s.PlanningIteration, s.RestartReason)
	}

	queries := prompts.SearchQueries(s.Idea, s.AlphaOnly)
	if s.PlanningIteration > 0 {
		queries = append(queries, prompts.IterationQueries(s.Idea)...)
	}

	p.logger.Info(ctx, "research plan built",
		zap.Int("queries", len(queries)),
		zap.Int("iteration", s.PlanningIteration),
		zap.String("restart_reason", s.RestartReason))

	return pipeline.Update{
		ResearchPlan:  pipeline.String(plan),
		SearchQueries: queries,
		RestartReason: pipeline.String(""),
	}, nil
}
