package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/llm"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/prompts"
)

// Criticism asks the LLM for a critical review of the idea, extracts
// the viability score, and consults the quality gate: a score below
// the minimum sends the run back to planning.
//
// A failed LLM call does not fail the run. The stage records a neutral
// score instead so the pipeline proceeds on the default path.
type Criticism struct {
	llm    llm.Completer
	gate   *pipeline.QualityGate
	logger *logging.Logger
}

// NewCriticism creates the criticism stage.
func NewCriticism(completer llm.Completer, gate *pipeline.QualityGate, logger *logging.Logger) *Criticism {
	return &Criticism{llm: completer, gate: gate, logger: loggerOr(logger)}
}

func (c *Criticism) Name() pipeline.StageName { return pipeline.StageCriticism }

func (c *Criticism) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	instruments := instrumentsOr(s.Instruments)
	researchContext := prompts.CriticismContext(s.ResearchPlan, s.WebResults)

	summary, score := c.review(ctx, s.Idea, instruments, researchContext)
	c.logger.Info(ctx, "criticism complete", zap.Float64("viability_score", score))

	gated := s
	gated.QualityScore = pipeline.Float(score)
	decision := c.gate.EvaluateCriticism(gated)

	update := pipeline.Update{
		CriticismSummary:      pipeline.String(summary),
		QualityScore:          pipeline.Float(score),
		ShouldRestartPlanning: pipeline.Bool(decision.Restart),
		PlanningIteration:     pipeline.Int(decision.PlanningIteration),
	}
	if decision.Restart {
		update.RestartReason = pipeline.String(decision.Reason)
		c.logger.Info(ctx, "planning restart requested",
			zap.String("reason", decision.Reason),
			zap.Int("iteration", decision.PlanningIteration))
	}
	return update, nil
}

func (c *Criticism) review(ctx context.Context, idea, instruments, researchContext string) (summary string, score float64) {
	if c.llm == nil {
		c.logger.Warn(ctx, "no LLM configured for criticism, using neutral score")
		return "Criticism unavailable: no LLM configured", prompts.DefaultScore
	}

	response, err := c.llm.Complete(ctx, llm.Request{
		System: prompts.CriticismSystem(instruments),
		User:   prompts.CriticismUser(idea, instruments, researchContext),
	})
	if err != nil {
		c.logger.Warn(ctx, "criticism LLM call failed, using neutral score", zap.Error(err))
		return fmt.Sprintf("Criticism unavailable: %v", err), prompts.DefaultScore
	}

	return response, prompts.ExtractViabilityScore(response)
}
