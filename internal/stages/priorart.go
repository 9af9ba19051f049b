package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/gh"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/prompts"
)

// resultsPerPriorArtQuery caps each repository search.
const resultsPerPriorArtQuery = 5

// PriorArt searches GitHub for existing implementations of the idea
// and consults the quality gate: too many findings send the run back
// to planning.
type PriorArt struct {
	repos  RepoSearcher
	gate   *pipeline.QualityGate
	logger *logging.Logger
}

// NewPriorArt creates the prior art stage. repos may be nil when no
// GitHub token is configured; the idea is then treated as novel.
func NewPriorArt(repos RepoSearcher, gate *pipeline.QualityGate, logger *logging.Logger) *PriorArt {
	return &PriorArt{repos: repos, gate: gate, logger: loggerOr(logger)}
}

func (p *PriorArt) Name() pipeline.StageName { return pipeline.StagePriorArt }

func (p *PriorArt) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	queries := prompts.PriorArtQueries(s.Idea)
	findings := p.collect(ctx, queries)
	total := len(findings)

	verdict, reasoning := prompts.PriorArtVerdict(total)
	p.logger.Info(ctx, "prior art search complete",
		zap.Int("findings", total),
		zap.String("verdict", verdict))

	gated := s
	gated.FindingsCount = pipeline.Int(total)
	decision := p.gate.EvaluatePriorArt(gated)

	update := pipeline.Update{
		PriorArt: &pipeline.PriorArt{
			Queries:    queries,
			Findings:   findings,
			Verdict:    verdict,
			Reasoning:  reasoning,
			TotalFound: total,
		},
		FindingsCount:         pipeline.Int(total),
		ShouldRestartPlanning: pipeline.Bool(decision.Restart),
		PlanningIteration:     pipeline.Int(decision.PlanningIteration),
	}
	if decision.Restart {
		update.RestartReason = pipeline.String(decision.Reason)
		p.logger.Info(ctx, "planning restart requested",
			zap.String("reason", decision.Reason),
			zap.Int("iteration", decision.PlanningIteration))
	}
	return update, nil
}

// collect runs the queries and deduplicates findings by repository.
func (p *PriorArt) collect(ctx context.Context, queries []string) []gh.Finding {
	if p.repos == nil {
		p.logger.Warn(ctx, "repository search not configured, treating idea as novel")
		return nil
	}

	seen := map[string]bool{}
	var findings []gh.Finding
	for _, query := range queries {
		found, err := p.repos.SearchRepositories(ctx, query, resultsPerPriorArtQuery)
		if err != nil {
			p.logger.Warn(ctx, "repository search failed",
				zap.String("query", query), zap.Error(err))
			continue
		}
		for _, f := range found {
			if seen[f.FullName] {
				continue
			}
			seen[f.FullName] = true
			findings = append(findings, f)
		}
	}
	return findings
}
