package stages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
)

// Publish opens a GitHub issue carrying the finished proposal. The
// stage is disabled by default; it only runs when explicitly enabled
// and an issue repository is configured.
type Publish struct {
	issues IssueCreator
	repo   string
	logger *logging.Logger
}

// NewPublish creates the publish stage. repo is the "owner/repo"
// target for created issues.
func NewPublish(issues IssueCreator, repo string, logger *logging.Logger) *Publish {
	return &Publish{issues: issues, repo: repo, logger: loggerOr(logger)}
}

func (p *Publish) Name() pipeline.StageName { return pipeline.StagePublish }

func (p *Publish) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	if p.issues == nil || p.repo == "" {
		return pipeline.Update{}, fmt.Errorf("publish: %w", pipeline.ErrToolUnavailable)
	}
	if s.Error != "" {
		p.logger.Warn(ctx, "skipping publish for failed run", zap.String("error", s.Error))
		return pipeline.Update{}, nil
	}
	if len(s.RawProposal) == 0 {
		return pipeline.Update{}, fmt.Errorf("publish: no proposal to publish")
	}

	title := "Research Proposal: " + s.Idea
	issue, err := p.issues.CreateIssue(ctx, p.repo, title, issueBody(s))
	if err != nil {
		return pipeline.Update{}, fmt.Errorf("creating issue: %w", err)
	}

	p.logger.Info(ctx, "proposal published",
		zap.String("issue_url", issue.HTMLURL),
		zap.Int("issue_number", issue.Number))
	return pipeline.Update{IssueURL: pipeline.String(issue.HTMLURL)}, nil
}

func issueBody(s pipeline.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Idea\n\n%s\n\n", s.Idea)
	if s.QualityScore != nil {
		fmt.Fprintf(&b, "**Viability score:** %.0f/100\n\n", *s.QualityScore)
	}
	if s.PriorArt != nil {
		fmt.Fprintf(&b, "**Prior art:** %s (%d related implementations)\n\n",
			s.PriorArt.Verdict, s.PriorArt.TotalFound)
	}
	if s.CriticismSummary != "" {
		fmt.Fprintf(&b, "## Review\n\n%s\n\n", s.CriticismSummary)
	}
	fmt.Fprintf(&b, "## Proposal\n\n```json\n%s\n```\n", string(indented(s.RawProposal)))

	return b.String()
}
