package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/llm"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/proposal"
	"github.com/fyrsmithlabs/researchd/internal/prompts"
)

// Synthesize generates the proposal JSON from the accumulated research
// context. When validation errors are present in state the stage runs
// in repair mode: the previous proposal and its errors are fed back to
// the model with instructions to fix them.
type Synthesize struct {
	llm        llm.Completer
	schemaJSON string
	logger     *logging.Logger
}

// NewSynthesize creates the synthesis stage. schemaJSON is the raw
// proposal schema embedded into the system prompt.
func NewSynthesize(completer llm.Completer, schemaJSON string, logger *logging.Logger) *Synthesize {
	return &Synthesize{llm: completer, schemaJSON: schemaJSON, logger: loggerOr(logger)}
}

func (sy *Synthesize) Name() pipeline.StageName { return pipeline.StageSynthesize }

func (sy *Synthesize) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	if sy.llm == nil {
		return pipeline.Update{}, fmt.Errorf("synthesis: %w", pipeline.ErrToolUnavailable)
	}

	instruments := instrumentsOr(s.Instruments)
	isRepair := len(s.ValidationErrors) > 0 && len(s.RawProposal) > 0

	verdict, reasoning, totalFound := priorArtSummary(s.PriorArt)
	researchContext := prompts.ResearchContext(s.ResearchPlan, s.WebResults, verdict, reasoning, totalFound)

	response, err := sy.llm.Complete(ctx, llm.Request{
		System: prompts.SynthesisSystem(instruments, sy.schemaJSON, s.AlphaOnly),
		User: prompts.SynthesisUser(
			prompts.TaskContext(isRepair, string(s.RawProposal)),
			s.Idea, instruments, researchContext, s.AlphaOnly,
			prompts.ValidationContext(s.ValidationErrors)),
	})
	if err != nil {
		return pipeline.Update{}, fmt.Errorf("synthesis completion: %w", err)
	}

	raw := json.RawMessage(extractJSON(response))
	sy.logger.Info(ctx, "proposal synthesized",
		zap.Bool("repair", isRepair),
		zap.Int("bytes", len(raw)))

	update := pipeline.Update{RawProposal: raw}
	if doc, err := proposal.Parse(raw); err == nil {
		stampProvenance(doc, s)
		if stamped, err := json.Marshal(doc); err == nil {
			update.RawProposal = stamped
			update.Document = doc
		}
	}
	return update, nil
}

// stampProvenance records run metadata in the proposal's misc section.
func stampProvenance(doc *proposal.Document, s pipeline.State) {
	misc := doc.EnsureMisc()
	misc["generated_by"] = "researchd"
	misc["run_id"] = s.RunID
	misc["planning_iterations"] = s.PlanningIteration
	if s.QualityScore != nil {
		misc["viability_score"] = *s.QualityScore
	}
	if s.PriorArt != nil {
		misc["prior_art_verdict"] = s.PriorArt.Verdict
	}
}

func priorArtSummary(pa *pipeline.PriorArt) (verdict, reasoning string, totalFound int) {
	if pa == nil {
		v, r := prompts.PriorArtVerdict(0)
		return v, r, 0
	}
	return pa.Verdict, pa.Reasoning, pa.TotalFound
}

// extractJSON strips a markdown code fence around the model response,
// then trims to the outermost JSON object. Models frequently wrap the
// document despite instructions not to.
func extractJSON(response string) string {
	text := strings.TrimSpace(response)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
