// Package pipeline drives a research idea through the staged workflow
// that produces a validated proposal document: plan, research, prior
// art, criticism, synthesis, validation, persistence, and optional
// publication.
package pipeline

import (
	"context"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	// StagePlan builds the research plan and search queries.
	StagePlan StageName = "plan"

	// StageResearch runs the planned web searches.
	StageResearch StageName = "research"

	// StagePriorArt searches GitHub for competing implementations.
	StagePriorArt StageName = "prior_art"

	// StageCriticism asks the LLM for a critical review and viability score.
	StageCriticism StageName = "criticism"

	// StageSynthesize generates the schema-shaped proposal JSON.
	StageSynthesize StageName = "synthesize"

	// StageValidate checks the proposal against the schema and
	// alpha-only constraints.
	StageValidate StageName = "validate"

	// StagePersist writes the proposal and final state to disk.
	StagePersist StageName = "persist"

	// StagePublish opens a GitHub issue carrying the proposal.
	StagePublish StageName = "publish"
)

// CanonicalOrder returns all stages in execution order.
func CanonicalOrder() []StageName {
	return []StageName{
		StagePlan,
		StageResearch,
		StagePriorArt,
		StageCriticism,
		StageSynthesize,
		StageValidate,
		StagePersist,
		StagePublish,
	}
}

// canonicalIndex returns the position of a stage in canonical order,
// or -1 for unknown names.
func canonicalIndex(name StageName) int {
	for i, n := range CanonicalOrder() {
		if n == name {
			return i
		}
	}
	return -1
}

// Stage is a single pipeline step. Run must not mutate the input State;
// all effects on the run are expressed through the returned Update.
type Stage interface {
	Name() StageName
	Run(ctx context.Context, s State) (Update, error)
}
