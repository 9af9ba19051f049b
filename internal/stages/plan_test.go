package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/researchd/internal/pipeline"
)

func TestPlanFreshRun(t *testing.T) {
	stage := NewPlan(nil)

	update, err := stage.Run(context.Background(), pipeline.State{Idea: "sector rotation"})
	require.NoError(t, err)

	require.NotNil(t, update.ResearchPlan)
	assert.Contains(t, *update.ResearchPlan, "Full Proposal: sector rotation")
	assert.NotContains(t, *update.ResearchPlan, "ITERATION")
	assert.Len(t, update.SearchQueries, 6)
	assert.Contains(t, update.SearchQueries[0], "sector rotation")

	require.NotNil(t, update.RestartReason)
	assert.Empty(t, *update.RestartReason, "restart reason is cleared")
}

func TestPlanAlphaOnly(t *testing.T) {
	stage := NewPlan(nil)

	update, err := stage.Run(context.Background(), pipeline.State{Idea: "vol carry", AlphaOnly: true})
	require.NoError(t, err)

	assert.Contains(t, *update.ResearchPlan, "Alpha-Only Proposal: vol carry")
	assert.Len(t, update.SearchQueries, 5)
}

func TestPlanRestartPass(t *testing.T) {
	stage := NewPlan(nil)

	update, err := stage.Run(context.Background(), pipeline.State{
		Idea:              "vol carry",
		PlanningIteration: 1,
		RestartReason:     "prior-art",
	})
	require.NoError(t, err)

	assert.Contains(t, *update.ResearchPlan, "ITERATION 2 - ADDRESSING: prior-art")
	assert.Contains(t, *update.ResearchPlan, "Novel approaches")

	// Base queries plus the iteration variations.
	assert.Len(t, update.SearchQueries, 9)
	assert.Contains(t, update.SearchQueries[6], "novel approach")
}
