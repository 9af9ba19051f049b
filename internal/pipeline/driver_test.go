package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/researchd/internal/checkpoint"
)

type recordingCheckpointer struct {
	snaps []checkpoint.Snapshot
}

func (r *recordingCheckpointer) Save(_ context.Context, snap *checkpoint.Snapshot) error {
	r.snaps = append(r.snaps, *snap)
	return nil
}

// trackingStages builds one fake per canonical stage, counting
// invocations and applying optional per-stage behavior.
func trackingStages(calls map[StageName]int, behavior map[StageName]func(State) (Update, error)) []Stage {
	var stages []Stage
	for _, name := range CanonicalOrder() {
		name := name
		stages = append(stages, &fakeStage{
			name: name,
			run: func(_ context.Context, s State) (Update, error) {
				calls[name]++
				if fn, ok := behavior[name]; ok {
					return fn(s)
				}
				return Update{}, nil
			},
		})
	}
	return stages
}

func newTestDriver(t *testing.T, enabled func(StageName) bool, calls map[StageName]int, behavior map[StageName]func(State) (Update, error), cp Checkpointer) *Driver {
	t.Helper()
	seq, err := Build(trackingStages(calls, behavior), enabled)
	require.NoError(t, err)
	return NewDriver(seq, NewRouter(seq, RouterConfig{}), cp, nil)
}

func TestDriverHappyPath(t *testing.T) {
	calls := make(map[StageName]int)
	cp := &recordingCheckpointer{}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, nil, cp)

	final, err := d.Run(context.Background(), State{Idea: "mean reversion on ETF pairs"})
	require.NoError(t, err)

	assert.NotEmpty(t, final.RunID, "driver assigns a run ID")
	assert.Empty(t, final.Error)
	assert.Equal(t, StagePersist, final.CurrentStage)
	for _, name := range CanonicalOrder()[:7] {
		assert.Equal(t, 1, calls[name], "stage %s", name)
	}
	assert.Zero(t, calls[StagePublish])

	// One snapshot per step, monotonically sequenced, same run.
	require.Len(t, cp.snaps, 7)
	for i, snap := range cp.snaps {
		assert.Equal(t, i+1, snap.Sequence)
		assert.Equal(t, final.RunID, snap.RunID)
	}
	assert.Equal(t, string(StagePersist), cp.snaps[6].Stage)
}

func TestDriverStageErrorJumpsToTerminal(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageSynthesize: func(State) (Update, error) {
			return Update{}, errors.New("model unavailable")
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err, "stage failures do not fail the run")

	assert.Contains(t, final.Error, "stage synthesize")
	assert.Contains(t, final.Error, "model unavailable")
	assert.Equal(t, 1, calls[StagePersist], "terminal stage still runs")
	assert.Zero(t, calls[StageValidate], "stages between failure and terminal are skipped")
}

func TestDriverStageErrorWithPublishEnabled(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageSynthesize: func(State) (Update, error) {
			return Update{}, errors.New("model unavailable")
		},
	}
	d := newTestDriver(t, func(StageName) bool { return true }, calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err)

	assert.Contains(t, final.Error, "stage synthesize")
	assert.Equal(t, 1, calls[StagePersist], "failed run is still written to disk")
	assert.Equal(t, 1, calls[StagePublish])
	assert.Zero(t, calls[StageValidate], "stages between failure and persistence are skipped")
}

func TestDriverErrorInTerminalStage(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StagePersist: func(State) (Update, error) {
			return Update{}, errors.New("disk full")
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err)
	assert.Contains(t, final.Error, "stage persist")
	assert.Equal(t, 1, calls[StagePersist], "terminal failure does not loop")
}

func TestDriverPlanningRestart(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageCriticism: func(s State) (Update, error) {
			// First review fails the gate, the second passes.
			if s.PlanningIteration == 0 {
				return Update{
					QualityScore:          Float(30),
					ShouldRestartPlanning: Bool(true),
					RestartReason:         String("low-viability"),
					PlanningIteration:     Int(1),
				}, nil
			}
			return Update{QualityScore: Float(80)}, nil
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err)

	assert.Equal(t, 2, calls[StagePlan])
	assert.Equal(t, 2, calls[StageCriticism])
	assert.Equal(t, 1, calls[StageSynthesize], "synthesis only runs after the gate passes")
	assert.False(t, final.ShouldRestartPlanning, "flag consumed by routing")
	assert.Equal(t, 1, final.PlanningIteration)
	assert.Empty(t, final.Error)
}

func TestDriverRepairLoop(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageValidate: func(s State) (Update, error) {
			// Two invalid documents, then a valid one.
			if s.RepairAttempts < 2 {
				return Update{ValidationErrors: Strings([]string{"invalid document"})}, nil
			}
			return Update{ValidationErrors: Strings(nil)}, nil
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err)

	assert.Equal(t, 3, calls[StageSynthesize])
	assert.Equal(t, 3, calls[StageValidate])
	assert.Equal(t, 2, final.RepairAttempts)
	assert.Empty(t, final.Error)
	assert.Empty(t, final.ValidationErrors)
}

func TestDriverRepairExhaustion(t *testing.T) {
	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageValidate: func(State) (Update, error) {
			return Update{ValidationErrors: Strings([]string{"never valid"})}, nil
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(context.Background(), State{Idea: "x"})
	require.NoError(t, err)

	assert.Equal(t, 3, calls[StageSynthesize])
	assert.Equal(t, 3, calls[StageValidate])
	assert.Equal(t, 3, final.RepairAttempts)
	assert.Equal(t, ErrUnrepairedValidation, final.Error)
	assert.Equal(t, 1, calls[StagePersist], "failed run is still persisted")
}

func TestDriverCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(map[StageName]int)
	behavior := map[StageName]func(State) (Update, error){
		StageResearch: func(State) (Update, error) {
			cancel()
			return Update{}, nil
		},
	}
	d := newTestDriver(t, enabledExcept(StagePublish), calls, behavior, nil)

	final, err := d.Run(ctx, State{Idea: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls[StageResearch])
	assert.Zero(t, calls[StagePriorArt], "cancellation is honored at the stage boundary")
	assert.Equal(t, StageResearch, final.CurrentStage)
}

func TestDriverKeepsProvidedRunID(t *testing.T) {
	calls := make(map[StageName]int)
	d := newTestDriver(t, enabledExcept(StagePublish), calls, nil, nil)

	final, err := d.Run(context.Background(), State{RunID: "run-42", Idea: "x"})
	require.NoError(t, err)
	assert.Equal(t, "run-42", final.RunID)
}
