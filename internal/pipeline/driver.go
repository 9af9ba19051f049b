package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/checkpoint"
	"github.com/fyrsmithlabs/researchd/internal/logging"
)

// Checkpointer persists run snapshots after every pipeline step.
type Checkpointer interface {
	Save(ctx context.Context, snap *checkpoint.Snapshot) error
}

// Driver executes a compiled sequence end to end. Stage failures are
// recorded into run state and short-circuit to the persistence stage
// so the run's outcome always lands on disk; only context cancellation
// aborts a run outright.
type Driver struct {
	seq         *Sequence
	router      *Router
	checkpoints Checkpointer
	logger      *logging.Logger
}

// NewDriver wires a driver. checkpoints and logger may be nil.
func NewDriver(seq *Sequence, router *Router, checkpoints Checkpointer, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	return &Driver{seq: seq, router: router, checkpoints: checkpoints, logger: logger}
}

// Run drives the pipeline from the first enabled stage to completion
// and returns the final state. Cancellation is checked at stage
// boundaries; a cancelled context returns the state reached so far
// together with the context error.
func (d *Driver) Run(ctx context.Context, initial State) (State, error) {
	state := initial
	if state.RunID == "" {
		state.RunID = uuid.New().String()
	}
	ctx = logging.WithRunID(ctx, state.RunID)

	runStartedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("alpha_only", state.AlphaOnly)))
	d.logger.Info(ctx, "pipeline run started",
		zap.String("idea", state.Idea),
		zap.Bool("alpha_only", state.AlphaOnly),
		zap.Strings("stages", stageNames(d.seq.Names())))

	current := d.seq.First()
	sequence := 0

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Warn(ctx, "pipeline run cancelled",
				zap.String("run.stage", string(current)), zap.Error(err))
			return state, err
		}

		stage, ok := d.seq.Stage(current)
		if !ok {
			// Routing only targets enabled stages; reaching here means
			// the sequence was mutated underneath us.
			panic("pipeline: routed to disabled stage " + string(current))
		}

		state.CurrentStage = current
		sctx := logging.WithStage(ctx, string(current))
		d.logger.Debug(sctx, "stage starting")

		start := time.Now()
		update, err := stage.Run(sctx, state)
		elapsed := time.Since(start)

		stageDuration.Record(sctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("stage", string(current))))

		if err != nil {
			stageErrorCounter.Add(sctx, 1, metric.WithAttributes(
				attribute.String("stage", string(current))))
			serr := &StageError{Stage: current, Err: err}
			d.logger.Error(sctx, "stage failed", zap.Error(serr))

			state = state.Apply(Update{Error: String(serr.Error())})
			sequence++
			d.saveCheckpoint(sctx, state, sequence)

			// Jump forward to persistence so the failed run still
			// leaves its state on disk. Stages already behind us never
			// re-run; publish skips failed runs on its own.
			next, ok := d.seq.NearestEnabled(StagePersist)
			if !ok {
				next = d.seq.Terminal()
			}
			if canonicalIndex(next) <= canonicalIndex(current) {
				break
			}
			current = next
			continue
		}

		state = state.Apply(update)
		d.logger.Debug(sctx, "stage finished",
			zap.Duration("elapsed", elapsed))

		if state.ShouldRestartPlanning {
			restartCounter.Add(sctx, 1, metric.WithAttributes(
				attribute.String("reason", state.RestartReason)))
		}

		decision := d.router.Route(state)
		if decision.Update.RepairAttempts != nil {
			repairCounter.Add(sctx, 1)
		}
		state = state.Apply(decision.Update)

		sequence++
		d.saveCheckpoint(sctx, state, sequence)

		if decision.Done {
			break
		}
		current = decision.Next
	}

	runCompletedCounter.Add(ctx, 1)
	if state.Error != "" {
		runFailedCounter.Add(ctx, 1)
		d.logger.Warn(ctx, "pipeline run finished with error",
			zap.String("error", state.Error))
	} else {
		d.logger.Info(ctx, "pipeline run finished",
			zap.String("proposal_path", state.ProposalPath))
	}
	return state, nil
}

func (d *Driver) saveCheckpoint(ctx context.Context, state State, sequence int) {
	if d.checkpoints == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		d.logger.Warn(ctx, "skipping checkpoint, state not encodable", zap.Error(err))
		return
	}
	snap := &checkpoint.Snapshot{
		RunID:    state.RunID,
		Stage:    string(state.CurrentStage),
		Sequence: sequence,
		State:    data,
	}
	if err := d.checkpoints.Save(ctx, snap); err != nil {
		// Checkpointing is best effort; the run itself continues.
		d.logger.Warn(ctx, "checkpoint save failed", zap.Error(err))
	}
}

func stageNames(names []StageName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
