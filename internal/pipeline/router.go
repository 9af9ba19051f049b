package pipeline

// Decision is the router's verdict after a stage completes: where to go
// next and any state changes the transition itself requires.
type Decision struct {
	// Next is the stage to run. Empty when Done is true.
	Next StageName

	// Update carries routing side effects (restart flag consumption,
	// repair accounting). Applied before the next stage runs.
	Update Update

	// Done reports that the run has finished.
	Done bool
}

// RouterConfig holds the repair loop bound.
type RouterConfig struct {
	MaxRepairAttempts int
}

// Router decides stage transitions over a compiled sequence. It owns
// the two non-linear edges of the workflow: the restart back to
// planning and the validation repair loop back to synthesis.
type Router struct {
	seq *Sequence
	cfg RouterConfig
}

// NewRouter creates a router, filling a zero repair bound with the
// default.
func NewRouter(seq *Sequence, cfg RouterConfig) *Router {
	if cfg.MaxRepairAttempts <= 0 {
		cfg.MaxRepairAttempts = DefaultMaxRepairAttempts
	}
	return &Router{seq: seq, cfg: cfg}
}

// DefaultMaxRepairAttempts bounds the validate/synthesize repair loop.
const DefaultMaxRepairAttempts = 3

// Route decides the transition out of the current stage given the state
// produced by it. Restart and repair edges take priority over linear
// progression; when their target stage is disabled they degrade to the
// nearest enabled stage after it.
func (r *Router) Route(s State) Decision {
	// Restart edge. The flag is consumed here so a checkpoint resumed
	// after routing does not restart twice.
	if s.ShouldRestartPlanning {
		if target, ok := r.seq.NearestEnabled(StagePlan); ok {
			return Decision{
				Next:   target,
				Update: Update{ShouldRestartPlanning: Bool(false)},
			}
		}
	}

	// Repair edge. The degraded target must still precede validation;
	// with no synthesis stage to re-run, looping on validate would
	// never change the document.
	if s.CurrentStage == StageValidate && len(s.ValidationErrors) > 0 {
		attempts := s.RepairAttempts + 1
		if attempts < r.cfg.MaxRepairAttempts {
			target, ok := r.seq.NearestEnabled(StageSynthesize)
			if ok && canonicalIndex(target) < canonicalIndex(StageValidate) {
				return Decision{
					Next:   target,
					Update: Update{RepairAttempts: Int(attempts)},
				}
			}
		}
		// Attempts exhausted (or no synthesis stage to repair with).
		// Record the failure and fall through to linear progression so
		// persistence still captures the run.
		next, ok := r.seq.Next(s.CurrentStage)
		if !ok {
			return Decision{Done: true, Update: Update{
				RepairAttempts: Int(attempts),
				Error:          String(ErrUnrepairedValidation),
			}}
		}
		return Decision{Next: next, Update: Update{
			RepairAttempts: Int(attempts),
			Error:          String(ErrUnrepairedValidation),
		}}
	}

	next, ok := r.seq.Next(s.CurrentStage)
	if !ok {
		return Decision{Done: true}
	}
	return Decision{Next: next}
}
