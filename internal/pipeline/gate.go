package pipeline

import (
	"github.com/fyrsmithlabs/researchd/internal/prompts"
)

// Quality gate defaults.
const (
	DefaultFindingsThreshold     = 3
	DefaultMinViabilityScore     = 51.0
	DefaultMaxPlanningIterations = 3
)

// GateConfig holds the quality gate thresholds.
type GateConfig struct {
	FindingsThreshold     int
	MinViabilityScore     float64
	MaxPlanningIterations int
}

// QualityGate decides whether a run should restart planning after the
// prior art or criticism stage.
type QualityGate struct {
	cfg GateConfig
}

// NewQualityGate creates a gate, filling zero thresholds with defaults.
func NewQualityGate(cfg GateConfig) *QualityGate {
	if cfg.FindingsThreshold <= 0 {
		cfg.FindingsThreshold = DefaultFindingsThreshold
	}
	if cfg.MinViabilityScore <= 0 {
		cfg.MinViabilityScore = DefaultMinViabilityScore
	}
	if cfg.MaxPlanningIterations <= 0 {
		cfg.MaxPlanningIterations = DefaultMaxPlanningIterations
	}
	return &QualityGate{cfg: cfg}
}

// GateDecision is the outcome of a gate evaluation. PlanningIteration
// is the value the run state must carry forward; it advances whenever a
// trigger fires below the iteration cap.
type GateDecision struct {
	Restart           bool
	Reason            string
	PlanningIteration int
}

// EvaluatePriorArt applies the findings trigger: too many competing
// implementations send the run back to planning.
func (g *QualityGate) EvaluatePriorArt(s State) GateDecision {
	triggered := s.FindingsCount != nil && *s.FindingsCount >= g.cfg.FindingsThreshold
	return g.decide(s, triggered, prompts.RestartReasonPriorArt)
}

// EvaluateCriticism applies the score trigger: a viability score below
// the minimum sends the run back to planning.
func (g *QualityGate) EvaluateCriticism(s State) GateDecision {
	triggered := s.QualityScore != nil && *s.QualityScore < g.cfg.MinViabilityScore
	return g.decide(s, triggered, prompts.RestartReasonLowViability)
}

// decide applies the shared iteration cap. A trigger below the cap
// always advances the iteration counter; the restart is granted only
// while the advanced counter stays below the cap, so the counter tops
// out at exactly MaxPlanningIterations and further triggers are
// ignored.
func (g *QualityGate) decide(s State, triggered bool, reason string) GateDecision {
	if s.PlanningIteration >= g.cfg.MaxPlanningIterations {
		return GateDecision{PlanningIteration: s.PlanningIteration}
	}
	if !triggered {
		return GateDecision{PlanningIteration: s.PlanningIteration}
	}

	next := s.PlanningIteration + 1
	if next < g.cfg.MaxPlanningIterations {
		return GateDecision{Restart: true, Reason: reason, PlanningIteration: next}
	}
	return GateDecision{PlanningIteration: next}
}
