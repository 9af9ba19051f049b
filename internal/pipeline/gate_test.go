package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityGateDefaults(t *testing.T) {
	g := NewQualityGate(GateConfig{})
	assert.Equal(t, DefaultFindingsThreshold, g.cfg.FindingsThreshold)
	assert.Equal(t, DefaultMinViabilityScore, g.cfg.MinViabilityScore)
	assert.Equal(t, DefaultMaxPlanningIterations, g.cfg.MaxPlanningIterations)
}

func TestEvaluateCriticism(t *testing.T) {
	g := NewQualityGate(GateConfig{})

	tests := []struct {
		name        string
		score       *float64
		iteration   int
		wantRestart bool
		wantIter    int
	}{
		{"below minimum restarts", Float(30), 0, true, 1},
		{"at minimum passes", Float(51), 0, false, 0},
		{"above minimum passes", Float(85), 0, false, 0},
		{"no score passes", nil, 0, false, 0},
		{"last restart slot", Float(40), 1, true, 2},
		{"trigger at cap boundary advances without restart", Float(20), 2, false, 3},
		{"at cap ignored", Float(10), 3, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.EvaluateCriticism(State{QualityScore: tt.score, PlanningIteration: tt.iteration})
			assert.Equal(t, tt.wantRestart, d.Restart)
			assert.Equal(t, tt.wantIter, d.PlanningIteration)
			if tt.wantRestart {
				assert.Equal(t, "low-viability", d.Reason)
			} else {
				assert.Empty(t, d.Reason)
			}
		})
	}
}

func TestEvaluatePriorArt(t *testing.T) {
	g := NewQualityGate(GateConfig{})

	tests := []struct {
		name        string
		findings    *int
		iteration   int
		wantRestart bool
		wantIter    int
	}{
		{"below threshold passes", Int(2), 0, false, 0},
		{"at threshold restarts", Int(3), 0, true, 1},
		{"above threshold restarts", Int(7), 0, true, 1},
		{"no findings count passes", nil, 0, false, 0},
		{"at cap ignored", Int(10), 3, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.EvaluatePriorArt(State{FindingsCount: tt.findings, PlanningIteration: tt.iteration})
			assert.Equal(t, tt.wantRestart, d.Restart)
			assert.Equal(t, tt.wantIter, d.PlanningIteration)
			if tt.wantRestart {
				assert.Equal(t, "prior-art", d.Reason)
			}
		})
	}
}

// TestGateRepeatedLowScores walks three consecutive failing reviews
// through the gate: the first two grant restarts, the third advances
// the counter to the cap without restarting, and any further trigger
// leaves the state untouched.
func TestGateRepeatedLowScores(t *testing.T) {
	g := NewQualityGate(GateConfig{})
	s := State{}

	for i, score := range []float64{30, 40, 20} {
		s.QualityScore = Float(score)
		d := g.EvaluateCriticism(s)
		s.PlanningIteration = d.PlanningIteration

		if i < 2 {
			assert.True(t, d.Restart, "pass %d should restart", i+1)
		} else {
			assert.False(t, d.Restart, "pass %d should not restart", i+1)
		}
	}
	assert.Equal(t, 3, s.PlanningIteration)

	s.QualityScore = Float(5)
	d := g.EvaluateCriticism(s)
	assert.False(t, d.Restart)
	assert.Equal(t, 3, d.PlanningIteration)
}
