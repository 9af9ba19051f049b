package pipeline

import (
	"fmt"
)

// Sequence is the compiled, enabled subset of the canonical stage
// order. Routing only ever targets stages in the sequence; disabled
// targets degrade to the next enabled stage.
type Sequence struct {
	order  []StageName
	stages map[StageName]Stage
	index  map[StageName]int
}

// Build compiles a sequence from the given stages, keeping only those
// for which enabled returns true and preserving canonical relative
// order. A nil enabled function keeps every stage.
//
// Returns ErrNoStagesEnabled when the enabled set is empty.
func Build(stages []Stage, enabled func(StageName) bool) (*Sequence, error) {
	byName := make(map[StageName]Stage, len(stages))
	for _, st := range stages {
		if _, dup := byName[st.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage %q", st.Name())
		}
		byName[st.Name()] = st
	}

	seq := &Sequence{
		stages: make(map[StageName]Stage),
		index:  make(map[StageName]int),
	}
	for _, name := range CanonicalOrder() {
		st, ok := byName[name]
		if !ok {
			continue
		}
		if enabled != nil && !enabled(name) {
			continue
		}
		seq.index[name] = len(seq.order)
		seq.order = append(seq.order, name)
		seq.stages[name] = st
	}

	if len(seq.order) == 0 {
		return nil, ErrNoStagesEnabled
	}
	return seq, nil
}

// First returns the first enabled stage.
func (s *Sequence) First() StageName {
	return s.order[0]
}

// Terminal returns the last enabled stage.
func (s *Sequence) Terminal() StageName {
	return s.order[len(s.order)-1]
}

// Names returns the enabled stages in execution order.
func (s *Sequence) Names() []StageName {
	return append([]StageName(nil), s.order...)
}

// Contains reports whether a stage is enabled.
func (s *Sequence) Contains(name StageName) bool {
	_, ok := s.index[name]
	return ok
}

// Stage returns the stage implementation for an enabled stage.
func (s *Sequence) Stage(name StageName) (Stage, bool) {
	st, ok := s.stages[name]
	return st, ok
}

// Next returns the enabled stage following current. ok is false when
// current is the terminal stage or not part of the sequence.
func (s *Sequence) Next(current StageName) (StageName, bool) {
	idx, ok := s.index[current]
	if !ok || idx+1 >= len(s.order) {
		return "", false
	}
	return s.order[idx+1], true
}

// NearestEnabled resolves a routing target to an enabled stage: the
// target itself when enabled, otherwise the first enabled stage after
// it in canonical order. ok is false when nothing at or after the
// target is enabled.
func (s *Sequence) NearestEnabled(target StageName) (StageName, bool) {
	canonical := CanonicalOrder()
	start := -1
	for i, name := range canonical {
		if name == target {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}
	for _, name := range canonical[start:] {
		if s.Contains(name) {
			return name, true
		}
	}
	return "", false
}
