// Package proposal models the generated research proposal document and
// enforces alpha-only structural constraints.
package proposal

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is a single proposal item within a category. Its shape is
// governed by the JSON schema, not by this package.
type Entry map[string]any

// CategorySet groups entries by lifecycle: newly proposed, amendments
// to prior proposals, and references to already accepted items.
type CategorySet struct {
	New      []Entry `json:"new,omitempty"`
	Amend    []Entry `json:"amend,omitempty"`
	Existing []Entry `json:"existing,omitempty"`
}

// Count returns the total number of entries across all lifecycles.
func (c *CategorySet) Count() int {
	if c == nil {
		return 0
	}
	return len(c.New) + len(c.Amend) + len(c.Existing)
}

// Document is the parsed view of a proposal. Unknown top-level fields
// are preserved in Extra so persisted output round-trips faithfully.
type Document struct {
	AlphaOnly bool
	Alphas    *CategorySet
	Universe  *CategorySet
	Portfolio *CategorySet
	Execution *CategorySet
	Risk      *CategorySet
	Misc      map[string]any

	Extra map[string]json.RawMessage
}

// Parse decodes a proposal document from JSON.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &d, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("proposal must be a JSON object: %w", err)
	}

	known := map[string]any{
		"alpha-only": &d.AlphaOnly,
		"alphas":     &d.Alphas,
		"universe":   &d.Universe,
		"portfolio":  &d.Portfolio,
		"execution":  &d.Execution,
		"risk":       &d.Risk,
		"misc":       &d.Misc,
	}

	for key, value := range raw {
		target, ok := known[key]
		if !ok {
			if d.Extra == nil {
				d.Extra = map[string]json.RawMessage{}
			}
			d.Extra[key] = value
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for key, value := range d.Extra {
		out[key] = value
	}
	if d.AlphaOnly {
		out["alpha-only"] = true
	}
	if d.Alphas != nil {
		out["alphas"] = d.Alphas
	}
	if d.Universe != nil {
		out["universe"] = d.Universe
	}
	if d.Portfolio != nil {
		out["portfolio"] = d.Portfolio
	}
	if d.Execution != nil {
		out["execution"] = d.Execution
	}
	if d.Risk != nil {
		out["risk"] = d.Risk
	}
	if len(d.Misc) > 0 {
		out["misc"] = d.Misc
	}
	return json.Marshal(out)
}

// EnsureMisc returns the misc map, allocating it if needed.
func (d *Document) EnsureMisc() map[string]any {
	if d.Misc == nil {
		d.Misc = map[string]any{}
	}
	return d.Misc
}

// AlphaOnlyViolations checks the structural cardinality rules for
// alpha-only proposals: exactly one alpha across new and amend, no
// existing alphas, exactly one existing universe, and no entries in
// any other category. A nil or empty result means the document
// satisfies the constraints.
func (d *Document) AlphaOnlyViolations() []string {
	if !d.AlphaOnly {
		return []string{"proposal is not in alpha-only mode"}
	}

	var violations []string

	var newAlphas, amendAlphas, existingAlphas int
	if d.Alphas != nil {
		newAlphas = len(d.Alphas.New)
		amendAlphas = len(d.Alphas.Amend)
		existingAlphas = len(d.Alphas.Existing)
	}

	if total := newAlphas + amendAlphas; total != 1 {
		violations = append(violations,
			fmt.Sprintf("alpha-only mode requires exactly 1 alpha (new or amend), found %d", total))
	}
	if existingAlphas > 0 {
		violations = append(violations, "alpha-only mode cannot have existing alphas")
	}

	var existingUniverses, otherUniverses int
	if d.Universe != nil {
		existingUniverses = len(d.Universe.Existing)
		otherUniverses = len(d.Universe.New) + len(d.Universe.Amend)
	}

	if existingUniverses != 1 {
		violations = append(violations,
			fmt.Sprintf("alpha-only mode requires exactly 1 existing universe, found %d", existingUniverses))
	}
	if otherUniverses > 0 {
		violations = append(violations, "alpha-only mode cannot define new or amended universes")
	}

	forbidden := map[string]*CategorySet{
		"portfolio": d.Portfolio,
		"execution": d.Execution,
		"risk":      d.Risk,
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if forbidden[name].Count() > 0 {
			violations = append(violations,
				fmt.Sprintf("alpha-only mode cannot define %s entries", name))
		}
	}

	return violations
}
