// Package schema validates proposal documents against a JSON schema.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// maxReportedErrors caps the number of validation errors fed back into
// the repair loop.
const maxReportedErrors = 5

// Validator validates JSON documents against a resolved schema.
type Validator struct {
	resolved *jsonschema.Resolved
}

// Load reads and compiles a schema from a file. Files with a .jsonc
// extension (or stray line comments) are accepted; comments are
// stripped before parsing.
func Load(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return New(data)
}

// New compiles a schema from raw bytes.
func New(data []byte) (*Validator, error) {
	cleaned := stripLineComments(string(data))

	var s jsonschema.Schema
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}

	return &Validator{resolved: resolved}, nil
}

// Validate checks a raw JSON document against the schema. It returns
// the list of validation errors; an empty list means the document is
// valid. Errors beyond the reporting cap are dropped.
func (v *Validator) Validate(doc []byte) []string {
	var instance any
	if err := json.Unmarshal(doc, &instance); err != nil {
		return []string{fmt.Sprintf("proposal is not valid JSON: %v", err)}
	}
	return v.ValidateValue(instance)
}

// ValidateValue checks an already-decoded document against the schema.
func (v *Validator) ValidateValue(instance any) []string {
	err := v.resolved.Validate(instance)
	if err == nil {
		return nil
	}

	errs := splitErrors(err)
	if len(errs) > maxReportedErrors {
		errs = errs[:maxReportedErrors]
	}
	return errs
}

// splitErrors flattens a validation error into individual messages.
func splitErrors(err error) []string {
	lines := strings.Split(err.Error(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = []string{err.Error()}
	}
	return out
}

// stripLineComments removes // comments outside of string literals so
// JSONC schema files parse as plain JSON.
func stripLineComments(content string) string {
	var b strings.Builder
	inString := false
	for _, line := range strings.Split(content, "\n") {
		var cleaned strings.Builder
		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			ch := runes[i]
			if ch == '"' && (i == 0 || runes[i-1] != '\\') {
				inString = !inString
				cleaned.WriteRune(ch)
				continue
			}
			if !inString && ch == '/' && i+1 < len(runes) && runes[i+1] == '/' {
				break
			}
			cleaned.WriteRune(ch)
		}
		b.WriteString(strings.TrimRight(cleaned.String(), " \t"))
		b.WriteString("\n")
	}
	return b.String()
}
