package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"alpha-only": {"type": "boolean"},
		"alphas": {
			"type": "object",
			"properties": {
				"new": {"type": "array", "items": {"type": "object", "required": ["name"]}}
			}
		},
		"universe": {"type": "object"}
	},
	"required": ["alphas", "universe"],
	"additionalProperties": false
}`

func TestNewRejectsBadSchema(t *testing.T) {
	_, err := New([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateValid(t *testing.T) {
	v, err := New([]byte(testSchema))
	require.NoError(t, err)

	errs := v.Validate([]byte(`{
		"alpha-only": true,
		"alphas": {"new": [{"name": "a1"}]},
		"universe": {}
	}`))
	assert.Empty(t, errs)
}

func TestValidateMissingRequired(t *testing.T) {
	v, err := New([]byte(testSchema))
	require.NoError(t, err)

	errs := v.Validate([]byte(`{"alphas": {}}`))
	assert.NotEmpty(t, errs)
}

func TestValidateAdditionalProperties(t *testing.T) {
	v, err := New([]byte(testSchema))
	require.NoError(t, err)

	errs := v.Validate([]byte(`{"alphas": {}, "universe": {}, "portfolio": {}}`))
	assert.NotEmpty(t, errs)
}

func TestValidateMalformedJSON(t *testing.T) {
	v, err := New([]byte(testSchema))
	require.NoError(t, err)

	errs := v.Validate([]byte(`{`))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not valid JSON")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o600))

	v, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, v.Validate([]byte(`{"alphas": {}, "universe": {}}`)))

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestJSONCCommentsStripped(t *testing.T) {
	jsonc := `{
		// schema for tests
		"type": "object", // trailing comment
		"properties": {
			"url": {"type": "string", "pattern": "https://"}
		}
	}`

	v, err := New([]byte(jsonc))
	require.NoError(t, err)
	assert.Empty(t, v.Validate([]byte(`{"url": "https://example.com"}`)), "slashes inside strings survive comment stripping")
}

func TestDefaultSchemaFile(t *testing.T) {
	v, err := Load(filepath.Join("..", "..", "schema", "proposal-schema.json"))
	require.NoError(t, err)

	errs := v.Validate([]byte(`{
		"alpha-only": true,
		"alphas": {"new": [{"name": "momentum", "text": "rank by momentum"}]},
		"universe": {"existing": [{"name": "liquid_us"}]}
	}`))
	assert.Empty(t, errs)

	errs = v.Validate([]byte(`{"alphas": {"new": [{"text": "missing name"}]}, "universe": {}}`))
	assert.NotEmpty(t, errs)
}
