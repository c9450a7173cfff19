package ingest_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
)

const minimalResult = `{
	"projectName": "demo",
	"generatedAt": "2026-08-23T10:00:00Z",
	"summary": {"totalFiles": 2},
	"entryPoints": [{"file": "src/main.js"}],
	"hubFiles": [],
	"healthWarnings": [],
	"statistics": {"avgDependenciesPerFile": 0.5},
	"files": {
		"src/main.js": {"category": "JavaScript", "lines": 40, "size": "1.5KB"},
		"src/util.js": {"category": "JavaScript", "lines": 12, "size": "0.3KB", "complexity": "low"}
	},
	"dependencyGraph": {"src/main.js": ["src/util.js"]}
}`

func TestParseInlineResult(t *testing.T) {
	t.Parallel()

	result, err := ingest.Parse([]byte(minimalResult))

	require.NoError(t, err)
	assert.Equal(t, "demo", result.ProjectName)
	assert.Len(t, result.Files, 2)
	assert.Equal(t, "JavaScript", result.Files["src/main.js"].Category)
	assert.Equal(t, 40, result.Files["src/main.js"].Lines)
	assert.Equal(t, []string{"src/util.js"}, result.DependencyGraph["src/main.js"])
	assert.Empty(t, result.Cycles)
	assert.Empty(t, result.BrokenReferences)
}

func TestParseResultFileIndirection(t *testing.T) {
	t.Parallel()

	resultPath := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(resultPath, []byte(minimalResult), 0o600))

	// Inline fields other than resultFile must be ignored.
	envelope, marshalErr := json.Marshal(map[string]any{
		"resultFile":  resultPath,
		"projectName": "ignored-inline-name",
	})
	require.NoError(t, marshalErr)

	result, err := ingest.Parse(envelope)

	require.NoError(t, err)
	assert.Equal(t, "demo", result.ProjectName)
}

func TestParseMissingResultFile(t *testing.T) {
	t.Parallel()

	_, err := ingest.Parse([]byte(`{"resultFile": "/nonexistent/result.json"}`))

	var parseErr *ingest.ParseError

	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "result file", parseErr.Stage)
}

func TestParseNonJSONOutput(t *testing.T) {
	t.Parallel()

	_, err := ingest.Parse([]byte("panic: something exploded"))

	var parseErr *ingest.ParseError

	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Raw, "panic: something exploded")
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	// Valid JSON, but missing required result fields.
	_, err := ingest.Parse([]byte(`{"projectName": "demo"}`))

	var parseErr *ingest.ParseError

	require.ErrorAs(t, err, &parseErr)
}

func TestParseRejectsNullFileEntry(t *testing.T) {
	t.Parallel()

	// A null file value would otherwise surface as a nil entry and crash
	// every downstream consumer that touches the file record.
	doc := `{
		"projectName": "demo",
		"generatedAt": "2026-08-23T10:00:00Z",
		"summary": {},
		"entryPoints": [],
		"hubFiles": [],
		"healthWarnings": [],
		"statistics": {},
		"files": {"src/ghost.js": null},
		"dependencyGraph": {}
	}`

	_, err := ingest.Parse([]byte(doc))

	var parseErr *ingest.ParseError

	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "ghost")
}

func TestParseCyclesAndOptionalFields(t *testing.T) {
	t.Parallel()

	doc := `{
		"projectName": "demo",
		"generatedAt": "2026-08-23T10:00:00Z",
		"summary": {},
		"entryPoints": [],
		"hubFiles": [],
		"healthWarnings": [],
		"cycles": [{"files": ["a.js", "b.js"]}],
		"brokenReferences": [{"from": "a.js", "to": "gone.js"}],
		"statistics": {},
		"files": {},
		"dependencyGraph": {},
		"graphImagePath": "/tmp/graph.svg",
		"graphImageFormat": "svg"
	}`

	result, err := ingest.Parse([]byte(doc))

	require.NoError(t, err)
	require.Len(t, result.Cycles, 1)
	assert.Equal(t, []string{"a.js", "b.js"}, result.Cycles[0].Files)
	assert.Len(t, result.BrokenReferences, 1)
	assert.Equal(t, "/tmp/graph.svg", result.GraphImagePath)
	assert.Equal(t, "svg", result.GraphImageFormat)
}

func TestFileInfoRoundTripsUnknownKeys(t *testing.T) {
	t.Parallel()

	var info ingest.FileInfo

	raw := `{"category":"Go","lines":7,"ownerTeam":"infra","riskScore":3}`
	require.NoError(t, json.Unmarshal([]byte(raw), &info))

	info.Classification = &ingest.ClassificationTag{
		Role: "Worker", State: "Taut", Gravity: "Low", Intent: "Active Logic",
	}

	out, err := json.Marshal(info)
	require.NoError(t, err)

	var merged map[string]any

	require.NoError(t, json.Unmarshal(out, &merged))
	assert.Equal(t, "Go", merged["category"])
	assert.Equal(t, "infra", merged["ownerTeam"])
	assert.EqualValues(t, 3, merged["riskScore"])

	tag, ok := merged["classification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Taut", tag["state"])
}
