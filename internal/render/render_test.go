package render_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/internal/render"
	"github.com/Sumatoshi-tech/codegnosis/internal/topology"
)

func classifiedResult(t *testing.T) *ingest.AnalysisResult {
	t.Helper()

	doc := `{
		"projectName": "demo",
		"generatedAt": "2026-08-23T10:00:00Z",
		"summary": {},
		"entryPoints": [],
		"hubFiles": [],
		"healthWarnings": ["orphaned file detected", {"kind": "cycle", "severity": "high"}],
		"cycles": [{"files": ["a.js", "b.js"]}],
		"statistics": {},
		"files": {
			"a.js": {"category": "JavaScript", "lines": 10, "size": "512KB"},
			"b.js": {"category": "JavaScript", "lines": 20, "size": "???"},
			"c.js": {"category": "JavaScript", "lines": 5}
		},
		"dependencyGraph": {"a.js": ["b.js"], "b.js": ["a.js"], "c.js": ["a.js"]}
	}`

	result, err := ingest.Parse([]byte(doc))
	require.NoError(t, err)

	topology.Annotate(result)

	return result
}

func TestReport_ContainsClassifiedRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Report(&buf, classifiedResult(t), render.Options{NoColor: true})
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "3 files")
	assert.Contains(t, out, "1 cycles")
	assert.Contains(t, out, "a.js")
	assert.Contains(t, out, "Fracture")
	assert.Contains(t, out, "Worker")
	// 512KB parses 1024-based.
	assert.Contains(t, out, "512 KiB")
	// Unparseable descriptors fall through verbatim.
	assert.Contains(t, out, "???")
}

func TestReport_WarningsSection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Report(&buf, classifiedResult(t), render.Options{NoColor: true})
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "Health warnings:")
	assert.Contains(t, out, "orphaned file detected")
	assert.Contains(t, out, `"kind": "cycle"`)
}

func TestReport_GlossarySection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Report(&buf, classifiedResult(t), render.Options{NoColor: true})
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "Term")
	assert.Contains(t, out, "Gravity")
}

func TestReport_MaxFilesTruncates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Report(&buf, classifiedResult(t), render.Options{NoColor: true, MaxFiles: 1})
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "a.js")
	assert.NotContains(t, out, "c.js")
	assert.Contains(t, out, "2 more files")
}

func TestReport_NoColorOmitsEscapes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.Report(&buf, classifiedResult(t), render.Options{NoColor: true})
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestGraphHTML_RendersPage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.GraphHTML(&buf, classifiedResult(t), "dark")
	require.NoError(t, err)

	out := buf.String()

	assert.True(t, strings.Contains(out, "echarts"))
	assert.Contains(t, out, "a.js")
	assert.Contains(t, out, "b.js")
	// Both cycle members carry the alarm color.
	assert.Contains(t, out, "#e74c3c")
	assert.Contains(t, out, "Fracture")
}
