package store_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "codegnosis.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleResult(name string) *ingest.AnalysisResult {
	return &ingest.AnalysisResult{
		ProjectName: name,
		GeneratedAt: "2026-08-23T10:00:00Z",
		Summary:     json.RawMessage(`{"totalFiles":2}`),
		Statistics:  json.RawMessage(`{"avgDependenciesPerFile":0.5}`),
		Files: map[string]*ingest.FileInfo{
			"src/main.js": {
				Category: "JavaScript",
				Lines:    40,
				Size:     "512KB",
				Content:  "import { helper } from './util'",
			},
			"src/util.js": {
				Category: "JavaScript",
				Lines:    12,
				Size:     "???",
				Content:  "export function helper() {}",
			},
		},
		DependencyGraph: map[string][]string{
			"src/main.js": {"src/util.js"},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "codegnosis.db")

	first, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening re-runs migration discovery; recorded versions are no-ops.
	second, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSaveAnalysisPersistsRows(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	projectID, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)
	require.NotEmpty(t, projectID)

	projects, err := s.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "demo", projects[0].Name)
	assert.Equal(t, "/home/dev/demo", projects[0].RootPath)
	assert.Equal(t, 2, projects[0].FileCount)

	count, err := s.FileCount(projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveAnalysisReplacesPriorRun(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	firstID, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)

	second := sampleResult("demo")
	delete(second.Files, "src/util.js")

	secondID, err := s.SaveAnalysis("/home/dev/demo", second)
	require.NoError(t, err)
	require.NotEqual(t, firstID, secondID)

	projects, err := s.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, secondID, projects[0].ID)

	// All file rows must belong to the second run only.
	firstCount, err := s.FileCount(firstID)
	require.NoError(t, err)
	assert.Zero(t, firstCount)

	secondCount, err := s.FileCount(secondID)
	require.NoError(t, err)
	assert.Equal(t, 1, secondCount)
}

func TestSearchFindsStoredContent(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	projectID, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)

	hits, err := s.Search("helper", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, projectID, hits[0].ProjectID)
}

func TestSearchIndexFollowsDeletes(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	projectID, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteProject(projectID))

	hits, err := s.Search("helper", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteUnknownProject(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	err := s.DeleteProject("no-such-id")

	require.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestProjectByRoot(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	_, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)

	project, err := s.ProjectByRoot("/home/dev/demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", project.Name)

	_, err = s.ProjectByRoot("/home/dev/other")
	require.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestRawReportRoundTrip(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	projectID, err := s.SaveAnalysis("/home/dev/demo", sampleResult("demo"))
	require.NoError(t, err)

	raw := []byte(`{"projectName":"demo","files":{}}`)
	require.NoError(t, s.SaveRawReport(projectID, raw))

	restored, err := s.RawReport(projectID)
	require.NoError(t, err)
	assert.Equal(t, raw, restored)

	_, err = s.RawReport("no-such-id")
	require.ErrorIs(t, err, store.ErrNoRawReport)
}
