package ingest

import (
	"encoding/json"
	"sort"
)

// ClassificationTag is the topology annotation attached to each file entry
// after ingestion. Field values come from the classifier's fixed vocabulary.
type ClassificationTag struct {
	Role    string `json:"role"`
	State   string `json:"state"`
	Gravity string `json:"gravity"`
	Intent  string `json:"intent"`
}

// Cycle is one circular-dependency group reported by the analyzer.
type Cycle struct {
	Files []string `json:"files"`
}

// FileInfo is one entry of the result's files map. Unknown analyzer keys are
// preserved verbatim so the persisted metadata blob round-trips the full
// entry, including fields this version does not model.
type FileInfo struct {
	Category        string             `json:"category,omitempty"`
	Imports         []string           `json:"imports,omitempty"`
	ImportedBy      []string           `json:"importedBy,omitempty"`
	IsEntryPoint    bool               `json:"isEntryPoint,omitempty"`
	IsOrphaned      bool               `json:"isOrphaned,omitempty"`
	DependencyCount int                `json:"dependencyCount,omitempty"`
	Size            string             `json:"size,omitempty"`
	Lines           int                `json:"lines,omitempty"`
	Content         string             `json:"content,omitempty"`
	Classification  *ClassificationTag `json:"classification,omitempty"`

	extra map[string]json.RawMessage
}

// knownFileKeys are the keys lifted into typed fields; everything else stays
// in the extra map.
var knownFileKeys = map[string]bool{
	"category":        true,
	"imports":         true,
	"importedBy":      true,
	"isEntryPoint":    true,
	"isOrphaned":      true,
	"dependencyCount": true,
	"size":            true,
	"lines":           true,
	"content":         true,
	"classification":  true,
}

// UnmarshalJSON decodes the typed fields and stashes unrecognized keys.
func (f *FileInfo) UnmarshalJSON(data []byte) error {
	type plain FileInfo

	var typed plain

	err := json.Unmarshal(data, &typed)
	if err != nil {
		return err
	}

	var all map[string]json.RawMessage

	err = json.Unmarshal(data, &all)
	if err != nil {
		return err
	}

	*f = FileInfo(typed)

	for key, value := range all {
		if knownFileKeys[key] {
			continue
		}

		if f.extra == nil {
			f.extra = make(map[string]json.RawMessage)
		}

		f.extra[key] = value
	}

	return nil
}

// MarshalJSON re-emits the typed fields merged with the preserved extras.
func (f FileInfo) MarshalJSON() ([]byte, error) {
	type plain FileInfo

	typedRaw, err := json.Marshal(plain(f))
	if err != nil {
		return nil, err
	}

	if len(f.extra) == 0 {
		return typedRaw, nil
	}

	var merged map[string]json.RawMessage

	err = json.Unmarshal(typedRaw, &merged)
	if err != nil {
		return nil, err
	}

	for key, value := range f.extra {
		merged[key] = value
	}

	return json.Marshal(merged)
}

// AnalysisResult is the canonical analyzer payload. Summary and statistics
// stay opaque; their shape belongs to the analyzer and is persisted as-is.
type AnalysisResult struct {
	ProjectName      string               `json:"projectName"`
	GeneratedAt      string               `json:"generatedAt"`
	Summary          json.RawMessage      `json:"summary"`
	EntryPoints      []json.RawMessage    `json:"entryPoints"`
	HubFiles         []json.RawMessage    `json:"hubFiles"`
	HealthWarnings   []json.RawMessage    `json:"healthWarnings"`
	Cycles           []Cycle              `json:"cycles,omitempty"`
	BrokenReferences []json.RawMessage    `json:"brokenReferences,omitempty"`
	Statistics       json.RawMessage      `json:"statistics"`
	Files            map[string]*FileInfo `json:"files"`
	DependencyGraph  map[string][]string  `json:"dependencyGraph"`
	GraphImagePath   string               `json:"graphImagePath,omitempty"`
	GraphImageFormat string               `json:"graphImageFormat,omitempty"`
	Glossary         map[string]string    `json:"glossary,omitempty"`
}

// FileNames returns the files-map keys in sorted order, for deterministic
// iteration in persistence and rendering.
func (r *AnalysisResult) FileNames() []string {
	names := make([]string, 0, len(r.Files))
	for name := range r.Files {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
