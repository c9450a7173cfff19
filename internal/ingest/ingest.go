// Package ingest normalizes raw analyzer output into the canonical
// AnalysisResult. Analyzers either emit the result inline on standard
// output or hand back a small envelope naming a result file on disk; the
// file always wins when both are present.
package ingest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed result-schema.json
var resultSchema []byte

// ParseError is a fatal ingestion failure. It carries the raw text that
// failed so the caller can surface it for diagnosis.
type ParseError struct {
	Stage string
	Raw   string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// envelope is the optional indirection wrapper analyzers use when the
// result is too large for standard output.
type envelope struct {
	ResultFile string `json:"resultFile"`
}

// Parse turns raw analyzer output into an AnalysisResult. When the output
// carries a resultFile field, the named file's contents become the
// canonical payload and the inline document's other fields are ignored.
func Parse(raw []byte) (*AnalysisResult, error) {
	var env envelope

	envErr := json.Unmarshal(raw, &env)
	if envErr != nil {
		return nil, &ParseError{Stage: "analyzer output", Raw: string(raw), Err: envErr}
	}

	if env.ResultFile == "" {
		return decode(raw, "analyzer output")
	}

	payload, readErr := os.ReadFile(env.ResultFile)
	if readErr != nil {
		return nil, &ParseError{Stage: "result file", Raw: string(raw), Err: readErr}
	}

	return decode(payload, "result file")
}

func decode(payload []byte, stage string) (*AnalysisResult, error) {
	validateErr := validate(payload)
	if validateErr != nil {
		return nil, &ParseError{Stage: stage, Raw: string(payload), Err: validateErr}
	}

	var result AnalysisResult

	err := json.Unmarshal(payload, &result)
	if err != nil {
		return nil, &ParseError{Stage: stage, Raw: string(payload), Err: err}
	}

	if result.Files == nil {
		result.Files = make(map[string]*FileInfo)
	}

	if result.DependencyGraph == nil {
		result.DependencyGraph = make(map[string][]string)
	}

	return &result, nil
}

func validate(payload []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(resultSchema)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	outcome, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if outcome.Valid() {
		return nil
	}

	first := outcome.Errors()[0]

	return fmt.Errorf("schema violation at %s: %s", first.Field(), first.Description())
}
