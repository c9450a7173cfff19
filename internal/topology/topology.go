// Package topology derives coupling-based classification tags over a
// result's dependency graph. Classification is a pure function of degree
// counts, cycle membership, and an entry-point name heuristic, so every
// rule is unit-testable without I/O.
package topology

import (
	"strings"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/pkg/depgraph"
)

// Role vocabulary.
const (
	RoleWorker = "Worker"
	RoleHub    = "Hub"
	RoleTitan  = "Titan"
)

// State vocabulary.
const (
	StateTaut     = "Taut"
	StateDrift    = "Drift"
	StateFracture = "Fracture"
	StateSilence  = "Silence"
)

// Gravity tiers.
const (
	GravityLow    = "Low"
	GravityMedium = "Medium"
	GravityHigh   = "High"
)

// Intent values.
const (
	IntentActiveLogic       = "Active Logic"
	IntentFoundationalTruth = "Foundational Truth"
)

// Degree thresholds. All comparisons are strict.
const (
	hubDegree          = 10
	titanInbound       = 20
	mediumGravityFloor = 5
)

// entryFragments are the name fragments that mark a zero-inbound file as a
// plausible program entry point instead of dead weight. "main" and "index"
// match case-insensitively; "App" must match with its exact casing.
var entryFragments = []string{"main", "index"}

// LooksLikeEntryPoint reports whether a file identifier heuristically
// resembles a program entry point.
func LooksLikeEntryPoint(identifier string) bool {
	lower := strings.ToLower(identifier)

	for _, fragment := range entryFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}

	return strings.Contains(identifier, "App")
}

// Classify evaluates the ordered rule table for one file. Later rules
// override earlier ones; the Titan/Silence rule is the final override and
// beats Fracture.
func Classify(inbound, outbound int, inFracture, looksLikeEntry bool) ingest.ClassificationTag {
	state := StateTaut

	if inbound == 0 && !looksLikeEntry {
		state = StateDrift
	}

	if inFracture {
		state = StateFracture
	}

	role := RoleWorker

	if inbound > hubDegree && outbound > hubDegree {
		role = RoleHub
	}

	if inbound > titanInbound && outbound == 0 {
		role = RoleTitan
		state = StateSilence
	}

	gravity := GravityLow

	switch {
	case inbound > titanInbound:
		gravity = GravityHigh
	case inbound > mediumGravityFloor:
		gravity = GravityMedium
	}

	intent := IntentActiveLogic
	if state == StateSilence {
		intent = IntentFoundationalTruth
	}

	return ingest.ClassificationTag{
		Role:    role,
		State:   state,
		Gravity: gravity,
		Intent:  intent,
	}
}

// Annotate attaches a classification tag to every file entry and the fixed
// glossary to the result. Single pass over the graph for degree counts,
// single pass over the files map for tags.
func Annotate(result *ingest.AnalysisResult) {
	deg := depgraph.DegreesOf(result.DependencyGraph)

	fracture := make(map[string]bool)
	for _, cycle := range result.Cycles {
		for _, member := range cycle.Files {
			fracture[member] = true
		}
	}

	for name, info := range result.Files {
		tag := Classify(
			deg.Inbound[name],
			deg.Outbound[name],
			fracture[name],
			LooksLikeEntryPoint(name),
		)

		info.Classification = &tag
	}

	result.Glossary = Glossary()
}

// Glossary returns the fixed terminology attached to every result. Constant
// display data, never derived from the graph.
func Glossary() map[string]string {
	return map[string]string{
		"Taut":     "The default, stable classification when no other condition applies.",
		"Drift":    "A file with zero inbound dependency edges that does not resemble an entry point.",
		"Fracture": "A file that participates in at least one reported dependency cycle.",
		"Silence":  "A file with very high inbound coupling and zero outbound edges; a foundational, heavily-depended-upon leaf.",
		"Worker":   "The default role for files without notable coupling extremes.",
		"Hub":      "A file with high bidirectional coupling, both imported widely and importing widely.",
		"Titan":    "A file with extreme one-sided inbound coupling and no outbound edges.",
		"Gravity":  "A coarse tier (Low/Medium/High) derived from inbound edge count.",
	}
}
