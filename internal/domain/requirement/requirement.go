// Package requirement defines the structured requirements extracted from a
// natural-language prompt: the task description, the external services it
// touches, and the typed parameters the resulting endpoint will need.
package requirement

import "strings"

// ParamType is the closed set of parameter types the extractor may assign.
type ParamType string

const (
	TypeString     ParamType = "string"
	TypeInteger    ParamType = "integer"
	TypeBoolean    ParamType = "boolean"
	TypeStringList ParamType = "string_list"
)

// ParamLocation is where a parameter is carried on the wire.
type ParamLocation string

const (
	LocationPath  ParamLocation = "path"
	LocationQuery ParamLocation = "query"
	LocationBody  ParamLocation = "body"
)

// Parameter is one inferred API parameter with a placement hint for the
// interface designer.
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParamType     `json:"type"`
	Location    ParamLocation `json:"location"`
	Required    bool          `json:"required"`
	Description string        `json:"description,omitempty"`
	HowUsed     string        `json:"how_used,omitempty"`
}

// Record is the validated output of the requirement extractor.
// Immutable after creation; consumed by the designer and the selector.
type Record struct {
	RawPrompt       string      `json:"raw_prompt"`
	TaskDescription string      `json:"task_description"`
	Services        []string    `json:"services"`
	Parameters      []Parameter `json:"parameters"`
}

// NormalizeType maps a loosely typed label from the model into the closed
// ParamType union. Unknown labels degrade to TypeString; misclassification
// is a recoverable validation error in the generated agent, not fatal here.
func NormalizeType(s string) ParamType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "number":
		return TypeInteger
	case "bool", "boolean":
		return TypeBoolean
	case "list", "list[str]", "list[string]", "string_list", "array", "[]string":
		return TypeStringList
	default:
		return TypeString
	}
}

// NormalizeLocation maps a placement label to the closed location set,
// defaulting to body.
func NormalizeLocation(s string) ParamLocation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "path":
		return LocationPath
	case "query":
		return LocationQuery
	default:
		return LocationBody
	}
}

// DedupeServices returns services in first-mention order with duplicates
// removed case-insensitively. Original casing of the first mention wins.
func DedupeServices(services []string) []string {
	seen := make(map[string]struct{}, len(services))
	out := make([]string, 0, len(services))
	for _, s := range services {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
