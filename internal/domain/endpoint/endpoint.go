// Package endpoint defines the REST endpoint design produced by the
// interface designer and embedded into the Agent record.
package endpoint

import (
	"fmt"
	"strings"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
)

// Method is the HTTP method of a designed endpoint.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// ValidMethod reports whether m is one of the five supported methods.
func ValidMethod(m Method) bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	}
	return false
}

// Param is one parameter of the designed endpoint.
type Param struct {
	Name        string                `json:"name"`
	Type        requirement.ParamType `json:"type"`
	Required    bool                  `json:"required"`
	Description string                `json:"description,omitempty"`
}

// Design is the full design for one REST endpoint, ready for the
// code materializer. Never mutated after creation.
type Design struct {
	Method              Method  `json:"method"`
	Path                string  `json:"path"`
	OperationID         string  `json:"operation_id"`
	Summary             string  `json:"summary"`
	PathParams          []Param `json:"path_parameters"`
	QueryParams         []Param `json:"query_parameters"`
	BodyParams          []Param `json:"body_parameters"`
	ResponseDescription string  `json:"response_description"`
}

// Validate checks structural invariants of a design.
func (d *Design) Validate() error {
	if !ValidMethod(d.Method) {
		return fmt.Errorf("%w: invalid method %q", domain.ErrValidation, d.Method)
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("%w: path must start with /", domain.ErrValidation)
	}
	for _, p := range d.PathParams {
		if !strings.Contains(d.Path, "{"+p.Name+"}") {
			return fmt.Errorf("%w: path parameter %q missing from path %q", domain.ErrValidation, p.Name, d.Path)
		}
	}
	return nil
}
