// Package action models the integration catalog entries and the subset an
// agent is allowed to invoke at runtime.
package action

import "strings"

// CatalogEntry is one action offered by the integration catalog, grouped
// by the external service it belongs to.
type CatalogEntry struct {
	ID          string            `json:"id"`
	Service     string            `json:"service"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ArgSchema   map[string]string `json:"arg_schema,omitempty"`
}

// Selected is a catalog action chosen for an agent. The argument schema is
// carried over from the catalog verbatim so the generated program can
// validate tool calls without a second catalog lookup.
type Selected struct {
	ID          string            `json:"id"`
	Service     string            `json:"service"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ArgSchema   map[string]string `json:"arg_schema,omitempty"`
}

// FilterByServices returns the catalog entries whose service matches one of
// the given services, compared case-insensitively. Catalog order is kept.
func FilterByServices(entries []CatalogEntry, services []string) []CatalogEntry {
	want := make(map[string]struct{}, len(services))
	for _, s := range services {
		want[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	out := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := want[strings.ToLower(e.Service)]; ok {
			out = append(out, e)
		}
	}
	return out
}
