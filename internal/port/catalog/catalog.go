// Package catalog defines the integration-catalog port (interface).
package catalog

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/action"
)

// Provider is the port interface for the external action catalog.
type Provider interface {
	// Actions returns the full catalog. Implementations may serve a cached
	// snapshot; callers filter by service themselves.
	Actions(ctx context.Context) ([]action.CatalogEntry, error)
}
