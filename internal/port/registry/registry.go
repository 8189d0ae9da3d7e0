// Package registry defines the agent registry port (interface).
package registry

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// Store is the port interface for agent persistence. Implementations must
// be safe for concurrent use.
type Store interface {
	// Upsert inserts the agent or replaces the stored record with the same id.
	Upsert(ctx context.Context, a *agent.Agent) error

	// Get returns the agent by id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*agent.Agent, error)

	// List returns all agents ordered by creation time.
	List(ctx context.Context) ([]agent.Agent, error)

	// Remove deletes the agent by id, or domain.ErrNotFound.
	Remove(ctx context.Context, id string) error
}
