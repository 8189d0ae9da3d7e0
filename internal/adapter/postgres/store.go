package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
)

// Store implements registry.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const agentColumns = `id, name, description, prompt, status, services, endpoints, actions,
	port, dir, pid, api_key_hash, last_error, created_at, updated_at`

// Upsert inserts the agent or replaces the row with the same id.
func (s *Store) Upsert(ctx context.Context, a *agent.Agent) error {
	services, err := json.Marshal(a.Services)
	if err != nil {
		return fmt.Errorf("marshal services: %w", err)
	}
	endpoints, err := json.Marshal(a.Endpoints)
	if err != nil {
		return fmt.Errorf("marshal endpoints: %w", err)
	}
	actions, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agents (`+agentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, description = EXCLUDED.description,
		   prompt = EXCLUDED.prompt, status = EXCLUDED.status,
		   services = EXCLUDED.services, endpoints = EXCLUDED.endpoints,
		   actions = EXCLUDED.actions, port = EXCLUDED.port,
		   dir = EXCLUDED.dir, pid = EXCLUDED.pid,
		   api_key_hash = EXCLUDED.api_key_hash, last_error = EXCLUDED.last_error,
		   updated_at = EXCLUDED.updated_at`,
		a.ID, a.Name, a.Description, a.Prompt, a.Status, services, endpoints, actions,
		a.Port, a.Dir, a.PID, a.APIKeyHash, a.LastError, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

// Get returns the agent by id.
func (s *Store) Get(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// List returns all agents ordered by creation time.
func (s *Store) List(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

// Remove deletes the agent by id.
func (s *Store) Remove(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
	}
	return nil
}

func scanAgent(row pgx.Row) (*agent.Agent, error) {
	var (
		a         agent.Agent
		services  []byte
		endpoints []byte
		actions   []byte
	)
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Prompt, &a.Status,
		&services, &endpoints, &actions, &a.Port, &a.Dir, &a.PID,
		&a.APIKeyHash, &a.LastError, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(services, &a.Services); err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}
	a.Endpoints = []endpoint.Design{}
	if err := json.Unmarshal(endpoints, &a.Endpoints); err != nil {
		return nil, fmt.Errorf("unmarshal endpoints: %w", err)
	}
	a.Actions = []action.Selected{}
	if err := json.Unmarshal(actions, &a.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return &a, nil
}
