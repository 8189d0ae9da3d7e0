package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
)

// DesignerService turns a requirement record into REST endpoint designs.
// The design policy is deterministic: the same record always yields the
// same endpoints, so re-running a build never shifts an agent's API.
type DesignerService struct {
	log *slog.Logger
}

// NewDesignerService creates a new DesignerService.
func NewDesignerService(log *slog.Logger) *DesignerService {
	return &DesignerService{log: log}
}

// Design produces the endpoint designs for a record.
func (s *DesignerService) Design(_ context.Context, rec *requirement.Record) ([]endpoint.Design, error) {
	d := endpoint.DesignFromRecord(rec)
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("designed endpoint invalid: %w", err)
	}

	s.log.Info("endpoint designed",
		"method", d.Method,
		"path", d.Path,
		"operation_id", d.OperationID)
	return []endpoint.Design{d}, nil
}
