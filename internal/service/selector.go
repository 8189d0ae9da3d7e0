package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
	"github.com/Strob0t/AgentForge/internal/port/cache"
	"github.com/Strob0t/AgentForge/internal/port/catalog"
	"github.com/Strob0t/AgentForge/internal/port/llm"
)

const catalogCacheKey = "catalog:actions"

// SelectorService picks the integration actions an agent needs: the
// catalog is filtered to the record's services, then the model chooses
// the relevant subset.
type SelectorService struct {
	catalog catalog.Provider
	cache   cache.Cache
	llm     llm.Client
	ttl     time.Duration
	log     *slog.Logger
}

// NewSelectorService creates a new SelectorService. ttl bounds how long a
// catalog snapshot is reused between builds.
func NewSelectorService(provider catalog.Provider, c cache.Cache, client llm.Client, ttl time.Duration, log *slog.Logger) *SelectorService {
	return &SelectorService{catalog: provider, cache: c, llm: client, ttl: ttl, log: log}
}

type selectOutput struct {
	ActionIDs []string `json:"action_ids"`
}

// Select returns the chosen actions for the record. An empty or
// unreachable catalog, or a service set with no matching catalog entries,
// returns domain.ErrUnavailable.
func (s *SelectorService) Select(ctx context.Context, rec *requirement.Record) ([]action.Selected, error) {
	entries, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrUnavailable)
	}

	candidates := action.FilterByServices(entries, rec.Services)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no catalog actions for services %s",
			domain.ErrUnavailable, strings.Join(rec.Services, ", "))
	}

	chosen, err := s.choose(ctx, rec, candidates)
	if err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: model selected no actions", domain.ErrUnavailable)
	}

	s.log.Info("actions selected", "count", len(chosen))
	return chosen, nil
}

// loadCatalog serves the catalog from cache when fresh, falling back to
// the provider. Cache failures degrade to a direct fetch.
func (s *SelectorService) loadCatalog(ctx context.Context) ([]action.CatalogEntry, error) {
	if data, ok, err := s.cache.Get(ctx, catalogCacheKey); err == nil && ok {
		var entries []action.CatalogEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := s.catalog.Actions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	if data, err := json.Marshal(entries); err == nil {
		_ = s.cache.Set(ctx, catalogCacheKey, data, s.ttl)
	}
	return entries, nil
}

// choose asks the model to pick from the candidates and keeps only ids
// that actually exist in the candidate set.
func (s *SelectorService) choose(ctx context.Context, rec *requirement.Record, candidates []action.CatalogEntry) ([]action.Selected, error) {
	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = fmt.Sprintf("- %s: %s", c.ID, c.Description)
	}

	resp, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: selectActionsSystem},
			{Role: llm.RoleUser, Content: fmt.Sprintf(selectActionsUser, rec.TaskDescription, strings.Join(lines, "\n"))},
		},
		Temperature: 0,
		MaxTokens:   512,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}

	var out selectOutput
	dec := json.NewDecoder(strings.NewReader(llm.StripFences(resp)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: parse selection: %v", domain.ErrUpstream, err)
	}

	byID := make(map[string]action.CatalogEntry, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	var selected []action.Selected
	for _, id := range out.ActionIDs {
		entry, ok := byID[id]
		if !ok {
			s.log.Warn("model selected unknown action id", "id", id)
			continue
		}
		selected = append(selected, action.Selected{
			ID:          entry.ID,
			Service:     entry.Service,
			Name:        entry.Name,
			Description: entry.Description,
			ArgSchema:   entry.ArgSchema,
		})
	}
	return selected, nil
}
