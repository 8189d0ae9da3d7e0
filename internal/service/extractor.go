package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
	"github.com/Strob0t/AgentForge/internal/port/llm"
)

// ExtractorService turns a natural-language prompt into a structured
// requirement record via three chat completions: validate, services,
// parameters.
type ExtractorService struct {
	llm llm.Client
	log *slog.Logger
}

// NewExtractorService creates a new ExtractorService.
func NewExtractorService(client llm.Client, log *slog.Logger) *ExtractorService {
	return &ExtractorService{llm: client, log: log}
}

type validateOutput struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

type servicesOutput struct {
	Services []string `json:"services"`
}

type parameterItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Location    string `json:"location"`
	HowUsed     string `json:"how_used"`
}

type parametersOutput struct {
	Parameters []parameterItem `json:"parameters"`
}

// Extract runs the three extraction steps. An infeasible prompt returns
// domain.ErrRejected carrying the model's reason; transport and parse
// failures return domain.ErrUpstream.
func (s *ExtractorService) Extract(ctx context.Context, prompt string) (*requirement.Record, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", domain.ErrValidation)
	}

	var valid validateOutput
	if err := s.completeJSON(ctx, validateTaskSystem, fmt.Sprintf(validateTaskUser, prompt), &valid); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}
	if !valid.Valid {
		reason := valid.Reason
		if reason == "" {
			reason = "not an actionable workflow task"
		}
		s.log.Info("prompt rejected", "reason", reason)
		return nil, fmt.Errorf("%w: %s", domain.ErrRejected, reason)
	}

	var services servicesOutput
	if err := s.completeJSON(ctx, extractServicesSystem, fmt.Sprintf(extractServicesUser, prompt), &services); err != nil {
		return nil, fmt.Errorf("extract services: %w", err)
	}
	deduped := requirement.DedupeServices(services.Services)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("%w: no recognizable service named in the task", domain.ErrRejected)
	}

	var params parametersOutput
	user := fmt.Sprintf(extractParametersUser, prompt, strings.Join(deduped, ", "))
	if err := s.completeJSON(ctx, extractParametersSystem, user, &params); err != nil {
		return nil, fmt.Errorf("extract parameters: %w", err)
	}

	rec := &requirement.Record{
		RawPrompt:  prompt,
		Services:   deduped,
		Parameters: make([]requirement.Parameter, 0, len(params.Parameters)),
	}
	for _, p := range params.Parameters {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		rec.Parameters = append(rec.Parameters, requirement.Parameter{
			Name:        name,
			Type:        requirement.NormalizeType(p.Type),
			Location:    requirement.NormalizeLocation(p.Location),
			Required:    p.Required,
			Description: p.Description,
			HowUsed:     p.HowUsed,
		})
	}
	rec.TaskDescription = taskDescription(rec)

	s.log.Info("requirements extracted",
		"services", rec.Services,
		"parameters", len(rec.Parameters))
	return rec, nil
}

// completeJSON runs one JSON-mode completion and parses the response
// strictly into out.
func (s *ExtractorService) completeJSON(ctx context.Context, system, user string, out any) error {
	resp, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: 0,
		MaxTokens:   1024,
		JSONOnly:    true,
	})
	if err != nil {
		return err
	}

	dec := json.NewDecoder(strings.NewReader(llm.StripFences(resp)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: parse model response: %v", domain.ErrUpstream, err)
	}
	return nil
}

// taskDescription assembles the record's task description from its parts.
func taskDescription(rec *requirement.Record) string {
	parts := []string{"Task: " + rec.RawPrompt}
	if len(rec.Services) > 0 {
		parts = append(parts, "Services: "+strings.Join(rec.Services, ", "))
	}
	if len(rec.Parameters) > 0 {
		lines := make([]string, 0, len(rec.Parameters))
		for _, p := range rec.Parameters {
			use := p.HowUsed
			if use == "" {
				use = p.Description
			}
			lines = append(lines, fmt.Sprintf("- %s (%s, %s): %s", p.Name, p.Type, p.Location, use))
		}
		parts = append(parts, "Parameters:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n")
}
