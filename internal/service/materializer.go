package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
)

//go:embed templates/agent_main.py.tmpl
var agentMainTemplate string

// Generated file names inside an agent's deployment directory.
const (
	SourceFile   = "main.py"
	ConfigFile   = "config.json"
	ManifestFile = "requirements.txt"
)

// agentManifest pins the runtime dependencies of every generated agent.
const agentManifest = `fastapi==0.115.*
uvicorn==0.32.*
httpx==0.27.*
pydantic==2.*
`

// AgentMeta carries the identity fields the materializer renders into
// the generated files. The agent id only appears in the config file, so
// the source stays byte-identical across agents built from the same
// design.
type AgentMeta struct {
	ID              string
	Name            string
	Description     string
	TaskDescription string
	Services        []string
}

// Artifacts is the full set of files the deployer writes into an agent's
// directory.
type Artifacts struct {
	Source     []byte
	ConfigJSON []byte
	Manifest   []byte
}

var agentTemplate = template.Must(template.New("agent_main").Funcs(template.FuncMap{
	"pystr": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
	"pylist": func(items []string) (string, error) {
		if items == nil {
			items = []string{}
		}
		b, err := json.Marshal(items)
		return string(b), err
	},
	"pybool": func(b bool) string {
		if b {
			return "True"
		}
		return "False"
	},
	"pymethod": func(m endpoint.Method) string {
		return strings.ToLower(string(m))
	},
}).Parse(agentMainTemplate))

// MaterializerService renders the fixed agent template into deployable
// source. Rendering is pure text substitution: the same inputs always
// produce the same bytes.
type MaterializerService struct {
	log *slog.Logger
}

// NewMaterializerService creates a new MaterializerService.
func NewMaterializerService(log *slog.Logger) *MaterializerService {
	return &MaterializerService{log: log}
}

type templateContext struct {
	Meta      AgentMeta
	Endpoints []endpoint.Design
	ActionIDs []string
}

type agentConfig struct {
	AgentID         string            `json:"agent_id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	TaskDescription string            `json:"task_description"`
	Services        []string          `json:"services"`
	Endpoints       []endpoint.Design `json:"endpoints"`
	Actions         []action.Selected `json:"actions"`
}

// Materialize renders the agent source, config and dependency manifest.
func (s *MaterializerService) Materialize(endpoints []endpoint.Design, actions []action.Selected, meta AgentMeta) (Artifacts, error) {
	if len(endpoints) == 0 {
		return Artifacts{}, fmt.Errorf("materialize: no endpoints to render")
	}

	ids := make([]string, len(actions))
	for i, a := range actions {
		ids[i] = a.ID
	}

	var src bytes.Buffer
	err := agentTemplate.Execute(&src, templateContext{
		Meta:      meta,
		Endpoints: endpoints,
		ActionIDs: ids,
	})
	if err != nil {
		return Artifacts{}, fmt.Errorf("render agent template: %w", err)
	}

	cfg, err := json.MarshalIndent(agentConfig{
		AgentID:         meta.ID,
		Name:            meta.Name,
		Description:     meta.Description,
		TaskDescription: meta.TaskDescription,
		Services:        meta.Services,
		Endpoints:       endpoints,
		Actions:         actions,
	}, "", "  ")
	if err != nil {
		return Artifacts{}, fmt.Errorf("marshal agent config: %w", err)
	}

	s.log.Info("agent code materialized",
		"agent_id", meta.ID,
		"endpoints", len(endpoints),
		"actions", len(ids),
		"source_bytes", src.Len())

	return Artifacts{
		Source:     src.Bytes(),
		ConfigJSON: cfg,
		Manifest:   []byte(agentManifest),
	}, nil
}
