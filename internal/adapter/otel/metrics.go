package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentforge"

// Metrics holds all AgentForge metric instruments.
type Metrics struct {
	AgentsCreated    metric.Int64Counter
	AgentsDeployed   metric.Int64Counter
	DeploysFailed    metric.Int64Counter
	PromptsRejected  metric.Int64Counter
	LLMCalls         metric.Int64Counter
	PipelineDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.AgentsCreated, err = meter.Int64Counter("agentforge.agents.created",
		metric.WithDescription("Number of agents created"))
	if err != nil {
		return nil, err
	}

	m.AgentsDeployed, err = meter.Int64Counter("agentforge.agents.deployed",
		metric.WithDescription("Number of agents successfully deployed"))
	if err != nil {
		return nil, err
	}

	m.DeploysFailed, err = meter.Int64Counter("agentforge.deploys.failed",
		metric.WithDescription("Number of failed deployments"))
	if err != nil {
		return nil, err
	}

	m.PromptsRejected, err = meter.Int64Counter("agentforge.prompts.rejected",
		metric.WithDescription("Number of prompts rejected as infeasible"))
	if err != nil {
		return nil, err
	}

	m.LLMCalls, err = meter.Int64Counter("agentforge.llm.calls",
		metric.WithDescription("Number of chat-completion calls"))
	if err != nil {
		return nil, err
	}

	m.PipelineDuration, err = meter.Float64Histogram("agentforge.pipeline.duration_seconds",
		metric.WithDescription("Prompt-to-agent build duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
