package api

import (
	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/providers/router"
)

// webhookAcceptedResponse is returned by POST /webhook/prometheus (spec §4.9).
type webhookAcceptedResponse struct {
	Status     string          `json:"status"`
	IncidentID string          `json:"incident_id"`
	Actionable bool            `json:"actionable"`
	Severity   models.Severity `json:"severity"`
}

// incidentListResponse is returned by GET /incidents (spec §4.9).
type incidentListResponse struct {
	Items []models.IncidentSummary `json:"items"`
}

// healthResponse is returned by GET /health (spec §4.9).
type healthResponse struct {
	Status             string                      `json:"status"`
	AppVersion         string                      `json:"app_version"`
	BuildSHA           string                      `json:"build_sha,omitempty"`
	RunnerPolicy       string                      `json:"runner_policy"`
	EffectiveMockFlag  bool                        `json:"effective_mock_flag"`
	ProviderMode       map[string]string           `json:"provider_mode"`
	ProviderReadiness  map[string]router.Readiness `json:"provider_readiness"`
	ProviderContractOK bool                        `json:"provider_contract_ok"`
	ADKReadiness       string                      `json:"adk_readiness"`
	Database           dbHealthView                `json:"database"`
	OrchestratorPool   orchestratorPoolView         `json:"orchestrator_pool"`
}

type dbHealthView struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type orchestratorPoolView struct {
	IsHealthy       bool `json:"is_healthy"`
	TotalWorkers    int  `json:"total_workers"`
	ActiveIncidents int  `json:"active_incidents"`
	QueueDepth      int  `json:"queue_depth"`
	QueueCapacity   int  `json:"queue_capacity"`
	Processed       int  `json:"processed"`
}
