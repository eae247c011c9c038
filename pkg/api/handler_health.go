package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/resilix/orchestrator/pkg/orchestrator"
	"github.com/resilix/orchestrator/pkg/providers/router"
	"github.com/resilix/orchestrator/pkg/version"
)

// adkReadiness reports on the ADK reasoning-runner sub-system (spec §1
// Non-goals): this core never delegates to it, so it is always reported as
// not configured rather than probed.
const adkReadiness = "not_configured"

func buildSHA(cfg string) string {
	if cfg != "" {
		return cfg
	}
	return version.GitCommit
}

// healthHandler handles GET /health (spec §4.9), grounded on
// original_source/src/resilix/api/health.py. It reports provider readiness
// per-mode rather than assuming mock-everywhere, so an operator can see at a
// glance whether a misconfigured api-mode provider is silently degraded.
func (s *Server) healthHandler(c *gin.Context) {
	jiraReady := router.JiraReadiness(s.cfg.Jira)
	githubReady := router.GitHubReadiness(s.cfg.GitHub)

	contractOK := true
	switch s.cfg.Jira.Mode {
	case "api":
		contractOK = contractOK && jiraReady.Ready
	case "mock":
	default:
		contractOK = false
	}
	switch s.cfg.GitHub.Mode {
	case "api":
		contractOK = contractOK && githubReady.Ready
	case "mock":
	default:
		contractOK = false
	}

	dbHealth := s.dbHealth(c.Request.Context())
	poolHealth := s.pool.Health()
	contractOK = contractOK && dbHealth.Connected && poolHealth.IsHealthy

	status := "ok"
	httpStatus := http.StatusOK
	if !contractOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, healthResponse{
		Status:            status,
		AppVersion:        version.Full(),
		BuildSHA:          buildSHA(s.cfg.BuildSHA),
		RunnerPolicy:      orchestrator.RunnerPolicy,
		EffectiveMockFlag: s.cfg.EffectiveUseMockProviders(),
		ADKReadiness:      adkReadiness,
		ProviderMode: map[string]string{
			"jira":   jiraReady.ResolvedBackend,
			"github": githubReady.ResolvedBackend,
		},
		ProviderReadiness: map[string]router.Readiness{
			"jira":   jiraReady,
			"github": githubReady,
		},
		ProviderContractOK: contractOK,
		Database:           dbHealth,
		OrchestratorPool: orchestratorPoolView{
			IsHealthy:       poolHealth.IsHealthy,
			TotalWorkers:    poolHealth.TotalWorkers,
			ActiveIncidents: poolHealth.ActiveIncidents,
			QueueDepth:      poolHealth.QueueDepth,
			QueueCapacity:   poolHealth.QueueCapacity,
			Processed:       poolHealth.Processed,
		},
	})
}
