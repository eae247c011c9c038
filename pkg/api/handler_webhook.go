package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/resilix/orchestrator/pkg/mapper"
	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/orchestrator"
	"github.com/resilix/orchestrator/pkg/providers/router"
	"github.com/resilix/orchestrator/pkg/sentinel"
)

// newIncidentID mints an "INC-" + 8 hex char ID, matching
// original_source's f"INC-{uuid4().hex[:8]}".
func newIncidentID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "INC-" + hex[:8]
}

func validatePrometheusPayload(payload map[string]any) bool {
	if payload == nil {
		return false
	}
	_, hasAlerts := payload["alerts"]
	_, hasStatus := payload["status"]
	return hasAlerts || hasStatus
}

// webhookHandler handles POST /webhook/prometheus (spec §4.9), grounded on
// original_source/src/resilix/api/webhooks.py's prometheus_webhook. Sentinel
// triage runs synchronously (it is pure in-memory scoring) so the response
// can report severity/actionable immediately; ticket creation, PR proposal,
// and merge-gate polling — the network-bound steps — run on the background
// orchestrator pool so the handler returns promptly under load.
func (s *Server) webhookHandler(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_payload", Message: "request body must be a JSON object"})
		return
	}
	if !validatePrometheusPayload(payload) {
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_payload", Message: "missing alerts/status in payload"})
		return
	}

	if notReady, details := s.notReadyAPIProvider(); notReady != "" {
		c.JSON(http.StatusServiceUnavailable, errorBody{
			Code:    "provider_not_ready",
			Message: fmt.Sprintf("%s provider is configured for api mode but not ready", notReady),
			Details: details,
		})
		return
	}

	incidentID := newIncidentID()
	now := time.Now().UTC()

	validated, _, err := sentinel.Evaluate(payload, incidentID, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_alert", Message: err.Error()})
		return
	}

	initial := &models.IncidentState{
		IncidentID:     incidentID,
		RawAlert:       payload,
		CreatedAt:      now,
		ValidatedAlert: &validated,
		Approval: models.Approval{
			Required: s.cfg.Policy.RequirePRApproval,
		},
		Policy: models.PolicySnapshot{
			RequireCIPass:          s.cfg.Policy.RequireCIPass,
			RequireCodeownerReview: s.cfg.Policy.RequireCodeownerReview,
			MergeMethod:            s.cfg.Policy.MergeMethod,
		},
		CIStatus:              models.CIPending,
		CodeownerReviewStatus: models.ReviewPending,
		IntegrationTrace: models.IntegrationTrace{
			TicketProvider:  s.ticketProviderName,
			CodeProvider:    s.codeProviderName,
			ExecutionPath:   "accepted",
			ExecutionReason: "accepted_for_processing",
		},
	}
	mapper.AppendTimelineEvent(initial, models.TimelineEvent{
		EventType: models.EventIncidentCreated, Timestamp: now, Agent: "System",
		Details: map[string]any{"source": "prometheus_webhook"},
	})

	if err := s.store.Save(c.Request.Context(), initial); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Code: "store_error", Message: err.Error()})
		return
	}

	if err := s.pool.Submit(incidentID, payload); err != nil {
		switch err {
		case orchestrator.ErrQueueFull:
			c.JSON(http.StatusServiceUnavailable, errorBody{Code: "queue_full", Message: "orchestrator queue is full, try again shortly"})
		case orchestrator.ErrIncidentActive:
			c.JSON(http.StatusConflict, errorBody{Code: "incident_active", Message: fmt.Sprintf("incident %s is already processing", incidentID)})
		default:
			c.JSON(http.StatusInternalServerError, errorBody{Code: "submit_error", Message: err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, webhookAcceptedResponse{
		Status:     "accepted",
		IncidentID: incidentID,
		Actionable: validated.IsActionable,
		Severity:   validated.Severity,
	})
}

// notReadyAPIProvider reports the first provider that is configured for api
// mode but not ready to serve, per spec §4.9's admission check ("reject when
// ... any api-mode provider is not ready"). Returns an empty provider name
// when both providers are admissible (mock mode is always admissible; api
// mode is admissible only once its required credentials resolve).
func (s *Server) notReadyAPIProvider() (provider string, details router.Readiness) {
	if s.cfg.Jira.Mode == "api" {
		if r := router.JiraReadiness(s.cfg.Jira); !r.Ready {
			return "jira", r
		}
	}
	if s.cfg.GitHub.Mode == "api" {
		if r := router.GitHubReadiness(s.cfg.GitHub); !r.Ready {
			return "github", r
		}
	}
	return "", router.Readiness{}
}
