package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resilix/orchestrator/pkg/mapper"
	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/notify"
	"github.com/resilix/orchestrator/pkg/policy"
)

const maxIncidentListItems = 100

// listIncidentsHandler handles GET /api/v1/incidents (spec §4.9), grounded
// on original_source/src/resilix/api/incidents.py's list_incidents.
func (s *Server) listIncidentsHandler(c *gin.Context) {
	items, err := s.store.ListItems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Code: "store_error", Message: err.Error()})
		return
	}

	summaries := make([]models.IncidentSummary, 0, len(items))
	for _, state := range items {
		summaries = append(summaries, mapper.ToSummary(state))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if len(summaries) > maxIncidentListItems {
		summaries = summaries[:maxIncidentListItems]
	}

	c.JSON(http.StatusOK, incidentListResponse{Items: summaries})
}

// getIncidentHandler handles GET /api/v1/incidents/:id (spec §4.9), grounded
// on original_source/src/resilix/api/incidents.py's get_incident.
func (s *Server) getIncidentHandler(c *gin.Context) {
	incidentID := c.Param("id")
	state, err := s.store.Get(c.Request.Context(), incidentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Code: "store_error", Message: err.Error()})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, errorBody{Code: "not_found", Message: "incident not found"})
		return
	}
	c.JSON(http.StatusOK, mapper.ToDetail(state))
}

// approveMergeHandler handles POST /api/v1/incidents/:id/approve-merge
// (spec §4.6, §4.9), grounded on
// original_source/src/resilix/api/incidents.py's approve_merge. The gate
// policy is refreshed from the live runtime configuration at approval time
// (not the snapshot taken when the incident was created), so an operator
// who relaxes or tightens a gate requirement via config sees it take effect
// on the next approval rather than only for incidents created afterward.
func (s *Server) approveMergeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	incidentID := c.Param("id")

	state, err := s.store.Get(ctx, incidentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Code: "store_error", Message: err.Error()})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, errorBody{Code: "not_found", Message: "incident not found"})
		return
	}

	state.Policy = models.PolicySnapshot{
		RequireCIPass:          s.cfg.Policy.RequireCIPass,
		RequireCodeownerReview: s.cfg.Policy.RequireCodeownerReview,
		MergeMethod:            s.cfg.Policy.MergeMethod,
	}

	var repository string
	var prNumber int
	if state.ThoughtSignature != nil {
		repository = state.ThoughtSignature.TargetRepository
	}
	if state.RemediationResult != nil {
		prNumber = state.RemediationResult.PRNumber
	}

	if s.codeProviderName == "github_api" && prNumber != 0 && repository != "" {
		gate, err := s.codeProvider.GetMergeGateStatus(ctx, repository, prNumber)
		if err != nil {
			c.JSON(http.StatusBadGateway, errorBody{Code: "gate_status_error", Message: err.Error()})
			return
		}
		if gate.CIPassed {
			state.CIStatus = models.CICIPassed
		} else {
			state.CIStatus = models.CIPending
		}
		if gate.CodeownerReviewed {
			state.CodeownerReviewStatus = models.ReviewApproved
		} else {
			state.CodeownerReviewStatus = models.ReviewPending
		}
		state.IntegrationTrace.CodeProvider = s.codeProviderName
		state.IntegrationTrace.GateDetails = stringMapToAny(gate.Details)
	}

	decision := policy.EvaluateApprovalRequest(state)
	if !decision.Eligible {
		c.JSON(http.StatusConflict, errorBody{Code: decision.Code, Message: decision.Message})
		return
	}

	if prNumber != 0 && repository != "" {
		merged, err := s.codeProvider.MergePR(ctx, repository, prNumber, string(s.cfg.Policy.MergeMethod))
		if err != nil {
			c.JSON(http.StatusBadGateway, errorBody{Code: "merge_failed", Message: err.Error()})
			return
		}
		if !merged {
			c.JSON(http.StatusConflict, errorBody{Code: "merge_failed", Message: "merge attempt failed"})
			return
		}
	}

	now := time.Now().UTC()
	policy.ApplyApprovalAndMerge(state, now)
	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventPRMerged, Timestamp: now, Agent: "Mechanic",
	})

	if state.JiraTicket != nil && state.JiraTicket.TicketKey != "" {
		result, err := s.ticketProvider.TransitionTicket(ctx, state.JiraTicket.TicketKey, s.cfg.Jira.StatusDone)
		if err != nil {
			mapper.AppendTimelineEvent(state, models.TimelineEvent{
				EventType: models.EventTicketTransitionFailed, Timestamp: time.Now().UTC(), Agent: "Administrator",
				Details: map[string]any{"to_status": s.cfg.Jira.StatusDone, "ticket_key": state.JiraTicket.TicketKey, "reason": err.Error()},
			})
		} else {
			state.IntegrationTrace.JiraTransitions = append(state.IntegrationTrace.JiraTransitions, models.JiraTransitionTrace{
				ToStatus: s.cfg.Jira.StatusDone, OK: result.OK, AppliedTransitionID: result.AppliedTransitionID, Reason: result.Reason,
			})
			if result.OK {
				mapper.AppendTimelineEvent(state, models.TimelineEvent{
					EventType: models.EventTicketMovedDone, Timestamp: time.Now().UTC(), Agent: "Administrator",
					Details: map[string]any{"to_status": s.cfg.Jira.StatusDone, "ticket_key": state.JiraTicket.TicketKey},
				})
			} else {
				mapper.AppendTimelineEvent(state, models.TimelineEvent{
					EventType: models.EventTicketTransitionFailed, Timestamp: time.Now().UTC(), Agent: "Administrator",
					Details: map[string]any{"to_status": s.cfg.Jira.StatusDone, "ticket_key": state.JiraTicket.TicketKey, "reason": result.Reason},
				})
			}
		}
	}

	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventIncidentResolved, Timestamp: time.Now().UTC(), Agent: "System",
	})

	if err := s.store.Save(ctx, state); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Code: "store_error", Message: err.Error()})
		return
	}

	var serviceName string
	if state.ValidatedAlert != nil {
		serviceName = state.ValidatedAlert.ServiceName
	}
	var prURL string
	if state.RemediationResult != nil {
		prURL = state.RemediationResult.PRURL
	}
	s.notifier.NotifyIncidentResolved(ctx, notify.IncidentResolvedInput{
		IncidentID:  incidentID,
		ServiceName: serviceName,
		PRURL:       prURL,
	})

	c.JSON(http.StatusOK, mapper.ToDetail(state))
}

func stringMapToAny(m map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
