// Package orchestrator drives a single incident from raw webhook payload
// through triage, root-cause signature, ticket creation, ticket lifecycle
// transitions, and remediation PR proposal. Grounded on
// original_source/src/resilix/services/orchestrator.py's
// apply_direct_integrations / _transition_jira_ticket; the ADK/MockRunner
// reasoning-agent paths are out of scope (spec §1 Non-goals) so this module
// implements only the deterministic direct_integrations execution path.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/mapper"
	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/policy"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/resilix/orchestrator/pkg/providers/ticket"
	"github.com/resilix/orchestrator/pkg/sentinel"
	"github.com/resilix/orchestrator/pkg/version"
)

// RunnerPolicy is the fixed execution policy this core reports on
// integration_trace.runner_policy (spec §4.8): it never delegates triage or
// root-cause reasoning to an external runner, so every incident always runs
// the deterministic direct_integrations path (the ADK/MockRunner
// reasoning-agent variants are out of scope per spec §1 Non-goals).
const RunnerPolicy = "direct_integrations_only"

// Pipeline executes the full incident-intake-to-remediation flow for a
// single incident.
type Pipeline struct {
	TicketProvider     ticket.Provider
	CodeProvider       code.Provider
	TicketProviderName string // "jira_api" | "jira_mock", for integration_trace
	CodeProviderName   string // "github_api" | "github_mock"
	Jira               config.JiraConfig
	Policy             config.MergeGatePolicy
	DefaultOwner       string
	BuildSHA           string            // cfg.BuildSHA; falls back to version.GitCommit when empty
	Fallback           sentinel.Fallback // nil unless a future reasoning runner is wired in
}

// serviceRevision resolves the build identifier reported on
// integration_trace.service_revision, preferring an explicitly configured
// build SHA over the binary's embedded VCS revision.
func (p *Pipeline) serviceRevision() string {
	if p.BuildSHA != "" {
		return p.BuildSHA
	}
	return version.GitCommit
}

// Run executes the pipeline for one incident and returns its resulting
// state. A nil error means the pipeline ran to completion; provider
// failures are recorded on the returned state (remediation_result.error_message
// and integration_trace.provider_error) rather than surfaced as a Go error,
// matching apply_direct_integrations's per-incident recoverable-failure
// pattern — the caller still persists and serves the partial state.
func (p *Pipeline) Run(ctx context.Context, rawAlert map[string]any, incidentID string) (*models.IncidentState, error) {
	now := time.Now().UTC()

	validated, trace, err := sentinel.Evaluate(rawAlert, incidentID, p.Fallback)
	if err != nil {
		return nil, fmt.Errorf("sentinel evaluate: %w", err)
	}

	signature := BuildFallbackSignature(incidentID, rawAlert, validated, trace.SignalHits, trace.Score, p.DefaultOwner)

	state := &models.IncidentState{
		IncidentID:       incidentID,
		RawAlert:         rawAlert,
		CreatedAt:        now,
		ValidatedAlert:   &validated,
		ThoughtSignature: &signature,
		Approval: models.Approval{
			Required: p.Policy.RequirePRApproval,
		},
		Policy: models.PolicySnapshot{
			RequireCIPass:          p.Policy.RequireCIPass,
			RequireCodeownerReview: p.Policy.RequireCodeownerReview,
			MergeMethod:            p.Policy.MergeMethod,
		},
		CIStatus:              models.CIPending,
		CodeownerReviewStatus: models.ReviewPending,
		IntegrationTrace: models.IntegrationTrace{
			TicketProvider:  p.TicketProviderName,
			CodeProvider:    p.CodeProviderName,
			FallbackUsed:    strings.HasSuffix(p.TicketProviderName, "mock") || strings.HasSuffix(p.CodeProviderName, "mock"),
			ExecutionPath:   "direct_integrations",
			ExecutionReason: "direct_integrations_only",
			RunnerPolicy:    RunnerPolicy,
			ServiceRevision: p.serviceRevision(),
			ServiceService:  version.AppName,
		},
	}

	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventIncidentCreated, Timestamp: now, Agent: "Sentinel",
	})
	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventAlertValidated, Timestamp: time.Now().UTC(), Agent: "Sentinel",
		Details: map[string]any{"severity": string(validated.Severity), "triage_reason": validated.TriageReason},
	})
	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventRootCauseIdentified, Timestamp: time.Now().UTC(), Agent: "Investigator",
		Details: map[string]any{"root_cause_category": string(signature.RootCauseCategory)},
	})

	jiraTicket, err := p.TicketProvider.CreateIncidentTicket(ctx, incidentID,
		ticketFromSignature(signature, validated.Severity, validated.ServiceName).Summary,
		signature.InvestigationSummary,
		ticketFromSignature(signature, validated.Severity, validated.ServiceName).Priority,
	)
	if err != nil {
		state.RemediationResult = &models.RemediationResult{
			Success:      false,
			ActionTaken:  signature.RecommendedAction,
			ErrorMessage: fmt.Sprintf("jira provider failure: %v", err),
		}
		state.IntegrationTrace.ProviderError = fmt.Sprintf("jira_error: %v", err)
		return state, nil
	}

	state.JiraTicket = &models.JiraTicket{
		TicketKey: jiraTicket.TicketKey,
		TicketURL: jiraTicket.TicketURL,
		Summary:   jiraTicket.Summary,
		Priority:  jiraTicket.Priority,
		Status:    jiraTicket.Status,
		CreatedAt: jiraTicket.CreatedAt,
	}
	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventTicketCreated, Timestamp: time.Now().UTC(), Agent: "Administrator",
		Details: map[string]any{"ticket_key": jiraTicket.TicketKey},
	})

	p.transitionTicket(ctx, state, jiraTicket.TicketKey, p.Jira.StatusTodo, models.EventTicketMovedTodo)
	p.transitionTicket(ctx, state, jiraTicket.TicketKey, p.Jira.StatusInProgress, models.EventTicketMovedInProgress)

	remediation, err := p.CodeProvider.CreateRemediationPR(ctx, code.RemediationRequest{
		IncidentID: incidentID,
		Repository: signature.TargetRepository,
		TargetFile: signature.TargetFile,
		Action:     signature.RecommendedAction,
		Summary:    signature.RootCause,
	})
	if err != nil {
		state.RemediationResult = &models.RemediationResult{
			Success:      false,
			ActionTaken:  signature.RecommendedAction,
			ErrorMessage: fmt.Sprintf("github provider failure: %v", err),
		}
		state.IntegrationTrace.ProviderError = fmt.Sprintf("github_error: %v", err)
		return state, nil
	}

	state.RemediationResult = &remediation
	if remediation.PRNumber != 0 || remediation.PRURL != "" {
		mapper.AppendTimelineEvent(state, models.TimelineEvent{
			EventType: models.EventPRCreated, Timestamp: time.Now().UTC(), Agent: "Mechanic",
			Details: map[string]any{"pr_number": remediation.PRNumber, "pr_url": remediation.PRURL},
		})
	}

	if remediation.PRNumber != 0 && signature.TargetRepository != "" {
		gate, err := p.CodeProvider.GetMergeGateStatus(ctx, signature.TargetRepository, remediation.PRNumber)
		if err != nil {
			state.IntegrationTrace.ProviderError = fmt.Sprintf("gate_status_error: %v", err)
		} else {
			if gate.CIPassed {
				state.CIStatus = models.CICIPassed
			}
			if gate.CodeownerReviewed {
				state.CodeownerReviewStatus = models.ReviewApproved
			}
			state.IntegrationTrace.GateDetails = stringMapToAny(gate.Details)
		}
	} else {
		state.CIStatus = models.CICIPassed
	}

	p.transitionTicket(ctx, state, jiraTicket.TicketKey, p.Jira.StatusInReview, models.EventTicketMovedInReview)

	if !state.Approval.Required {
		p.tryAutoMerge(ctx, state, jiraTicket.TicketKey)
	}

	return state, nil
}

// tryAutoMerge drives spec §4.6's auto-merge path: when an incident does
// not require explicit human approval, the pipeline itself re-checks merge
// eligibility right after the gate status is known and applies the merge,
// rather than waiting on a human to call the approve-merge endpoint.
func (p *Pipeline) tryAutoMerge(ctx context.Context, state *models.IncidentState, ticketKey string) {
	decision := policy.EvaluateMergeEligibility(state)
	if !decision.Eligible {
		return
	}

	var repository string
	if state.ThoughtSignature != nil {
		repository = state.ThoughtSignature.TargetRepository
	}
	prNumber := state.RemediationResult.PRNumber

	merged, err := p.CodeProvider.MergePR(ctx, repository, prNumber, string(p.Policy.MergeMethod))
	if err != nil {
		state.IntegrationTrace.ProviderError = fmt.Sprintf("merge_error: %v", err)
		return
	}
	if !merged {
		return
	}

	now := time.Now().UTC()
	policy.ApplyApprovalAndMerge(state, now)
	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventPRMerged, Timestamp: now, Agent: "Mechanic",
	})

	p.transitionTicket(ctx, state, ticketKey, p.Jira.StatusDone, models.EventTicketMovedDone)

	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventIncidentResolved, Timestamp: time.Now().UTC(), Agent: "System",
	})
}

func (p *Pipeline) transitionTicket(ctx context.Context, state *models.IncidentState, ticketKey, targetStatus string, eventType models.TimelineEventType) {
	if ticketKey == "" || targetStatus == "" {
		return
	}

	result, err := p.TicketProvider.TransitionTicket(ctx, ticketKey, targetStatus)
	if err != nil {
		state.IntegrationTrace.JiraTransitions = append(state.IntegrationTrace.JiraTransitions, models.JiraTransitionTrace{
			ToStatus: targetStatus, OK: false, Reason: err.Error(),
		})
		mapper.AppendTimelineEvent(state, models.TimelineEvent{
			EventType: models.EventTicketTransitionFailed, Timestamp: time.Now().UTC(), Agent: "Administrator",
			Details: map[string]any{"to_status": targetStatus, "reason": err.Error(), "ticket_key": ticketKey},
		})
		return
	}

	state.IntegrationTrace.JiraTransitions = append(state.IntegrationTrace.JiraTransitions, models.JiraTransitionTrace{
		ToStatus: targetStatus, OK: result.OK, AppliedTransitionID: result.AppliedTransitionID, Reason: result.Reason,
	})

	if result.OK {
		mapper.AppendTimelineEvent(state, models.TimelineEvent{
			EventType: eventType, Timestamp: time.Now().UTC(), Agent: "Administrator",
			Details: map[string]any{"to_status": targetStatus, "ticket_key": ticketKey},
		})
		return
	}

	mapper.AppendTimelineEvent(state, models.TimelineEvent{
		EventType: models.EventTicketTransitionFailed, Timestamp: time.Now().UTC(), Agent: "Administrator",
		Details: map[string]any{"to_status": targetStatus, "reason": result.Reason, "ticket_key": ticketKey},
	})
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
