// Package mapper projects raw incident state into the externally visible
// summary/detail views: status, approval_status, pr_status, and MTTR.
// Grounded on
// original_source/src/resilix/services/incident_mapper.py's
// derive_status_fields / compute_mttr / state_to_incident_detail.
package mapper

import (
	"github.com/resilix/orchestrator/pkg/models"
)

// statusFields bundles the three values the decision table in spec §4.7
// derives together, since they are computed from the same predicates.
type statusFields struct {
	Status         models.IncidentStatus
	ApprovalStatus models.ApprovalStatus
	PRStatus       models.PRStatus
}

// DeriveStatusFields implements the exact decision table from spec §4.7:
// highest match wins, in row order.
func DeriveStatusFields(state *models.IncidentState) (models.IncidentStatus, models.ApprovalStatus, models.PRStatus) {
	f := deriveStatusFields(state)
	return f.Status, f.ApprovalStatus, f.PRStatus
}

func deriveStatusFields(state *models.IncidentState) statusFields {
	rr := state.RemediationResult

	approvalStatus := approvalStatusOf(state)

	if rr == nil {
		return statusFields{models.StatusProcessing, approvalStatus, models.PRNotCreated}
	}

	if rr.PRMerged {
		return statusFields{models.StatusResolved, approvalOrApproved(approvalStatus), models.PRMerged}
	}

	ciPassed := state.CIStatus == models.CICIPassed
	approvalRequired := state.Approval.Required
	approved := state.Approval.Approved

	switch {
	case ciPassed && approvalRequired && !approved:
		return statusFields{models.StatusAwaitingApproval, approvalStatus, models.PRCIPassed}
	case ciPassed && approvalRequired && approved:
		return statusFields{models.StatusMerging, approvalStatus, models.PRCIPassed}
	case ciPassed && !approvalRequired:
		return statusFields{models.StatusMerging, approvalStatus, models.PRCIPassed}
	case !ciPassed:
		return statusFields{models.StatusProcessing, approvalStatus, models.PRPendingCI}
	default:
		return statusFields{models.StatusProcessing, approvalStatus, models.PRPendingCI}
	}
}

func approvalStatusOf(state *models.IncidentState) models.ApprovalStatus {
	if !state.Approval.Required {
		return models.ApprovalNotRequired
	}
	if state.Approval.Approved {
		return models.ApprovalApproved
	}
	return models.ApprovalPending
}

// approvalOrApproved is used on the resolved row: a merged PR implies
// approval was either granted or never required (spec testable property 3).
func approvalOrApproved(current models.ApprovalStatus) models.ApprovalStatus {
	if current == models.ApprovalNotRequired {
		return models.ApprovalNotRequired
	}
	return models.ApprovalApproved
}

// ComputeMTTR returns mean-time-to-resolution in seconds, or nil if
// resolved_at is unset or precedes created_at (spec invariant: never
// report a negative MTTR).
func ComputeMTTR(state *models.IncidentState) *float64 {
	if state.ResolvedAt == nil {
		return nil
	}
	if state.ResolvedAt.Before(state.CreatedAt) {
		return nil
	}
	seconds := state.ResolvedAt.Sub(state.CreatedAt).Seconds()
	return &seconds
}

// ToSummary projects state into the list-view IncidentSummary.
func ToSummary(state *models.IncidentState) models.IncidentSummary {
	status, _, _ := DeriveStatusFields(state)
	var severity models.Severity
	var serviceName string
	if state.ValidatedAlert != nil {
		severity = state.ValidatedAlert.Severity
		serviceName = state.ValidatedAlert.ServiceName
	}
	return models.IncidentSummary{
		IncidentID:  state.IncidentID,
		Status:      status,
		Severity:    severity,
		ServiceName: serviceName,
		CreatedAt:   state.CreatedAt,
		ResolvedAt:  state.ResolvedAt,
	}
}

// ToDetail projects state into the full IncidentDetail view.
func ToDetail(state *models.IncidentState) models.IncidentDetail {
	status, approvalStatus, prStatus := DeriveStatusFields(state)
	var severity models.Severity
	var serviceName string
	if state.ValidatedAlert != nil {
		severity = state.ValidatedAlert.Severity
		serviceName = state.ValidatedAlert.ServiceName
	}
	return models.IncidentDetail{
		IncidentID:        state.IncidentID,
		Status:            status,
		Severity:          severity,
		ServiceName:       serviceName,
		CreatedAt:         state.CreatedAt,
		ResolvedAt:        state.ResolvedAt,
		MTTRSeconds:       ComputeMTTR(state),
		ApprovalStatus:    approvalStatus,
		PRStatus:          prStatus,
		ValidatedAlert:    state.ValidatedAlert,
		ThoughtSignature:  state.ThoughtSignature,
		JiraTicket:        state.JiraTicket,
		RemediationResult: state.RemediationResult,
		Timeline:          append([]models.TimelineEvent(nil), state.Timeline...),
		IntegrationTrace:  state.IntegrationTrace,
	}
}

// AppendTimelineEvent appends an event to state's timeline in place,
// preserving append-only ordering (spec §3 invariant).
func AppendTimelineEvent(state *models.IncidentState, event models.TimelineEvent) {
	state.Timeline = append(state.Timeline, event)
}
