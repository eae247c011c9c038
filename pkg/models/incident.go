package models

import (
	"time"

	"github.com/resilix/orchestrator/pkg/config"
)

// IncidentStatus is the externally visible status the Incident Mapper
// projects from raw state (spec §4.7).
type IncidentStatus string

const (
	StatusProcessing       IncidentStatus = "processing"
	StatusAwaitingApproval IncidentStatus = "awaiting_approval"
	StatusMerging          IncidentStatus = "merging"
	StatusResolved         IncidentStatus = "resolved"
	StatusFailed           IncidentStatus = "failed"
)

// ApprovalStatus is the derived approval sub-state.
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalNotRequired ApprovalStatus = "not_required"
)

// PRStatus is the derived pull-request sub-state.
type PRStatus string

const (
	PRNotCreated PRStatus = "not_created"
	PRPendingCI  PRStatus = "pending_ci"
	PRCIPassed   PRStatus = "ci_passed"
	PRMerged     PRStatus = "merged"
)

// CIState is the raw CI sub-state stored on the incident, as distinct from
// the derived PRStatus the mapper computes from it.
type CIState string

const (
	CIPending   CIState = "pending"
	CICIPassed  CIState = "ci_passed"
)

// CodeownerReviewState is the raw review sub-state stored on the incident.
type CodeownerReviewState string

const (
	ReviewPending  CodeownerReviewState = "pending"
	ReviewApproved CodeownerReviewState = "approved"
)

// Approval tracks whether human sign-off is required/obtained for a PR.
type Approval struct {
	Required   bool       `json:"required"`
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// PolicySnapshot is the gate policy in effect for an incident, snapshotted
// at creation and refreshed on every approve-merge request (spec §4.6).
type PolicySnapshot struct {
	RequireCIPass          bool               `json:"require_ci_pass"`
	RequireCodeownerReview bool               `json:"require_codeowner_review"`
	MergeMethod            config.MergeMethod `json:"merge_method"`
}

// JiraTicket is the stored ticket record (spec §3, §4.3).
type JiraTicket struct {
	TicketKey string    `json:"ticket_key"`
	TicketURL string    `json:"ticket_url"`
	Summary   string    `json:"summary"`
	Priority  string    `json:"priority,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// JiraTransitionTrace records one attempted ticket transition for the
// integration_trace.jira_transitions list.
type JiraTransitionTrace struct {
	ToStatus            string `json:"to_status"`
	OK                  bool   `json:"ok"`
	AppliedTransitionID string `json:"applied_transition_id,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

// IntegrationTrace is the structured diagnostic map written throughout the
// pipeline (spec §3, §4.8).
type IntegrationTrace struct {
	TicketProvider   string                `json:"ticket_provider,omitempty"`
	CodeProvider     string                `json:"code_provider,omitempty"`
	FallbackUsed     bool                  `json:"fallback_used"`
	ExecutionPath    string                `json:"execution_path,omitempty"`
	ExecutionReason  string                `json:"execution_reason,omitempty"`
	RunnerPolicy     string                `json:"runner_policy,omitempty"`
	ServiceRevision  string                `json:"service_revision,omitempty"`
	ServiceService   string                `json:"service_service,omitempty"`
	ADKError         string                `json:"adk_error,omitempty"`
	ProviderError    string                `json:"provider_error,omitempty"`
	JiraTransitions  []JiraTransitionTrace `json:"jira_transitions,omitempty"`
	GateDetails      map[string]any        `json:"gate_details,omitempty"`
}

// IncidentState is the full keyed record the Session Store persists
// (spec §3). It is the unit of save/get/list for the store.
type IncidentState struct {
	IncidentID string         `json:"incident_id"`
	RawAlert   map[string]any `json:"raw_alert"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`

	ValidatedAlert   *ValidatedAlert   `json:"validated_alert,omitempty"`
	ThoughtSignature *ThoughtSignature `json:"thought_signature,omitempty"`
	JiraTicket       *JiraTicket       `json:"jira_ticket,omitempty"`
	RemediationResult *RemediationResult `json:"remediation_result,omitempty"`

	Approval               Approval             `json:"approval"`
	Policy                 PolicySnapshot       `json:"policy"`
	CIStatus               CIState              `json:"ci_status"`
	CodeownerReviewStatus  CodeownerReviewState `json:"codeowner_review_status"`

	IntegrationTrace IntegrationTrace `json:"integration_trace"`
	Timeline         []TimelineEvent  `json:"timeline"`
}

// IncidentSummary is the list-view projection (spec §4.9 GET /incidents).
type IncidentSummary struct {
	IncidentID  string         `json:"incident_id"`
	Status      IncidentStatus `json:"status"`
	Severity    Severity       `json:"severity,omitempty"`
	ServiceName string         `json:"service_name,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// IncidentDetail is the full detail projection (spec §4.9 GET /incidents/{id},
// spec §6 "Incident detail output").
type IncidentDetail struct {
	IncidentID        string            `json:"incident_id"`
	Status            IncidentStatus    `json:"status"`
	Severity          Severity          `json:"severity,omitempty"`
	ServiceName       string            `json:"service_name,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	MTTRSeconds       *float64          `json:"mttr_seconds,omitempty"`
	ApprovalStatus    ApprovalStatus    `json:"approval_status"`
	PRStatus          PRStatus          `json:"pr_status"`
	ValidatedAlert    *ValidatedAlert   `json:"validated_alert,omitempty"`
	ThoughtSignature  *ThoughtSignature `json:"thought_signature,omitempty"`
	JiraTicket        *JiraTicket       `json:"jira_ticket,omitempty"`
	RemediationResult *RemediationResult `json:"remediation_result,omitempty"`
	Timeline          []TimelineEvent   `json:"timeline"`
	IntegrationTrace  IntegrationTrace  `json:"integration_trace"`
}
