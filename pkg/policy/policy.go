// Package policy implements the merge-gate policy engine: pure functions
// over incident state that decide whether a PR may be approved and merged.
// Grounded on original_source/src/resilix/services/pr_merge_policy.py,
// generalized to spec.md's richer require_ci_pass/require_codeowner_review
// predicate table.
package policy

import (
	"time"

	"github.com/resilix/orchestrator/pkg/models"
)

// Decision codes (spec §4.6, §6).
const (
	CodePRNotCreated           = "pr_not_created"
	CodeAlreadyMerged          = "already_merged"
	CodeCINotPassed            = "ci_not_passed"
	CodeCodeownerReviewRequired = "codeowner_review_required"
	CodeApprovalNotRequired    = "approval_not_required"
	CodeAlreadyApproved        = "already_approved"
)

// Decision is the typed decision record the policy engine returns.
type Decision struct {
	Eligible bool
	Code     string
	Message  string
}

func hasPR(state *models.IncidentState) bool {
	if state.RemediationResult == nil {
		return false
	}
	return state.RemediationResult.PRNumber != 0 || state.RemediationResult.PRURL != ""
}

func isMerged(state *models.IncidentState) bool {
	return state.RemediationResult != nil && state.RemediationResult.PRMerged
}

// EvaluateApprovalRequest checks whether a human-initiated approve-merge
// request may proceed (spec §4.6, the full predicate table including the
// approval-required/already-approved checks).
func EvaluateApprovalRequest(state *models.IncidentState) Decision {
	if !hasPR(state) {
		return Decision{Code: CodePRNotCreated, Message: "no pull request has been created for this incident"}
	}
	if isMerged(state) {
		return Decision{Code: CodeAlreadyMerged, Message: "the pull request is already merged"}
	}
	if state.Policy.RequireCIPass && state.CIStatus != models.CICIPassed {
		return Decision{Code: CodeCINotPassed, Message: "continuous integration has not passed"}
	}
	if state.Policy.RequireCodeownerReview && state.CodeownerReviewStatus != models.ReviewApproved {
		return Decision{Code: CodeCodeownerReviewRequired, Message: "code-owner review is required and not yet satisfied"}
	}
	if !state.Approval.Required {
		return Decision{Code: CodeApprovalNotRequired, Message: "this incident does not require explicit approval"}
	}
	if state.Approval.Approved {
		return Decision{Code: CodeAlreadyApproved, Message: "this incident has already been approved"}
	}
	return Decision{Eligible: true, Code: "eligible", Message: "ready to merge"}
}

// EvaluateMergeEligibility is the auto-merge path used when approval is not
// required: the same gate predicates, except that an existing approval does
// not block, and a required approval that has not been granted makes the
// incident ineligible (reported as CodeApprovalNotRequired).
func EvaluateMergeEligibility(state *models.IncidentState) Decision {
	if !hasPR(state) {
		return Decision{Code: CodePRNotCreated, Message: "no pull request has been created for this incident"}
	}
	if isMerged(state) {
		return Decision{Code: CodeAlreadyMerged, Message: "the pull request is already merged"}
	}
	if state.Policy.RequireCIPass && state.CIStatus != models.CICIPassed {
		return Decision{Code: CodeCINotPassed, Message: "continuous integration has not passed"}
	}
	if state.Policy.RequireCodeownerReview && state.CodeownerReviewStatus != models.ReviewApproved {
		return Decision{Code: CodeCodeownerReviewRequired, Message: "code-owner review is required and not yet satisfied"}
	}
	if state.Approval.Required && !state.Approval.Approved {
		return Decision{Code: CodeApprovalNotRequired, Message: "approval is required but has not been granted"}
	}
	return Decision{Eligible: true, Code: "eligible", Message: "ready to merge"}
}

// ApplyApprovalAndMerge stamps approval, marks the PR merged, and resolves
// the incident. Mutates state in place; callers must have already confirmed
// eligibility via EvaluateApprovalRequest/EvaluateMergeEligibility and
// called the code provider's merge_pr successfully.
func ApplyApprovalAndMerge(state *models.IncidentState, now time.Time) {
	state.Approval.Approved = true
	approvedAt := now
	state.Approval.ApprovedAt = &approvedAt

	if state.RemediationResult == nil {
		state.RemediationResult = &models.RemediationResult{}
	}
	state.RemediationResult.PRMerged = true
	state.ResolvedAt = &now
}
