// Package code implements the code-provider capability: propose a
// remediation PR, report its merge-gate status, and merge it once eligible.
// Grounded on
// original_source/src/resilix/services/integrations/{base,github_direct,mock_providers}.py.
package code

import (
	"context"

	"github.com/resilix/orchestrator/pkg/models"
)

// MergeGateStatus reports the CI and review state needed by pkg/policy to
// decide merge eligibility (spec §4.4/§4.6).
type MergeGateStatus struct {
	CIPassed         bool
	CodeownerReviewed bool
	Details          map[string]string
}

// Provider is the code-provider capability surface (spec §4.4).
type Provider interface {
	CreateRemediationPR(ctx context.Context, req RemediationRequest) (models.RemediationResult, error)
	GetMergeGateStatus(ctx context.Context, repository string, prNumber int) (MergeGateStatus, error)
	MergePR(ctx context.Context, repository string, prNumber int, method string) (bool, error)
}

// RemediationRequest carries everything a provider needs to produce a
// remediation PR for an incident's diagnosed root cause.
type RemediationRequest struct {
	IncidentID string
	Repository string
	TargetFile string
	Action     models.RecommendedAction
	Summary    string
}
