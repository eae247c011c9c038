package code

import (
	"context"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/resilix/orchestrator/pkg/models"
)

// MockProvider is a deterministic in-memory code provider used when the
// GitHub integration mode is mock. Grounded on mock_providers.py's
// MockCodeProvider: the PR number is derived from a CRC32 checksum of the
// incident ID, not random, so fixtures stay reproducible.
type MockProvider struct{}

// NewMockProvider constructs a MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) CreateRemediationPR(ctx context.Context, req RemediationRequest) (models.RemediationResult, error) {
	prNumber := int(crc32.ChecksumIEEE([]byte(req.IncidentID))%9000) + 1000
	branch := fmt.Sprintf("fix/resilix-%s", strings.ToLower(req.IncidentID))

	target := ClassifyTarget(req.TargetFile)
	_, preview, ok := PatchContent(req.TargetFile, "", target)
	if !ok {
		content := LegacyAuditComment(req.IncidentID, string(req.Action), req.Summary)
		preview = DiffPreview{OldLine: "", NewLine: content}
	}

	return models.RemediationResult{
		Success:           true,
		ActionTaken:       req.Action,
		BranchName:        branch,
		PRNumber:          prNumber,
		PRURL:             fmt.Sprintf("https://github.com/%s/pull/%d", req.Repository, prNumber),
		PRMerged:          false,
		TargetFile:        req.TargetFile,
		DiffOldLine:       preview.OldLine,
		DiffNewLine:       preview.NewLine,
		ExecutionTimeSecs: 1.0,
	}, nil
}

func (m *MockProvider) GetMergeGateStatus(ctx context.Context, repository string, prNumber int) (MergeGateStatus, error) {
	return MergeGateStatus{
		CIPassed:          true,
		CodeownerReviewed: true,
		Details: map[string]string{
			"provider":   "mock",
			"repository": repository,
			"pr_number":  fmt.Sprintf("%d", prNumber),
		},
	}, nil
}

func (m *MockProvider) MergePR(ctx context.Context, repository string, prNumber int, method string) (bool, error) {
	return true, nil
}
