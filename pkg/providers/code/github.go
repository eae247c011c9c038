package code

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/models"
)

// GitHubConfig configures GitHubProvider.
type GitHubConfig struct {
	Token             string
	Owner             string
	DefaultBaseBranch string
	Timeout           time.Duration
}

// GitHubProvider talks to the GitHub REST API v3 directly, matching the
// teacher's pkg/runbook.GitHubClient shape (bearer auth header, plain
// net/http, explicit status-code handling). Grounded on
// original_source/services/integrations/github_direct.go.
type GitHubProvider struct {
	cfg        GitHubConfig
	httpClient *http.Client
}

// NewGitHubProviderFromConfig adapts the resolved GitHub section of the
// application config into a GitHubProvider.
func NewGitHubProviderFromConfig(cfg config.GitHubConfig) *GitHubProvider {
	baseBranch := cfg.DefaultBaseBranch
	if baseBranch == "" {
		baseBranch = "main"
	}
	return NewGitHubProvider(GitHubConfig{
		Token:             cfg.Token,
		Owner:             cfg.Owner,
		DefaultBaseBranch: baseBranch,
	})
}

// NewGitHubProvider constructs a GitHubProvider.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.DefaultBaseBranch == "" {
		cfg.DefaultBaseBranch = "main"
	}
	return &GitHubProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *GitHubProvider) headers(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

func repoName(repository string) string {
	if idx := strings.Index(repository, "/"); idx >= 0 {
		return repository[idx+1:]
	}
	return repository
}

func (p *GitHubProvider) apiURL(repoName, format string, args ...any) string {
	base := fmt.Sprintf("https://api.github.com/repos/%s/%s", p.cfg.Owner, repoName)
	if format == "" {
		return base
	}
	return base + fmt.Sprintf(format, args...)
}

func (p *GitHubProvider) getDefaultBranch(ctx context.Context, repo string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL(repo, ""), nil)
	if err != nil {
		return "", err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get repo %s: %w", repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github get repo returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode repo response: %w", err)
	}
	if data.DefaultBranch == "" {
		return p.cfg.DefaultBaseBranch, nil
	}
	return data.DefaultBranch, nil
}

func (p *GitHubProvider) CreateRemediationPR(ctx context.Context, req RemediationRequest) (models.RemediationResult, error) {
	repo := repoName(req.Repository)
	branch := fmt.Sprintf("fix/resilix-%s", strings.ToLower(req.IncidentID))

	baseBranch, err := p.getDefaultBranch(ctx, repo)
	if err != nil {
		return models.RemediationResult{}, err
	}

	baseSHA, err := p.getRefSHA(ctx, repo, baseBranch)
	if err != nil {
		return models.RemediationResult{}, err
	}

	if err := p.createBranch(ctx, repo, branch, baseSHA); err != nil {
		return models.RemediationResult{}, err
	}

	existingSHA, existingContent, err := p.getFile(ctx, repo, req.TargetFile, branch)
	if err != nil {
		return models.RemediationResult{}, err
	}

	target := ClassifyTarget(req.TargetFile)
	content, preview, ok := PatchContent(req.TargetFile, existingContent, target)
	if !ok {
		content = LegacyAuditComment(req.IncidentID, string(req.Action), req.Summary)
		preview = DiffPreview{OldLine: existingContent, NewLine: content}
	}

	if err := p.putFile(ctx, repo, req.TargetFile, branch, content, existingSHA, req.Summary); err != nil {
		return models.RemediationResult{}, err
	}

	prNumber, prURL, err := p.createOrFindPR(ctx, repo, branch, baseBranch, req.IncidentID, req.Summary)
	if err != nil {
		return models.RemediationResult{}, err
	}

	return models.RemediationResult{
		Success:           true,
		ActionTaken:       req.Action,
		BranchName:        branch,
		PRNumber:          prNumber,
		PRURL:             prURL,
		PRMerged:          false,
		TargetFile:        req.TargetFile,
		DiffOldLine:       preview.OldLine,
		DiffNewLine:       preview.NewLine,
		ExecutionTimeSecs: 1.0,
	}, nil
}

func (p *GitHubProvider) getRefSHA(ctx context.Context, repo, branch string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL(repo, "/git/ref/heads/%s", branch), nil)
	if err != nil {
		return "", err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get base ref: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github get ref returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode ref response: %w", err)
	}
	return data.Object.SHA, nil
}

func (p *GitHubProvider) createBranch(ctx context.Context, repo, branch, baseSHA string) error {
	payload, _ := json.Marshal(map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": baseSHA,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL(repo, "/git/refs"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.headers(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	defer resp.Body.Close()

	// 422 means the branch already exists, which is fine for a retry.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusUnprocessableEntity {
		return fmt.Errorf("github create branch returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// getFile returns the existing file's blob SHA and decoded content on the
// given branch. Both are empty if the file does not yet exist (404).
func (p *GitHubProvider) getFile(ctx context.Context, repo, path, branch string) (sha, content string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.apiURL(repo, "/contents/%s?ref=%s", path, branch), nil)
	if err != nil {
		return "", "", err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("get file: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var data struct {
			SHA      string `json:"sha"`
			Content  string `json:"content"`
			Encoding string `json:"encoding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return "", "", fmt.Errorf("decode file response: %w", err)
		}
		if data.Encoding == "base64" {
			decoded, decErr := base64.StdEncoding.DecodeString(strings.ReplaceAll(data.Content, "\n", ""))
			if decErr == nil {
				return data.SHA, string(decoded), nil
			}
		}
		return data.SHA, data.Content, nil
	case http.StatusNotFound:
		return "", "", nil
	default:
		return "", "", fmt.Errorf("github get file returned HTTP %d", resp.StatusCode)
	}
}

func (p *GitHubProvider) putFile(ctx context.Context, repo, path, branch, content, existingSHA, summary string) error {
	payload := map[string]any{
		"message": "fix: " + truncate(summary, 72),
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}
	if existingSHA != "" {
		payload["sha"] = existingSHA
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.apiURL(repo, "/contents/%s", path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.headers(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("github put file returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (p *GitHubProvider) createOrFindPR(ctx context.Context, repo, branch, baseBranch, incidentID, summary string) (int, string, error) {
	payload, _ := json.Marshal(map[string]string{
		"title": "[Resilix] " + truncate(summary, 120),
		"head":  branch,
		"base":  baseBranch,
		"body":  fmt.Sprintf("Automated remediation for incident `%s`.", incidentID),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL(repo, "/pulls"), bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	p.headers(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("create pr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return p.findExistingPR(ctx, repo, branch)
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, "", fmt.Errorf("github create pr returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, "", fmt.Errorf("decode pr response: %w", err)
	}
	return data.Number, data.HTMLURL, nil
}

func (p *GitHubProvider) findExistingPR(ctx context.Context, repo, branch string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.apiURL(repo, "/pulls?head=%s:%s&state=open", p.cfg.Owner, branch), nil)
	if err != nil {
		return 0, "", err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("list prs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("github list prs returned HTTP %d", resp.StatusCode)
	}

	var prs []struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prs); err != nil {
		return 0, "", fmt.Errorf("decode pr list: %w", err)
	}
	if len(prs) == 0 {
		return 0, "", fmt.Errorf("pr create returned 422 and no existing open pr found for branch %s", branch)
	}
	return prs[0].Number, prs[0].HTMLURL, nil
}

func (p *GitHubProvider) GetMergeGateStatus(ctx context.Context, repository string, prNumber int) (MergeGateStatus, error) {
	repo := repoName(repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL(repo, "/pulls/%d", prNumber), nil)
	if err != nil {
		return MergeGateStatus{}, err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return MergeGateStatus{}, fmt.Errorf("get pr: %w", err)
	}
	var prData struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
		MergeableState string `json:"mergeable_state"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&prData)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return MergeGateStatus{}, fmt.Errorf("github get pr returned HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return MergeGateStatus{}, fmt.Errorf("decode pr response: %w", decodeErr)
	}

	ciState, err := p.getCombinedStatus(ctx, repo, prData.Head.SHA)
	if err != nil {
		return MergeGateStatus{}, err
	}

	hasApprovedReview, err := p.hasApprovedReview(ctx, repo, prNumber)
	if err != nil {
		return MergeGateStatus{}, err
	}

	ciPassed := ciState == "success"
	codeownerReviewed := hasApprovedReview || prData.MergeableState == "clean" || prData.MergeableState == "has_hooks"

	return MergeGateStatus{
		CIPassed:          ciPassed,
		CodeownerReviewed: codeownerReviewed,
		Details: map[string]string{
			"ci_state":        ciState,
			"mergeable_state": prData.MergeableState,
		},
	}, nil
}

func (p *GitHubProvider) getCombinedStatus(ctx context.Context, repo, sha string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL(repo, "/commits/%s/status", sha), nil)
	if err != nil {
		return "", err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get commit status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github get commit status returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	if data.State == "" {
		return "pending", nil
	}
	return data.State, nil
}

func (p *GitHubProvider) hasApprovedReview(ctx context.Context, repo string, prNumber int) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL(repo, "/pulls/%d/reviews", prNumber), nil)
	if err != nil {
		return false, err
	}
	p.headers(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("get reviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("github get reviews returned HTTP %d", resp.StatusCode)
	}

	var reviews []struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reviews); err != nil {
		return false, fmt.Errorf("decode reviews: %w", err)
	}
	for _, r := range reviews {
		if r.State == "APPROVED" {
			return true, nil
		}
	}
	return false, nil
}

func (p *GitHubProvider) MergePR(ctx context.Context, repository string, prNumber int, method string) (bool, error) {
	repo := repoName(repository)
	payload, _ := json.Marshal(map[string]string{"merge_method": method})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.apiURL(repo, "/pulls/%d/merge", prNumber), bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	p.headers(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("merge pr: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return true, nil
	case http.StatusMethodNotAllowed, http.StatusConflict, http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("github merge pr returned HTTP %d", resp.StatusCode)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
