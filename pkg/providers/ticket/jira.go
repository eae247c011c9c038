package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resilix/orchestrator/pkg/config"
)

// JiraConfig configures JiraProvider.
type JiraConfig struct {
	BaseURL           string
	Username          string
	APIToken          string
	ProjectKey        string
	IssueType         string
	TransitionStrict  bool
	TransitionAliases string // see ParseTransitionAliases
	Timeout           time.Duration
}

// JiraProvider talks to the Jira REST API v3 directly (no SDK), matching
// the teacher's pkg/runbook.GitHubClient HTTP-client shape: bearer/basic
// auth header, io.ReadAll + status-code checks. The only retry is
// CreateIncidentTicket's single re-post without a priority. Grounded on
// original_source/services/integrations/jira_direct.py.
type JiraProvider struct {
	cfg        JiraConfig
	httpClient *http.Client
	aliases    map[string][]string
}

// NewJiraProviderFromConfig adapts the resolved Jira section of the
// application config into a JiraProvider.
func NewJiraProviderFromConfig(cfg config.JiraConfig) *JiraProvider {
	return NewJiraProvider(JiraConfig{
		BaseURL:           cfg.URL,
		Username:          cfg.Username,
		APIToken:          cfg.APIToken,
		ProjectKey:        cfg.ProjectKey,
		IssueType:         cfg.IssueType,
		TransitionStrict:  cfg.TransitionStrict,
		TransitionAliases: cfg.TransitionAliases,
	})
}

// NewJiraProvider constructs a JiraProvider.
func NewJiraProvider(cfg JiraConfig) *JiraProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &JiraProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		aliases:    ParseTransitionAliases(cfg.TransitionAliases),
	}
}

// ParseTransitionAliases accepts either a JSON object
// (`{"in review": ["ready for review"]}`) or a delimited string
// (`key:alias|alias,key2:alias`), matching jira_direct.py's _parse_aliases.
func ParseTransitionAliases(raw string) map[string][]string {
	raw = strings.TrimSpace(raw)
	out := map[string][]string{}
	if raw == "" {
		return out
	}

	if strings.HasPrefix(raw, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			for k, v := range obj {
				out[strings.ToLower(k)] = toStringSlice(v)
			}
			return out
		}
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kv := strings.SplitN(entry, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var values []string
		for _, v := range strings.Split(kv[1], "|") {
			v = strings.TrimSpace(v)
			if v != "" {
				values = append(values, strings.ToLower(v))
			}
		}
		out[key] = values
	}
	return out
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, strings.ToLower(s))
			}
		}
		return out
	case string:
		return []string{strings.ToLower(t)}
	default:
		return nil
	}
}

type adfDoc struct {
	Type    string   `json:"type"`
	Version int      `json:"version"`
	Content []adfPara `json:"content"`
}

type adfPara struct {
	Type    string       `json:"type"`
	Content []adfTextRun `json:"content"`
}

type adfTextRun struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func toADF(text string) adfDoc {
	return adfDoc{
		Type:    "doc",
		Version: 1,
		Content: []adfPara{{
			Type:    "paragraph",
			Content: []adfTextRun{{Type: "text", Text: text}},
		}},
	}
}

func (p *JiraProvider) CreateIncidentTicket(ctx context.Context, incidentID, summary, description, priority string) (Record, error) {
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]any{"key": p.cfg.ProjectKey},
			"summary":     summary,
			"description": toADF(description),
			"issuetype":   map[string]any{"name": p.cfg.IssueType},
			"priority":    map[string]any{"name": priority},
		},
	}

	key, err := p.postIssue(ctx, body)
	if err != nil {
		// Some Jira instances reject an unknown priority scheme; retry
		// once without it rather than failing the whole ticket creation.
		delete(body["fields"].(map[string]any), "priority")
		key, err = p.postIssue(ctx, body)
		if err != nil {
			return Record{}, err
		}
	}

	return Record{
		TicketKey: key,
		TicketURL: p.cfg.BaseURL + "/browse/" + key,
		Summary:   summary,
		Priority:  priority,
		Status:    "Open",
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (p *JiraProvider) postIssue(ctx context.Context, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal issue payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/rest/api/3/issue", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	p.setAuth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("jira create issue returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode create-issue response: %w", err)
	}
	return result.Key, nil
}

type jiraTransition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   struct {
		Name string `json:"name"`
	} `json:"to"`
}

func (p *JiraProvider) TransitionTicket(ctx context.Context, ticketKey, targetStatus string) (TransitionResult, error) {
	currentStatus, err := p.getIssueStatus(ctx, ticketKey)
	if err != nil {
		return p.fail(err)
	}

	transitions, err := p.getTransitions(ctx, ticketKey)
	if err != nil {
		return p.fail(err)
	}

	selected := p.selectTransition(transitions, targetStatus)
	if selected == nil {
		reason := fmt.Sprintf("no transition available from %q to %q", currentStatus, targetStatus)
		if p.cfg.TransitionStrict {
			return TransitionResult{}, fmt.Errorf("%s", reason)
		}
		return TransitionResult{OK: false, FromStatus: currentStatus, ToStatus: targetStatus, Reason: reason}, nil
	}

	if err := p.postTransition(ctx, ticketKey, selected.ID); err != nil {
		if p.cfg.TransitionStrict {
			return TransitionResult{}, err
		}
		return TransitionResult{OK: false, FromStatus: currentStatus, ToStatus: targetStatus, Reason: err.Error()}, nil
	}

	return TransitionResult{
		OK:                  true,
		FromStatus:          currentStatus,
		ToStatus:            targetStatus,
		AppliedTransitionID: selected.ID,
	}, nil
}

// selectTransition implements spec §4.3's selection rule: normalize the
// target status to a lowercase token augmented by user aliases, prefer a
// transition whose name matches an alias, falling back to one whose
// destination status name matches.
func (p *JiraProvider) selectTransition(transitions []jiraTransition, targetStatus string) *jiraTransition {
	target := strings.ToLower(strings.TrimSpace(targetStatus))
	aliasSet := map[string]struct{}{target: {}}
	for _, a := range p.aliases[target] {
		aliasSet[a] = struct{}{}
	}

	for i := range transitions {
		if _, ok := aliasSet[strings.ToLower(transitions[i].Name)]; ok {
			return &transitions[i]
		}
	}
	for i := range transitions {
		if _, ok := aliasSet[strings.ToLower(transitions[i].To.Name)]; ok {
			return &transitions[i]
		}
	}
	return nil
}

func (p *JiraProvider) getIssueStatus(ctx context.Context, ticketKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/rest/api/3/issue/"+ticketKey+"?fields=status", nil)
	if err != nil {
		return "", err
	}
	p.setAuth(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get issue status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("jira get issue returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Fields struct {
			Status struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode issue status: %w", err)
	}
	return result.Fields.Status.Name, nil
}

func (p *JiraProvider) getTransitions(ctx context.Context, ticketKey string) ([]jiraTransition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/rest/api/3/issue/"+ticketKey+"/transitions", nil)
	if err != nil {
		return nil, err
	}
	p.setAuth(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jira list transitions returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Transitions []jiraTransition `json:"transitions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transitions: %w", err)
	}
	return result.Transitions, nil
}

func (p *JiraProvider) postTransition(ctx context.Context, ticketKey, transitionID string) error {
	payload, _ := json.Marshal(map[string]any{
		"transition": map[string]string{"id": transitionID},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/rest/api/3/issue/"+ticketKey+"/transitions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.setAuth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("jira transition returned HTTP %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

func (p *JiraProvider) setAuth(req *http.Request) {
	req.SetBasicAuth(p.cfg.Username, p.cfg.APIToken)
}

func (p *JiraProvider) fail(err error) (TransitionResult, error) {
	if p.cfg.TransitionStrict {
		return TransitionResult{}, err
	}
	return TransitionResult{OK: false, Reason: err.Error()}, nil
}
