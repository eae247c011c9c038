// Package router resolves the ticket/code provider capability interfaces
// against configuration (api vs mock) and reports structured readiness.
// Grounded on
// original_source/src/resilix/services/integrations/router.py, with
// get_provider_readiness/ProviderConfigError implemented fresh from
// spec §4.2 (not present in the retained router.py snapshot).
package router

import (
	"fmt"
	"strings"

	"github.com/resilix/orchestrator/pkg/config"
)

// placeholders mirrors router.py's _PLACEHOLDERS set: sentinel values that
// mean "not actually configured" even though the field is non-empty.
var placeholders = map[string]struct{}{
	"":                        {},
	"placeholder":             {},
	"placeholder_github_token": {},
	"placeholder_jira_api_token": {},
	"placeholder_jira_url":     {},
	"placeholder_jira_username": {},
	"placeholder_jira_project_key": {},
	"placeholder_owner":        {},
}

func usable(value string) bool {
	_, placeholder := placeholders[strings.ToLower(strings.TrimSpace(value))]
	return !placeholder
}

// Reason is the readiness reason taxonomy (spec §4.2).
type Reason string

const (
	ReasonOK                    Reason = "ok"
	ReasonMockMode              Reason = "mock_mode"
	ReasonMissingOrInvalidConfig Reason = "missing_or_invalid_config"
	ReasonInvalidMode           Reason = "invalid_mode"
)

// Readiness is the structured report returned by GetProviderReadiness.
type Readiness struct {
	Ready           bool     `json:"ready"`
	ResolvedBackend string   `json:"resolved_backend"`
	Reason          Reason   `json:"reason"`
	MissingFields   []string `json:"missing_fields,omitempty"`
}

// ProviderConfigError is raised (never silently downgraded) when a provider
// is requested in api mode but required credentials are missing.
type ProviderConfigError struct {
	Provider      string
	Mode          config.IntegrationMode
	ReasonCode    Reason
	MissingFields []string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("%s provider not ready in %s mode: %s (missing: %v)",
		e.Provider, e.Mode, e.ReasonCode, e.MissingFields)
}

// JiraReadiness reports readiness for the Jira ticket provider.
func JiraReadiness(cfg config.JiraConfig) Readiness {
	switch cfg.Mode {
	case config.ModeMock:
		return Readiness{Ready: true, ResolvedBackend: "jira_mock", Reason: ReasonMockMode}
	case config.ModeAPI:
		missing := jiraMissingFields(cfg)
		if len(missing) > 0 {
			return Readiness{Ready: false, ResolvedBackend: "jira_api", Reason: ReasonMissingOrInvalidConfig, MissingFields: missing}
		}
		return Readiness{Ready: true, ResolvedBackend: "jira_api", Reason: ReasonOK}
	default:
		return Readiness{Ready: false, ResolvedBackend: "", Reason: ReasonInvalidMode}
	}
}

// GitHubReadiness reports readiness for the GitHub code provider.
func GitHubReadiness(cfg config.GitHubConfig) Readiness {
	switch cfg.Mode {
	case config.ModeMock:
		return Readiness{Ready: true, ResolvedBackend: "github_mock", Reason: ReasonMockMode}
	case config.ModeAPI:
		missing := githubMissingFields(cfg)
		if len(missing) > 0 {
			return Readiness{Ready: false, ResolvedBackend: "github_api", Reason: ReasonMissingOrInvalidConfig, MissingFields: missing}
		}
		return Readiness{Ready: true, ResolvedBackend: "github_api", Reason: ReasonOK}
	default:
		return Readiness{Ready: false, ResolvedBackend: "", Reason: ReasonInvalidMode}
	}
}

func jiraMissingFields(cfg config.JiraConfig) []string {
	var missing []string
	if !usable(cfg.URL) {
		missing = append(missing, "jira_url")
	}
	if !usable(cfg.Username) {
		missing = append(missing, "jira_username")
	}
	if !usable(cfg.APIToken) {
		missing = append(missing, "jira_api_token")
	}
	if !usable(cfg.ProjectKey) {
		missing = append(missing, "jira_project_key")
	}
	return missing
}

func githubMissingFields(cfg config.GitHubConfig) []string {
	var missing []string
	if !usable(cfg.Token) {
		missing = append(missing, "github_token")
	}
	if !usable(cfg.Owner) {
		missing = append(missing, "github_owner")
	}
	return missing
}

// RequireJiraAPI returns a ProviderConfigError if the Jira provider was
// requested in api mode and is not ready — never falls back to mock
// silently (spec §4.2).
func RequireJiraAPI(cfg config.JiraConfig) error {
	if cfg.Mode != config.ModeAPI {
		return nil
	}
	r := JiraReadiness(cfg)
	if r.Ready {
		return nil
	}
	return &ProviderConfigError{Provider: "jira", Mode: cfg.Mode, ReasonCode: r.Reason, MissingFields: r.MissingFields}
}

// RequireGitHubAPI returns a ProviderConfigError if the GitHub provider was
// requested in api mode and is not ready.
func RequireGitHubAPI(cfg config.GitHubConfig) error {
	if cfg.Mode != config.ModeAPI {
		return nil
	}
	r := GitHubReadiness(cfg)
	if r.Ready {
		return nil
	}
	return &ProviderConfigError{Provider: "github", Mode: cfg.Mode, ReasonCode: r.Reason, MissingFields: r.MissingFields}
}
