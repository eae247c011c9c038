// Package config loads and validates the orchestrator's runtime configuration:
// environment-sourced settings plus an optional static YAML overlay for
// ticket-transition aliases and merge-gate policy overrides.
package config

import "time"

// IntegrationMode selects how a provider resolves: against the real API, or
// against the deterministic in-memory mock.
type IntegrationMode string

const (
	ModeAPI  IntegrationMode = "api"
	ModeMock IntegrationMode = "mock"
)

// MergeMethod is the GitHub merge strategy used when a PR clears the gate.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// SessionBackend selects where incident session state is persisted.
type SessionBackend string

const (
	SessionBackendInMemory SessionBackend = "in_memory"
	SessionBackendDatabase SessionBackend = "database"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	configDir string

	HTTPAddr         string
	GinMode          string
	CORSAllowOrigins []string
	MaxRequestBytes  int64
	LogLevel         string
	AppVersion       string
	BuildSHA         string

	DatabaseURL    string
	DB             DBPoolConfig
	SessionBackend SessionBackend

	ProviderTimeout time.Duration

	UseMockProviders  bool
	legacyMockFlagSet bool

	Policy MergeGatePolicy

	Jira   JiraConfig
	GitHub GitHubConfig
	Slack  SlackConfig
}

// DBPoolConfig tunes the relational session-store connection pool.
type DBPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// MergeGatePolicy controls the approve-and-merge eligibility gate (spec §4.6).
type MergeGatePolicy struct {
	RequirePRApproval      bool
	RequireCIPass          bool
	RequireCodeownerReview bool
	MergeMethod            MergeMethod
}

// JiraConfig configures the Jira ticket provider.
type JiraConfig struct {
	Mode              IntegrationMode
	URL               string
	Username          string
	APIToken          string
	ProjectKey        string
	IssueType         string
	StatusTodo        string
	StatusInProgress  string
	StatusInReview    string
	StatusDone        string
	TransitionStrict  bool
	TransitionAliases string // raw, parsed lazily by pkg/providers/ticket
}

// GitHubConfig configures the GitHub code provider.
type GitHubConfig struct {
	Mode              IntegrationMode
	Token             string
	Owner             string
	DefaultBaseBranch string
}

// SlackConfig configures optional incident-lifecycle notifications.
type SlackConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// ConfigDir returns the directory the config was loaded relative to.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// EffectiveUseMockProviders reports whether the legacy blanket mock flag
// should override the per-provider integration mode. Grounded on
// original_source's settings.effective_use_mock_providers: the legacy flag
// only takes effect if it was explicitly set in the environment.
func (c *Config) EffectiveUseMockProviders() bool {
	return c.legacyMockFlagSet && c.UseMockProviders
}

// IsLegacyMockFlagUsed reports whether USE_MOCK_PROVIDERS was set.
func (c *Config) IsLegacyMockFlagUsed() bool {
	return c.legacyMockFlagSet
}

// Stats summarizes the resolved configuration for the health endpoint.
type Stats struct {
	JiraMode   IntegrationMode
	GitHubMode IntegrationMode
	MockFlag   bool
}

func (c *Config) Stats() Stats {
	return Stats{
		JiraMode:   c.Jira.Mode,
		GitHubMode: c.GitHub.Mode,
		MockFlag:   c.EffectiveUseMockProviders(),
	}
}
