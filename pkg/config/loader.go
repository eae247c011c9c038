package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlOverlay is the optional static YAML file (policy.yaml under configDir)
// that can override a subset of the environment-derived defaults. Env vars
// always take precedence for secrets; the YAML overlay exists for the
// merge-gate policy and Jira transition aliases, which are operational
// tuning knobs better tracked in version control than in the environment.
type yamlOverlay struct {
	Policy struct {
		RequirePRApproval      *bool   `yaml:"require_pr_approval,omitempty"`
		RequireCIPass          *bool   `yaml:"require_ci_pass,omitempty"`
		RequireCodeownerReview *bool   `yaml:"require_codeowner_review,omitempty"`
		MergeMethod            *string `yaml:"merge_method,omitempty"`
	} `yaml:"policy,omitempty"`
	Jira struct {
		TransitionAliases *string `yaml:"transition_aliases,omitempty"`
	} `yaml:"jira,omitempty"`
}

// Initialize loads configuration from the environment, overlays an optional
// policy.yaml found under configDir, validates the result, and returns it.
// Mirrors the teacher's config.Initialize entrypoint shape (env-first load,
// then a validation pass before the value is handed to the rest of the
// application).
func Initialize(configDir string) (*Config, error) {
	cfg, err := loadFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.configDir = configDir

	overlayPath := configDir + "/policy.yaml"
	if data, readErr := os.ReadFile(overlayPath); readErr == nil {
		if err := applyYAMLOverlay(cfg, data); err != nil {
			return nil, NewLoadError(overlayPath, err)
		}
	} else if !os.IsNotExist(readErr) {
		return nil, NewLoadError(overlayPath, readErr)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	return cfg, nil
}

func applyYAMLOverlay(cfg *Config, data []byte) error {
	data = ExpandEnv(data)

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	override := cfg.Policy
	hasOverride := false
	if overlay.Policy.RequirePRApproval != nil {
		override.RequirePRApproval = *overlay.Policy.RequirePRApproval
		hasOverride = true
	}
	if overlay.Policy.RequireCIPass != nil {
		override.RequireCIPass = *overlay.Policy.RequireCIPass
		hasOverride = true
	}
	if overlay.Policy.RequireCodeownerReview != nil {
		override.RequireCodeownerReview = *overlay.Policy.RequireCodeownerReview
		hasOverride = true
	}
	if overlay.Policy.MergeMethod != nil {
		override.MergeMethod = MergeMethod(*overlay.Policy.MergeMethod)
		hasOverride = true
	}
	if hasOverride {
		if err := mergo.Merge(&cfg.Policy, override, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return fmt.Errorf("merge policy overlay: %w", err)
		}
	}

	if overlay.Jira.TransitionAliases != nil && *overlay.Jira.TransitionAliases != "" {
		cfg.Jira.TransitionAliases = *overlay.Jira.TransitionAliases
	}

	return nil
}

func loadFromEnv() (*Config, error) {
	maxOpen, err := envInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := envInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	maxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	if err != nil {
		return nil, err
	}
	maxIdleTime, err := envDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	providerTimeout, err := envDuration("PROVIDER_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	maxReqBytes, err := envInt64("MAX_REQUEST_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}

	_, legacyMockSet := os.LookupEnv("USE_MOCK_PROVIDERS")

	databaseURL := os.Getenv("DATABASE_URL")
	defaultSessionBackend := SessionBackendInMemory
	if databaseURL != "" {
		defaultSessionBackend = SessionBackendDatabase
	}
	sessionBackend := SessionBackend(envOrDefault("ADK_SESSION_BACKEND", string(defaultSessionBackend)))

	cfg := &Config{
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		GinMode:          envOrDefault("GIN_MODE", "release"),
		CORSAllowOrigins: splitCSV(envOrDefault("CORS_ALLOWED_ORIGINS", "")),
		MaxRequestBytes:  maxReqBytes,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		AppVersion:       envOrDefault("APP_VERSION", "dev"),
		BuildSHA:         envOrDefault("BUILD_SHA", ""),

		DatabaseURL: databaseURL,
		DB: DBPoolConfig{
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: maxLifetime,
			ConnMaxIdleTime: maxIdleTime,
		},
		SessionBackend: sessionBackend,

		ProviderTimeout: providerTimeout,

		UseMockProviders:  envBool("USE_MOCK_PROVIDERS", false),
		legacyMockFlagSet: legacyMockSet,

		Policy: MergeGatePolicy{
			RequirePRApproval:      envBool("REQUIRE_PR_APPROVAL", true),
			RequireCIPass:          envBool("REQUIRE_CI_PASS", true),
			RequireCodeownerReview: envBool("REQUIRE_CODEOWNER_REVIEW", true),
			MergeMethod:            MergeMethod(envOrDefault("MERGE_METHOD", string(MergeMethodSquash))),
		},

		Jira: JiraConfig{
			Mode:              IntegrationMode(envOrDefault("JIRA_INTEGRATION_MODE", string(ModeMock))),
			URL:               os.Getenv("JIRA_URL"),
			Username:          os.Getenv("JIRA_USERNAME"),
			APIToken:          os.Getenv("JIRA_API_TOKEN"),
			ProjectKey:        os.Getenv("JIRA_PROJECT_KEY"),
			IssueType:         envOrDefault("JIRA_ISSUE_TYPE", "Task"),
			StatusTodo:        envOrDefault("JIRA_STATUS_TODO", "To Do"),
			StatusInProgress:  envOrDefault("JIRA_STATUS_IN_PROGRESS", "In Progress"),
			StatusInReview:    envOrDefault("JIRA_STATUS_IN_REVIEW", "In Review"),
			StatusDone:        envOrDefault("JIRA_STATUS_DONE", "Done"),
			TransitionStrict:  envBool("JIRA_TRANSITION_STRICT", false),
			TransitionAliases: os.Getenv("JIRA_TRANSITION_ALIASES"),
		},

		GitHub: GitHubConfig{
			Mode:              IntegrationMode(envOrDefault("GITHUB_INTEGRATION_MODE", string(ModeMock))),
			Token:             os.Getenv("GITHUB_TOKEN"),
			Owner:             os.Getenv("GITHUB_OWNER"),
			DefaultBaseBranch: envOrDefault("GITHUB_DEFAULT_BASE_BRANCH", "main"),
		},

		Slack: SlackConfig{
			Token:        os.Getenv("SLACK_TOKEN"),
			Channel:      os.Getenv("SLACK_CHANNEL"),
			DashboardURL: os.Getenv("SLACK_DASHBOARD_URL"),
		},
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	return d, nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
