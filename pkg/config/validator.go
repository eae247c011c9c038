package config

import (
	"fmt"
)

// Validator runs the ordered set of validation passes over a loaded Config.
// Mirrors the teacher's Validator{cfg}.ValidateAll() shape: each concern
// gets its own validate* method, wrapped with a concern-scoped error.
type Validator struct {
	cfg *Config
}

// NewValidator constructs a Validator for cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation pass in order, stopping at the first
// failure.
func (v *Validator) ValidateAll() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", v.validateDatabase},
		{"session_backend", v.validateSessionBackend},
		{"policy", v.validatePolicy},
		{"jira", v.validateJira},
		{"github", v.validateGitHub},
	}

	for _, c := range checks {
		if err := c.fn(); err != nil {
			return fmt.Errorf("%s validation failed: %w", c.name, err)
		}
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	db := v.cfg.DB
	if db.MaxIdleConns > db.MaxOpenConns {
		return NewValidationError("db_max_idle_conns",
			fmt.Errorf("%w: cannot exceed db_max_open_conns (%d)", ErrInvalidValue, db.MaxOpenConns))
	}
	if db.MaxOpenConns < 1 {
		return NewValidationError("db_max_open_conns", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if db.MaxIdleConns < 0 {
		return NewValidationError("db_max_idle_conns", fmt.Errorf("%w: cannot be negative", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateSessionBackend() error {
	switch v.cfg.SessionBackend {
	case SessionBackendInMemory:
	case SessionBackendDatabase:
		if v.cfg.DatabaseURL == "" {
			return NewValidationError("adk_session_backend",
				fmt.Errorf("%w: database backend requires database_url to be set", ErrInvalidValue))
		}
	default:
		return NewValidationError("adk_session_backend",
			fmt.Errorf("%w: %q (want in_memory|database)", ErrInvalidValue, v.cfg.SessionBackend))
	}
	return nil
}

func (v *Validator) validatePolicy() error {
	switch v.cfg.Policy.MergeMethod {
	case MergeMethodMerge, MergeMethodSquash, MergeMethodRebase:
	default:
		return NewValidationError("merge_method",
			fmt.Errorf("%w: %q (want merge|squash|rebase)", ErrInvalidValue, v.cfg.Policy.MergeMethod))
	}
	return nil
}

func (v *Validator) validateJira() error {
	j := v.cfg.Jira
	switch j.Mode {
	case ModeAPI, ModeMock:
	default:
		return NewValidationError("jira_integration_mode",
			fmt.Errorf("%w: %q (want api|mock)", ErrInvalidValue, j.Mode))
	}
	// Field completeness for api mode is enforced by the provider router's
	// readiness check (spec §4.2), not here: an incomplete api configuration
	// is a valid, reportable runtime state, not a startup failure.
	return nil
}

func (v *Validator) validateGitHub() error {
	switch v.cfg.GitHub.Mode {
	case ModeAPI, ModeMock:
	default:
		return NewValidationError("github_integration_mode",
			fmt.Errorf("%w: %q (want api|mock)", ErrInvalidValue, v.cfg.GitHub.Mode))
	}
	return nil
}
