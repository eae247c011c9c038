// Package models defines the data types shared across the orchestrator:
// alerts, incidents, remediation results, root-cause signatures, and the
// incident timeline. Grounded on original_source/src/resilix/models/*.py.
package models

import "time"

// Severity is the triaged severity of an incident.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityOrder ranks severities from least to most severe, used when a
// raw alert label claims a severity stricter than the computed one.
var severityOrder = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Stricter reports whether s is at least as severe as other.
func (s Severity) Stricter(other Severity) bool {
	return severityOrder[s] >= severityOrder[other]
}

// SignalScores holds the per-signal weighted hit counts Sentinel derived
// from the raw payload.
type SignalScores struct {
	ErrorRateHigh     float64 `json:"error_rate_high"`
	HealthFlapping    float64 `json:"health_flapping"`
	BacklogGrowth     float64 `json:"backlog_growth"`
	DependencyTimeout float64 `json:"dependency_timeout"`
}

// AlertEnrichment carries Sentinel's scoring trace alongside a validated alert.
type AlertEnrichment struct {
	SignalScores           SignalScores `json:"signal_scores"`
	WeightedScore          float64      `json:"weighted_score"`
	UsedLLMFallback        bool         `json:"used_llm_fallback"`
	DeterministicConfidence float64     `json:"deterministic_confidence"`
}

// ValidatedAlert is the output of Sentinel triage: a raw webhook payload
// reduced to a structured, scored alert.
type ValidatedAlert struct {
	AlertID            string          `json:"alert_id"`
	IsActionable       bool            `json:"is_actionable"`
	Severity           Severity        `json:"severity"`
	ServiceName        string          `json:"service_name"`
	ErrorType          string          `json:"error_type"`
	ErrorRate          float64         `json:"error_rate"`
	AffectedEndpoints  []string        `json:"affected_endpoints"`
	TriggeredAt        time.Time       `json:"triggered_at"`
	Enrichment         AlertEnrichment `json:"enrichment"`
	TriageReason       string          `json:"triage_reason"`
}
