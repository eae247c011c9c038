// Package sentinel implements deterministic alert triage: signal extraction
// from heterogeneous alert/log payloads, weighted scoring, and severity
// derivation. Grounded on
// original_source/src/resilix/services/sentinel_service.py.
package sentinel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/resilix/orchestrator/pkg/models"
)

// signalWeights mirrors sentinel_service.py's SIGNAL_WEIGHTS exactly.
var signalWeights = map[string]float64{
	"error_rate_high":   3.0,
	"health_flapping":    3.0,
	"backlog_growth":    2.0,
	"dependency_timeout": 2.0,
}

// FallbackInput is what the ambiguity fallback hook receives.
type FallbackInput struct {
	IncidentID string
	SignalHits map[string]int
	Score      float64
	Labels     map[string]any
	Annotations map[string]any
}

// FallbackOutput is what the ambiguity fallback hook must return.
type FallbackOutput struct {
	Severity        models.Severity
	IsActionable    bool
	TriageReason    string
	ConfidenceScore float64
}

// Fallback is invoked when Sentinel's own signal is too weak to decide
// confidently. It may be nil, in which case the deterministic confidence
// formula is used instead.
type Fallback func(FallbackInput) (FallbackOutput, error)

// Trace carries the scoring detail alongside the validated alert, useful
// for debugging and for the orchestrator's category→action mapping.
type Trace struct {
	SignalHits map[string]int `json:"signal_hits"`
	Score      float64        `json:"score"`
	Ambiguous  bool           `json:"ambiguous"`
}

// Evaluate runs Sentinel's deterministic triage over a raw webhook payload,
// producing a ValidatedAlert plus its scoring Trace.
func Evaluate(payload map[string]any, incidentID string, fallback Fallback) (models.ValidatedAlert, Trace, error) {
	alert := firstAlert(payload)
	logEntries := asSlice(payload["log_entries"])

	hits := collectSignalHits(alert, logEntries)
	score := scoreSignals(hits)

	labels, _ := alert["labels"].(map[string]any)
	annotations, _ := alert["annotations"].(map[string]any)
	status, _ := alert["status"].(string)

	severity := severityFromScore(score, labels)
	isActionable := score >= 2 || status == "firing"
	ambiguous := score < 2.5 || len(hits) == 0

	triageReason := fmt.Sprintf("deterministic: score=%.2f hits=%d", score, len(hits))
	confidence := deterministicConfidence(score)
	usedFallback := false

	if ambiguous && fallback != nil {
		out, err := fallback(FallbackInput{
			IncidentID:  incidentID,
			SignalHits:  hits,
			Score:       score,
			Labels:      labels,
			Annotations: annotations,
		})
		if err != nil {
			return models.ValidatedAlert{}, Trace{}, fmt.Errorf("sentinel fallback: %w", err)
		}
		severity = out.Severity
		isActionable = out.IsActionable
		triageReason = out.TriageReason
		confidence = out.ConfidenceScore
		usedFallback = true
	}

	serviceName := stringField(labels, "service")
	if serviceName == "" {
		serviceName = stringField(annotations, "service")
	}

	validated := models.ValidatedAlert{
		AlertID:      fmt.Sprintf("%s-alert", incidentID),
		IsActionable: isActionable,
		Severity:     severity,
		ServiceName:  serviceName,
		ErrorType:    stringField(labels, "alertname"),
		// error_rate is a heuristic numeric enrichment, not a semantic
		// field (spec §9 open question b) — kept as 1 + weighted_score.
		ErrorRate:         1.0 + score,
		AffectedEndpoints: affectedEndpoints(payload),
		TriggeredAt:       triggeredAt(alert),
		Enrichment: models.AlertEnrichment{
			SignalScores: models.SignalScores{
				ErrorRateHigh:     float64(hits["error_rate_high"]),
				HealthFlapping:    float64(hits["health_flapping"]),
				BacklogGrowth:     float64(hits["backlog_growth"]),
				DependencyTimeout: float64(hits["dependency_timeout"]),
			},
			WeightedScore:           score,
			UsedLLMFallback:         usedFallback,
			DeterministicConfidence: confidence,
		},
		TriageReason: triageReason,
	}

	return validated, Trace{SignalHits: hits, Score: score, Ambiguous: ambiguous}, nil
}

func deterministicConfidence(score float64) float64 {
	c := 0.45 + 0.06*score
	if c > 0.95 {
		return 0.95
	}
	return c
}

func scoreSignals(hits map[string]int) float64 {
	var total float64
	for signal, count := range hits {
		if count == 0 {
			continue
		}
		weight := signalWeights[signal]
		extra := count - 1
		if extra < 0 {
			extra = 0
		}
		if extra > 3 {
			extra = 3
		}
		total += weight + float64(extra)*0.5
	}
	return total
}

var severityOrder = map[models.Severity]int{
	models.SeverityLow:      0,
	models.SeverityMedium:   1,
	models.SeverityHigh:     2,
	models.SeverityCritical: 3,
}

func severityFromScore(score float64, labels map[string]any) models.Severity {
	derived := models.SeverityLow
	switch {
	case score >= 6:
		derived = models.SeverityCritical
	case score >= 4:
		derived = models.SeverityHigh
	case score >= 2:
		derived = models.SeverityMedium
	}

	labelSeverity := models.Severity(strings.ToLower(stringField(labels, "severity")))
	if _, ok := severityOrder[labelSeverity]; ok && severityOrder[labelSeverity] > severityOrder[derived] {
		return labelSeverity
	}
	return derived
}

// collectSignalHits scans the first alert's labels/annotations and every
// log entry for the substrings sentinel_service.py matches on.
func collectSignalHits(alert map[string]any, logEntries []any) map[string]int {
	hits := map[string]int{
		"error_rate_high":    0,
		"health_flapping":    0,
		"backlog_growth":     0,
		"dependency_timeout": 0,
	}

	scanText := func(text string) {
		lower := strings.ToLower(text)
		if containsAny(lower, "error", "5xx", "higherrorrate") {
			hits["error_rate_high"]++
		}
		if containsAny(lower, "flapping", "alternating") {
			hits["health_flapping"]++
		}
		if containsAny(lower, "timeout", "timed out") {
			hits["dependency_timeout"]++
		}
	}

	labels, _ := alert["labels"].(map[string]any)
	annotations, _ := alert["annotations"].(map[string]any)
	scanText(flattenToText(labels))
	scanText(flattenToText(annotations))

	for _, raw := range logEntries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		scanText(flattenToText(entry))
		if metadata, ok := entry["metadata"].(map[string]any); ok {
			if depth, ok := numericField(metadata, "queue_depth"); ok && depth > 200000 {
				hits["backlog_growth"]++
			}
		}
	}

	return hits
}

func firstAlert(payload map[string]any) map[string]any {
	alerts := asSlice(payload["alerts"])
	if len(alerts) == 0 {
		if status, ok := payload["status"]; ok {
			return map[string]any{"status": status}
		}
		return map[string]any{}
	}
	first, _ := alerts[0].(map[string]any)
	if first == nil {
		return map[string]any{}
	}
	return first
}

func affectedEndpoints(payload map[string]any) []string {
	var out []string
	for _, raw := range asSlice(payload["alerts"]) {
		a, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		labels, _ := a["labels"].(map[string]any)
		if ep := stringField(labels, "endpoint"); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

func triggeredAt(alert map[string]any) time.Time {
	raw, _ := alert["startsAt"].(string)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func numericField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func flattenToText(m map[string]any) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for k, v := range m {
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%v", v))
		b.WriteString(" ")
	}
	return b.String()
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
