package orchestrator

import (
	"fmt"

	"github.com/resilix/orchestrator/pkg/models"
)

// inferRootCauseCategory maps a validated alert's signal hits to a root-cause
// category and recommended action, mirroring
// orchestrator.py's _infer_root_cause_category: health_flapping paired with
// backlog_growth wins first, then dependency_timeout, then error_rate_high,
// falling back to resource exhaustion.
func inferRootCauseCategory(hits map[string]int) (models.RootCauseCategory, models.RecommendedAction) {
	if hits["health_flapping"] > 0 && hits["backlog_growth"] > 0 {
		return models.CategoryConfigError, models.ActionConfigChange
	}
	if hits["dependency_timeout"] > 0 {
		return models.CategoryDependencyFailure, models.ActionConfigChange
	}
	if hits["error_rate_high"] > 0 {
		return models.CategoryCodeBug, models.ActionFixCode
	}
	return models.CategoryResourceExhaustion, models.ActionScaleUp
}

// artifactPathForCategory returns the default remediation target file for a
// root-cause category, used when the webhook payload doesn't override it.
func artifactPathForCategory(category models.RootCauseCategory) string {
	switch category {
	case models.CategoryConfigError:
		return "infra/service-config.yaml"
	case models.CategoryDependencyFailure:
		return "infra/dependencies.yaml"
	case models.CategoryCodeBug:
		return "src/app/handlers.py"
	default:
		return "k8s/deployment.yaml"
	}
}

func rootCauseNarrative(category models.RootCauseCategory) string {
	switch category {
	case models.CategoryConfigError:
		return "Propagation configuration drift caused unstable health transitions."
	case models.CategoryDependencyFailure:
		return "Dependency communications degraded under timeout conditions."
	case models.CategoryCodeBug:
		return "Application logic error increased failing request volume."
	default:
		return "Service capacity limits were exceeded under incident load."
	}
}

// buildEvidenceChain takes up to the first three log entries from the raw
// webhook payload as evidence. No log_entries means no evidence: this
// deterministic builder never queries an external log backend (spec §1
// Non-goals — the LLM-agent investigation runner that would do so is out of
// scope; see DESIGN.md).
func buildEvidenceChain(rawAlert map[string]any) []models.Evidence {
	raw, _ := rawAlert["log_entries"].([]any)
	var chain []models.Evidence
	for i, entry := range raw {
		if i >= 3 {
			break
		}
		e, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		message, _ := e["message"].(string)
		if message == "" {
			message = "observed anomalous behavior"
		}
		timestamp, _ := e["timestamp"].(string)
		chain = append(chain, models.Evidence{
			Source:    "logs",
			Timestamp: timestamp,
			Content:   message,
			Relevance: 1.0,
		})
	}
	return chain
}

// BuildFallbackSignature constructs the deterministic thought signature used
// whenever no external reasoning runner supplies one, grounded on
// orchestrator.py's _build_fallback_thought_signature. It honors any
// repository/target_file override present in the raw webhook payload.
func BuildFallbackSignature(incidentID string, rawAlert map[string]any, validated models.ValidatedAlert, hits map[string]int, weightedScore float64, defaultOwner string) models.ThoughtSignature {
	category, action := inferRootCauseCategory(hits)
	targetFile := artifactPathForCategory(category)
	if override, ok := rawAlert["target_file"].(string); ok && override != "" {
		targetFile = override
	}

	repository := fmt.Sprintf("%s/resilix-demo-app", defaultOwner)
	if override, ok := rawAlert["repository"].(string); ok && override != "" {
		repository = override
	}

	confidence := 0.62 + weightedScore*0.04
	if confidence > 0.98 {
		confidence = 0.98
	}

	return models.ThoughtSignature{
		IncidentID:                incidentID,
		RootCause:                 rootCauseNarrative(category),
		RootCauseCategory:         category,
		EvidenceChain:             buildEvidenceChain(rawAlert),
		AffectedServices:          []string{validated.ServiceName},
		ConfidenceScore:           round3(confidence),
		RecommendedAction:         action,
		TargetRepository:          repository,
		TargetFile:                targetFile,
		TargetLine:                1,
		InvestigationSummary:      "Correlated incident signals and evidence indicate a primary failure mode in a single remediation artifact.",
		InvestigationDurationSecs: 4.5,
	}
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
