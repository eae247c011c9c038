package orchestrator

import (
	"testing"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestInferRootCauseCategoryConfigError(t *testing.T) {
	category, action := inferRootCauseCategory(map[string]int{"health_flapping": 2, "backlog_growth": 1})
	require.Equal(t, models.CategoryConfigError, category)
	require.Equal(t, models.ActionConfigChange, action)
}

func TestInferRootCauseCategoryDependencyFailure(t *testing.T) {
	category, _ := inferRootCauseCategory(map[string]int{"dependency_timeout": 3})
	require.Equal(t, models.CategoryDependencyFailure, category)
}

func TestInferRootCauseCategoryCodeBug(t *testing.T) {
	category, action := inferRootCauseCategory(map[string]int{"error_rate_high": 1})
	require.Equal(t, models.CategoryCodeBug, category)
	require.Equal(t, models.ActionFixCode, action)
}

func TestInferRootCauseCategoryDefaultsToResourceExhaustion(t *testing.T) {
	category, action := inferRootCauseCategory(map[string]int{})
	require.Equal(t, models.CategoryResourceExhaustion, category)
	require.Equal(t, models.ActionScaleUp, action)
}

func TestBuildFallbackSignatureDefaultsAndConfidenceCap(t *testing.T) {
	validated := models.ValidatedAlert{ServiceName: "checkout"}
	sig := BuildFallbackSignature("INC-1", map[string]any{}, validated, map[string]int{"error_rate_high": 20}, 20.0, "acme")
	require.Equal(t, "acme/resilix-demo-app", sig.TargetRepository)
	require.Equal(t, "src/app/handlers.py", sig.TargetFile)
	require.Equal(t, 0.98, sig.ConfidenceScore)
	require.Equal(t, []string{"checkout"}, sig.AffectedServices)
}

func TestBuildFallbackSignatureHonorsOverrides(t *testing.T) {
	validated := models.ValidatedAlert{ServiceName: "checkout"}
	raw := map[string]any{"repository": "acme/custom-repo", "target_file": "infra/custom.yaml"}
	sig := BuildFallbackSignature("INC-2", raw, validated, map[string]int{}, 0, "acme")
	require.Equal(t, "acme/custom-repo", sig.TargetRepository)
	require.Equal(t, "infra/custom.yaml", sig.TargetFile)
}

func TestBuildEvidenceChainTakesFirstThreeLogEntries(t *testing.T) {
	raw := map[string]any{
		"log_entries": []any{
			map[string]any{"message": "one", "timestamp": "t1"},
			map[string]any{"message": "two", "timestamp": "t2"},
			map[string]any{"message": "three", "timestamp": "t3"},
			map[string]any{"message": "four", "timestamp": "t4"},
		},
	}
	chain := buildEvidenceChain(raw)
	require.Len(t, chain, 3)
	require.Equal(t, "one", chain[0].Content)
}

func TestBuildEvidenceChainEmptyWhenAbsent(t *testing.T) {
	chain := buildEvidenceChain(map[string]any{})
	require.Empty(t, chain)
}
