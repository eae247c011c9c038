package sentinel

import (
	"testing"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func baselinePayload() map[string]any {
	return map[string]any{
		"alerts": []any{
			map[string]any{
				"status": "firing",
				"labels": map[string]any{
					"alertname": "HighErrorRate",
					"service":   "checkout-api",
					"severity":  "high",
				},
				"annotations": map[string]any{},
				"startsAt":    "2026-01-01T00:00:00Z",
			},
		},
		"log_entries": []any{
			map[string]any{
				"event":    "HighErrorRate",
				"metadata": map[string]any{"error_rate": 4.8},
			},
		},
	}
}

func TestEvaluateBaselineErrorRate(t *testing.T) {
	alert, trace, err := Evaluate(baselinePayload(), "INC-aaaaaaaa", nil)
	require.NoError(t, err)
	require.Equal(t, models.SeverityHigh, alert.Severity)
	require.True(t, alert.IsActionable)
	require.False(t, alert.Enrichment.UsedLLMFallback)
	require.False(t, trace.Ambiguous)
	require.Greater(t, trace.Score, 0.0)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	payload := baselinePayload()
	a1, t1, err := Evaluate(payload, "INC-aaaaaaaa", nil)
	require.NoError(t, err)
	a2, t2, err := Evaluate(payload, "INC-aaaaaaaa", nil)
	require.NoError(t, err)
	require.Equal(t, a1.Severity, a2.Severity)
	require.Equal(t, a1.Enrichment.SignalScores, a2.Enrichment.SignalScores)
	require.Equal(t, t1.Score, t2.Score)
}

func TestEvaluateAmbiguousInvokesFallback(t *testing.T) {
	payload := map[string]any{
		"alerts": []any{
			map[string]any{
				"status": "firing",
				"labels": map[string]any{
					"alertname": "UnknownSignal",
					"severity":  "low",
				},
			},
		},
	}

	called := false
	fallback := func(in FallbackInput) (FallbackOutput, error) {
		called = true
		return FallbackOutput{
			Severity:        models.SeverityLow,
			IsActionable:    true,
			TriageReason:    "fallback reason",
			ConfidenceScore: 0.3,
		}, nil
	}

	alert, trace, err := Evaluate(payload, "INC-bbbbbbbb", fallback)
	require.NoError(t, err)
	require.True(t, called)
	require.True(t, trace.Ambiguous)
	require.True(t, alert.Enrichment.UsedLLMFallback)
	require.True(t, alert.IsActionable)
}

func TestSeverityFromScoreHonorsStricterLabel(t *testing.T) {
	payload := map[string]any{
		"alerts": []any{
			map[string]any{
				"status": "firing",
				"labels": map[string]any{
					"alertname": "Minor",
					"severity":  "critical",
				},
			},
		},
	}
	alert, _, err := Evaluate(payload, "INC-cccccccc", func(FallbackInput) (FallbackOutput, error) {
		return FallbackOutput{Severity: models.SeverityLow, IsActionable: true, ConfidenceScore: 0.3}, nil
	})
	require.NoError(t, err)
	_ = alert
	require.Equal(t, models.SeverityCritical, severityFromScore(0, map[string]any{"severity": "critical"}))
	require.Equal(t, models.SeverityCritical, severityFromScore(6, map[string]any{"severity": "low"}))
}

func TestBacklogGrowthFromQueueDepth(t *testing.T) {
	payload := map[string]any{
		"alerts": []any{
			map[string]any{"status": "firing", "labels": map[string]any{"alertname": "TargetHealthFlapping", "service": "orders"}},
		},
		"log_entries": []any{
			map[string]any{"event": "TargetHealthFlapping", "metadata": map[string]any{"queue_depth": 250000.0}},
			map[string]any{"event": "TargetHealthFlapping", "metadata": map[string]any{"queue_depth": 210000.0}},
			map[string]any{"event": "DependencyTimeout", "message": "request timed out"},
		},
	}
	alert, trace, err := Evaluate(payload, "INC-dddddddd", nil)
	require.NoError(t, err)
	require.Greater(t, alert.Enrichment.SignalScores.BacklogGrowth, 0.0)
	require.Greater(t, alert.Enrichment.SignalScores.DependencyTimeout, 0.0)
	require.False(t, trace.Ambiguous)
}
