package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := newTestRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func alertWebhookPayload() map[string]any {
	return map[string]any{
		"alerts": []any{
			map[string]any{
				"labels": map[string]any{
					"severity": "critical",
					"service":  "checkout",
					"alertname": "HighErrorRate",
				},
				"annotations": map[string]any{
					"summary": "checkout error rate above threshold",
				},
			},
		},
	}
}

func TestWebhookHandlerRejectsInvalidPayload(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/webhook/prometheus", map[string]any{"foo": "bar"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerAcceptsValidPayload(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/webhook/prometheus", alertWebhookPayload())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp webhookAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "accepted", resp.Status)
	require.NotEmpty(t, resp.IncidentID)
}

func TestWebhookHandlerRejectsWhenAPIProviderNotReady(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Jira.Mode = "api"
	s.cfg.Jira.APIToken = "placeholder"

	rec := postJSON(t, s, "/webhook/prometheus", alertWebhookPayload())
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "provider_not_ready", resp.Code)
}
