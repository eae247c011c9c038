package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthHandlerReportsOKForMockProviders(t *testing.T) {
	s := newTestServer(t)
	rec := getJSON(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.True(t, resp.ProviderContractOK)
	require.Equal(t, "jira_mock", resp.ProviderMode["jira"])
	require.Equal(t, "github_mock", resp.ProviderMode["github"])
	require.Equal(t, "direct_integrations_only", resp.RunnerPolicy)
	require.Equal(t, "not_configured", resp.ADKReadiness)
}
