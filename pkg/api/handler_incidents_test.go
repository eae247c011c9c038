package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resilix/orchestrator/pkg/models"
)

func getJSON(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := newTestRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestGetIncidentReturnsNotFoundForUnknownID(t *testing.T) {
	s := newTestServer(t)
	rec := getJSON(t, s, "/api/v1/incidents/INC-unknown")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListIncidentsReturnsEmptyInitially(t *testing.T) {
	s := newTestServer(t)
	rec := getJSON(t, s, "/api/v1/incidents")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp incidentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestApproveMergeRejectsWhenNoPRExists(t *testing.T) {
	s := newTestServer(t)

	state := &models.IncidentState{
		IncidentID: "INC-test1",
		Policy: models.PolicySnapshot{
			RequireCIPass: true,
		},
		Approval: models.Approval{Required: true},
	}
	require.NoError(t, s.store.Save(context.Background(), state))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/INC-test1/approve-merge", nil)
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestApproveMergeSucceedsWhenEligible(t *testing.T) {
	s := newTestServer(t)

	state := &models.IncidentState{
		IncidentID: "INC-test2",
		CreatedAt:  time.Now().UTC(),
		RemediationResult: &models.RemediationResult{
			PRNumber: 42,
			PRURL:    "https://github.com/acme/app/pull/42",
		},
		ThoughtSignature: &models.ThoughtSignature{TargetRepository: "acme/app"},
		JiraTicket:       &models.JiraTicket{TicketKey: "RES-1"},
		CIStatus:         models.CICIPassed,
		Approval:         models.Approval{Required: true},
	}
	require.NoError(t, s.store.Save(context.Background(), state))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/INC-test2/approve-merge", nil)
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail models.IncidentDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, models.StatusResolved, detail.Status)
	require.Equal(t, models.PRMerged, detail.PRStatus)
}
