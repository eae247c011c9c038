// Package session implements the incident session store: save/get/list
// access to IncidentState keyed by incident_id, with an in-memory backend
// and a relational (Postgres) backend. Grounded on
// original_source/src/resilix/services/session.py's SessionStore/
// MemorySessionStore/PostgresSessionStore and ensure_session_store_initialized.
package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/resilix/orchestrator/pkg/models"
)

// Store is the incident session store capability surface (spec §4.1).
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, state *models.IncidentState) error
	Get(ctx context.Context, incidentID string) (*models.IncidentState, error)
	ListItems(ctx context.Context) ([]*models.IncidentState, error)
}

// EnsureInitialized calls store.Init and, if it fails and store is a
// *PostgresStore, falls back to a fresh in-memory store rather than
// failing startup — mirroring ensure_session_store_initialized's
// graceful-degradation behavior (spec §4.1).
func EnsureInitialized(ctx context.Context, store Store) Store {
	if err := store.Init(ctx); err != nil {
		if _, ok := store.(*PostgresStore); ok {
			slog.Warn("postgres session store init failed; falling back to in-memory store", "error", err)
			fallback := NewMemoryStore()
			_ = fallback.Init(ctx)
			return fallback
		}
		slog.Error("session store init failed", "error", err)
	}
	return store
}

// deepCopyState clones state via a JSON marshal round trip, matching
// session.py's _jsonable-then-json.loads(json.dumps(...)) normalization: it
// guarantees stored state is immune to later in-place mutation of the
// caller's struct and that only JSON-representable data is retained.
func deepCopyState(state *models.IncidentState) (*models.IncidentState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var clone models.IncidentState
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}
