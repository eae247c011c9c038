package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/resilix/orchestrator/pkg/models"
)

// MemoryStore keeps incident state in a mutex-guarded map. It's the
// default store and the fallback target when the relational store can't be
// reached at startup, grounded on session.py's MemorySessionStore.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]*models.IncidentState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{incidents: make(map[string]*models.IncidentState)}
}

// Init is a no-op for the in-memory backend.
func (m *MemoryStore) Init(ctx context.Context) error {
	return nil
}

// Save deep-copies state and stores it keyed by IncidentID.
func (m *MemoryStore) Save(ctx context.Context, state *models.IncidentState) error {
	clone, err := deepCopyState(state)
	if err != nil {
		return fmt.Errorf("copy incident state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents[state.IncidentID] = clone
	return nil
}

// Get returns a deep copy of the stored state, or nil if absent.
func (m *MemoryStore) Get(ctx context.Context, incidentID string) (*models.IncidentState, error) {
	m.mu.RLock()
	stored, ok := m.incidents[incidentID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return deepCopyState(stored)
}

// ListItems returns a deep copy of every stored incident.
func (m *MemoryStore) ListItems(ctx context.Context) ([]*models.IncidentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*models.IncidentState, 0, len(m.incidents))
	for _, stored := range m.incidents {
		clone, err := deepCopyState(stored)
		if err != nil {
			return nil, err
		}
		items = append(items, clone)
	}
	return items, nil
}
