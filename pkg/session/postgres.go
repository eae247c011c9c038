package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/resilix/orchestrator/pkg/database"
	"github.com/resilix/orchestrator/pkg/models"
)

// PostgresStore persists incident state as a single JSONB column keyed by
// incident_id, grounded on session.py's PostgresSessionStore (one table,
// upsert-on-save, no per-field columns).
type PostgresStore struct {
	cfg database.Config
	db  *sql.DB
}

// NewPostgresStore creates a store bound to cfg. Call Init (directly, or
// via EnsureInitialized) before use to open the pool and run migrations.
func NewPostgresStore(cfg database.Config) *PostgresStore {
	return &PostgresStore{cfg: cfg}
}

// Init opens the connection pool and applies the embedded schema migration.
func (p *PostgresStore) Init(ctx context.Context) error {
	db, err := database.NewClient(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("init postgres session store: %w", err)
	}
	p.db = db
	return nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// DB exposes the underlying connection pool, for callers (the health
// endpoint) that need to check connectivity directly.
func (p *PostgresStore) DB() *sql.DB {
	return p.db
}

// Save upserts the incident's JSONB state.
func (p *PostgresStore) Save(ctx context.Context, state *models.IncidentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal incident state: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO resilix_incidents (incident_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (incident_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()
	`, state.IncidentID, payload)
	if err != nil {
		return fmt.Errorf("save incident state: %w", err)
	}
	return nil
}

// Get fetches one incident's state, returning (nil, nil) if absent.
func (p *PostgresStore) Get(ctx context.Context, incidentID string) (*models.IncidentState, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT state FROM resilix_incidents WHERE incident_id = $1`, incidentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incident state: %w", err)
	}

	var state models.IncidentState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal incident state: %w", err)
	}
	return &state, nil
}

// ListItems returns every stored incident's state.
func (p *PostgresStore) ListItems(ctx context.Context) ([]*models.IncidentState, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT state FROM resilix_incidents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list incident states: %w", err)
	}
	defer rows.Close()

	var items []*models.IncidentState
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan incident state: %w", err)
		}
		var state models.IncidentState
		if err := json.Unmarshal(payload, &state); err != nil {
			return nil, fmt.Errorf("unmarshal incident state: %w", err)
		}
		items = append(items, &state)
	}
	return items, rows.Err()
}
