// Package state is the client's local persistence: a sqlite file holding the
// last-activated org id (read at startup to bias which tenant is
// auto-activated) and a membership cache for offline org listing.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lynqio/client/internal/tenant"
)

// app_state keys.
const (
	lastOrgKey    = "last_org_id"
	sessionKeyKey = "session_key"
)

// Store wraps the local sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database under dir. Caller must
// call Close when done. Migrations are applied by the caller (cmd/lynqio
// migrate or Bootstrap).
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("state: dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("state: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", DBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// DBPath returns the sqlite file path under dir.
func DBPath(dir string) string {
	return filepath.Join(dir, "lynqio.db")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastOrgID returns the last-activated org id, or "" when none is stored.
func (s *Store) LastOrgID(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, lastOrgKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state: read last org id: %w", err)
	}
	return v, nil
}

// SetLastOrgID stores orgID as the last-activated tenant.
func (s *Store) SetLastOrgID(ctx context.Context, orgID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastOrgKey, orgID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: store last org id: %w", err)
	}
	return nil
}

// SessionKey returns the persisted provider session key, or "" when none.
func (s *Store) SessionKey(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, sessionKeyKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state: read session key: %w", err)
	}
	return v, nil
}

// SetSessionKey persists the provider session key; "" clears it.
func (s *Store) SetSessionKey(ctx context.Context, key string) error {
	if key == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, sessionKeyKey)
		if err != nil {
			return fmt.Errorf("state: clear session key: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionKeyKey, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: store session key: %w", err)
	}
	return nil
}

// SaveMemberships replaces the cached membership list.
func (s *Store) SaveMemberships(ctx context.Context, ms []tenant.Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships`); err != nil {
		return fmt.Errorf("state: clear memberships: %w", err)
	}
	for _, m := range ms {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (org_id, name, plan, seats_used, seats_total, role, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.Tenant.ID, m.Tenant.Name, string(m.Tenant.Plan),
			m.Tenant.SeatsUsed, m.Tenant.SeatsTotal, string(m.Role), m.Tenant.CreatedAt)
		if err != nil {
			return fmt.Errorf("state: insert membership %s: %w", m.Tenant.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// ListMemberships returns the cached membership list.
func (s *Store) ListMemberships(ctx context.Context) ([]tenant.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT org_id, name, plan, seats_used, seats_total, role, created_at
		 FROM memberships ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("state: list memberships: %w", err)
	}
	defer rows.Close()

	var ms []tenant.Membership
	for rows.Next() {
		var m tenant.Membership
		var plan, role string
		var createdAt sql.NullTime
		if err := rows.Scan(&m.Tenant.ID, &m.Tenant.Name, &plan,
			&m.Tenant.SeatsUsed, &m.Tenant.SeatsTotal, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("state: scan membership: %w", err)
		}
		m.Tenant.Plan = tenant.PlanTier(plan)
		m.Role = tenant.Role(role)
		if createdAt.Valid {
			m.Tenant.CreatedAt = createdAt.Time
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}
