package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitegate/models"
)

const queryTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id         UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	ip_address TEXT NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	details    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS audit_logs_type_ip_created_idx
	ON audit_logs (event_type, ip_address, created_at DESC);`

// PostgresStore writes to the audit_logs table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the audit_logs table and its lookup index if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_logs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event models.AuditEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	details := event.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmt := "INSERT INTO audit_logs (id, event_type, ip_address, user_agent, details) VALUES ($1, $2, $3, $4, $5::jsonb);"
	_, err = s.db.Exec(ctx, stmt, uuid.New(), string(event.EventType), event.IPAddress, event.UserAgent, string(detailsJSON))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmt := "SELECT COUNT(*) FROM audit_logs WHERE event_type = $1 AND ip_address = $2 AND created_at >= $3;"

	var count int
	if err := s.db.QueryRow(ctx, stmt, string(eventType), ip, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) LatestSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmt := "SELECT MAX(created_at) FROM audit_logs WHERE event_type = $1 AND ip_address = $2 AND created_at >= $3;"

	var latest *time.Time
	if err := s.db.QueryRow(ctx, stmt, string(eventType), ip, cutoff).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("latest audit event: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.db.Close()
	return nil
}
