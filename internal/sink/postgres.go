// Package sink hands final reports to the relational store that keeps the
// user's history. The store only ever sees the report as one JSON document
// under an opaque ID.
package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ericksa/keiyakucheck/internal/speculative"
)

// ErrNotFound is returned by Load for an unknown report ID.
var ErrNotFound = errors.New("report not found")

const schema = `CREATE TABLE IF NOT EXISTS contract_reports (
	id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	critical INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresSink implements speculative.ResultSink on PostgreSQL.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to dbURL and makes sure the reports table exists.
func NewPostgresSink(ctx context.Context, dbURL string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewFromDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing connection.
func NewFromDB(ctx context.Context, db *sql.DB) (*PostgresSink, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Save stores r under id, replacing an earlier report with the same id.
func (s *PostgresSink) Save(ctx context.Context, id string, r *speculative.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contract_reports (id, payload, critical, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, critical = EXCLUDED.critical`,
		id, string(payload), r.Checkpoints.Summary.Critical, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", id, err)
	}
	return nil
}

// Load returns the report stored under id.
func (s *PostgresSink) Load(ctx context.Context, id string) (*speculative.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM contract_reports WHERE id = $1", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	var r speculative.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &r, nil
}

// Close closes the database connection
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
