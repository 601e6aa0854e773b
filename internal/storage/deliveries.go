package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Delivery outcomes stored in the ledger.
const (
	OutcomePending  = "pending"
	OutcomeTallied  = "tallied"
	OutcomeRejected = "rejected"
)

// ErrDeliveryNotFound is returned by GetDelivery for unknown IDs.
var ErrDeliveryNotFound = errors.New("delivery not found")

// DeliveryRecord is one row of the delivery ledger.
type DeliveryRecord struct {
	ID          string
	Shape       string
	Outcome     string
	Reason      string
	ReceivedAt  time.Time
	CompletedAt *time.Time
}

// DeliveryStore remembers which webhook deliveries were already processed.
type DeliveryStore struct {
	db *sql.DB
}

func NewDeliveryStore(dbPath string) (*DeliveryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer avoids SQLITE_BUSY under concurrent claims
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DeliveryStore{db: db}, nil
}

func (s *DeliveryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ClaimDelivery records id as received. It reports false when id was already claimed.
func (s *DeliveryStore) ClaimDelivery(ctx context.Context, id, shape string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO deliveries (id, shape, outcome, received_at) VALUES (?, ?, ?, ?)`,
		id, shape, OutcomePending, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim delivery %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim delivery %s: %w", id, err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Delivery already claimed", "delivery_id", id)
	}
	return n == 1, nil
}

// CompleteDelivery stores the final outcome of a claimed delivery.
func (s *DeliveryStore) CompleteDelivery(ctx context.Context, id, outcome, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deliveries SET outcome = ?, reason = ?, completed_at = ? WHERE id = ?`,
		outcome, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("complete delivery %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete delivery %s: %w", id, ErrDeliveryNotFound)
	}
	return nil
}

// ReleaseDelivery forgets a claim so a redelivery is processed again. It is
// used when processing failed before any outcome was reached.
func (s *DeliveryStore) ReleaseDelivery(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE id = ? AND outcome = ?`, id, OutcomePending); err != nil {
		return fmt.Errorf("release delivery %s: %w", id, err)
	}
	return nil
}

func (s *DeliveryStore) GetDelivery(ctx context.Context, id string) (DeliveryRecord, error) {
	var (
		rec       DeliveryRecord
		completed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shape, outcome, reason, received_at, completed_at FROM deliveries WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Shape, &rec.Outcome, &rec.Reason, &rec.ReceivedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrDeliveryNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("get delivery %s: %w", id, err)
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

// PendingDeliveries lists claims older than olderThan that never completed,
// oldest first.
func (s *DeliveryStore) PendingDeliveries(ctx context.Context, olderThan time.Duration, limit int) ([]DeliveryRecord, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, shape, outcome, reason, received_at FROM deliveries
		 WHERE outcome = ? AND received_at <= ? ORDER BY received_at LIMIT ?`,
		OutcomePending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending deliveries: %w", err)
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		if err := rows.Scan(&rec.ID, &rec.Shape, &rec.Outcome, &rec.Reason, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan pending delivery: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
