package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"bike_monitor/internal/model"
	"bike_monitor/migrations"
)

const timeLayout = time.RFC3339Nano

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadWindow returns the stored footprints of monitor in the order they
// were saved.
func (s *SQLite) LoadWindow(ctx context.Context, monitor string) ([]model.Footprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, price, href, first_seen_at FROM window_entries
		 WHERE monitor = ? ORDER BY position`, monitor,
	)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fps []model.Footprint
	for rows.Next() {
		var fp model.Footprint
		var seen string
		if err := rows.Scan(&fp.Title, &fp.Price, &fp.Href, &seen); err != nil {
			return nil, fmt.Errorf("scan window entry: %w", err)
		}
		fp.FirstSeenAt, _ = time.Parse(timeLayout, seen)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// SaveWindow replaces the stored footprints of monitor in one transaction.
func (s *SQLite) SaveWindow(ctx context.Context, monitor string, fps []model.Footprint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM window_entries WHERE monitor = ?`, monitor); err != nil {
		return fmt.Errorf("clear window: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO window_entries (monitor, href, title, price, first_seen_at, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, fp := range fps {
		seen := fp.FirstSeenAt
		if seen.IsZero() {
			seen = s.now()
		}
		if _, err := stmt.ExecContext(ctx, monitor, fp.Href, fp.Title, fp.Price, seen.UTC().Format(timeLayout), i); err != nil {
			return fmt.Errorf("insert window entry: %w", err)
		}
	}
	return tx.Commit()
}

// RecordNotification inserts n and populates its ID and CreatedAt.
func (s *SQLite) RecordNotification(ctx context.Context, n *model.Notification) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (monitor, href, title, status, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.Monitor, n.Href, n.Title, string(n.Status), n.Reason, now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

// ListNotifications returns the latest notifications of monitor, newest
// first. An empty monitor lists all monitors.
func (s *SQLite) ListNotifications(ctx context.Context, monitor string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, monitor, href, title, status, reason, created_at FROM notifications
		 WHERE ? = '' OR monitor = ?
		 ORDER BY id DESC LIMIT ?`, monitor, monitor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountNotifications counts the notifications of monitor with status.
func (s *SQLite) CountNotifications(ctx context.Context, monitor string, status model.NotificationStatus) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE monitor = ? AND status = ?`,
		monitor, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (model.Notification, error) {
	var n model.Notification
	var status, created string
	if err := row.Scan(&n.ID, &n.Monitor, &n.Href, &n.Title, &status, &n.Reason, &created); err != nil {
		return n, fmt.Errorf("scan notification: %w", err)
	}
	n.Status = model.NotificationStatus(status)
	n.CreatedAt, _ = time.Parse(timeLayout, created)
	return n, nil
}
