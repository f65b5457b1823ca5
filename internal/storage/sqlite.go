package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bdougie/boxshadow/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS captures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    geometry TEXT NOT NULL,
    css TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
    capture_id INTEGER NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
    frame_number INTEGER NOT NULL,
    colors TEXT NOT NULL,
    PRIMARY KEY (capture_id, frame_number)
);
`

// SQLiteStorage keeps captures in a local SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveCapture stores the capture and its frames in one transaction
func (s *SQLiteStorage) SaveCapture(ctx context.Context, c *models.Capture) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	geometry, err := json.Marshal(c.Geometry)
	if err != nil {
		return 0, fmt.Errorf("failed to encode geometry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO captures (name, geometry, css, created_at) VALUES (?, ?, ?, ?)",
		c.Name, string(geometry), c.CSS, c.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to create capture entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO frames (capture_id, frame_number, colors) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, f := range c.Frames {
		colors, err := json.Marshal(f)
		if err != nil {
			return 0, fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(colors)); err != nil {
			return 0, fmt.Errorf("failed to store frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit capture: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetCapture loads a capture and its frames
func (s *SQLiteStorage) GetCapture(ctx context.Context, id int64) (*models.Capture, error) {
	return s.loadCapture(ctx, "SELECT id, name, geometry, css, created_at FROM captures WHERE id = ?", id)
}

// LatestCapture loads the newest capture
func (s *SQLiteStorage) LatestCapture(ctx context.Context) (*models.Capture, error) {
	return s.loadCapture(ctx, "SELECT id, name, geometry, css, created_at FROM captures ORDER BY id DESC LIMIT 1")
}

func (s *SQLiteStorage) loadCapture(ctx context.Context, query string, args ...any) (*models.Capture, error) {
	var (
		c        models.Capture
		geometry string
		created  int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &geometry, &c.CSS, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load capture: %w", err)
	}
	if err := json.Unmarshal([]byte(geometry), &c.Geometry); err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	c.CreatedAt = time.UnixMilli(created)

	rows, err := s.db.QueryContext(ctx,
		"SELECT colors FROM frames WHERE capture_id = ? ORDER BY frame_number", c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load frames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var colors string
		if err := rows.Scan(&colors); err != nil {
			return nil, err
		}
		var f models.Frame
		if err := json.Unmarshal([]byte(colors), &f); err != nil {
			return nil, fmt.Errorf("failed to decode frame: %w", err)
		}
		c.Frames = append(c.Frames, f)
	}
	return &c, rows.Err()
}

// ListCaptures returns summaries, newest first
func (s *SQLiteStorage) ListCaptures(ctx context.Context, limit int) ([]models.CaptureSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.id, c.name, c.created_at, COUNT(f.frame_number)
        FROM captures c LEFT JOIN frames f ON f.capture_id = c.id
        GROUP BY c.id
        ORDER BY c.id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer rows.Close()

	var out []models.CaptureSummary
	for rows.Next() {
		var (
			sum     models.CaptureSummary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &created, &sum.FrameCount); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.UnixMilli(created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
