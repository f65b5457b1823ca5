package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/signature"
)

// PostgresConfig holds connection details for PostgreSQL
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	DSN      string // used as-is when set
}

// ConnString builds the connection URL
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// PostgresStorage keeps captures in PostgreSQL with a color signature per
// frame for similarity search
type PostgresStorage struct {
	pool       *pgxpool.Pool
	signatures *signature.Service
}

// NewPostgresStorage connects to PostgreSQL and ensures the schema exists
func NewPostgresStorage(ctx context.Context, config PostgresConfig, signatures *signature.Service) (*PostgresStorage, error) {
	if err := InitSchema(ctx, config); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{pool: pool, signatures: signatures}, nil
}

// Close closes the connection pool
func (s *PostgresStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveCapture stores the capture, its frames and their signatures
func (s *PostgresStorage) SaveCapture(ctx context.Context, c *models.Capture) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	sigs, err := s.signatures.Frames(ctx, c.Frames)
	if err != nil {
		return 0, fmt.Errorf("failed to compute frame signatures: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		"INSERT INTO captures (name, geometry, css, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		c.Name, c.Geometry, c.CSS, c.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create capture entry: %w", err)
	}

	batch := &pgx.Batch{}
	for i, f := range c.Frames {
		batch.Queue(
			"INSERT INTO frames (capture_id, frame_number, colors, signature) VALUES ($1, $2, $3, $4)",
			id, i, []string(f), pgvector.NewVector(sigs[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to store frames: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit capture: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetCapture loads a capture and its frames
func (s *PostgresStorage) GetCapture(ctx context.Context, id int64) (*models.Capture, error) {
	return s.loadCapture(ctx, "SELECT id, name, geometry, css, created_at FROM captures WHERE id = $1", id)
}

// LatestCapture loads the newest capture
func (s *PostgresStorage) LatestCapture(ctx context.Context) (*models.Capture, error) {
	return s.loadCapture(ctx, "SELECT id, name, geometry, css, created_at FROM captures ORDER BY id DESC LIMIT 1")
}

func (s *PostgresStorage) loadCapture(ctx context.Context, query string, args ...any) (*models.Capture, error) {
	var c models.Capture
	err := s.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Geometry, &c.CSS, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load capture: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT colors FROM frames WHERE capture_id = $1 ORDER BY frame_number", c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load frames: %w", err)
	}
	frames, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Frame, error) {
		var colors []string
		err := row.Scan(&colors)
		return models.Frame(colors), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan frames: %w", err)
	}
	c.Frames = frames
	return &c, nil
}

// ListCaptures returns summaries, newest first
func (s *PostgresStorage) ListCaptures(ctx context.Context, limit int) ([]models.CaptureSummary, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
        SELECT c.id, c.name, c.created_at, COUNT(f.id)
        FROM captures c LEFT JOIN frames f ON f.capture_id = c.id
        GROUP BY c.id
        ORDER BY c.id DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CaptureSummary, error) {
		var sum models.CaptureSummary
		err := row.Scan(&sum.ID, &sum.Name, &sum.CreatedAt, &sum.FrameCount)
		return sum, err
	})
}

// SearchSimilarFrames finds the frames whose color signature is closest to
// frame frameNumber of capture captureID
func (s *PostgresStorage) SearchSimilarFrames(ctx context.Context, captureID int64, frameNumber, limit int) ([]models.FrameSearchResult, error) {
	var query pgvector.Vector
	err := s.pool.QueryRow(ctx,
		"SELECT signature FROM frames WHERE capture_id = $1 AND frame_number = $2",
		captureID, frameNumber).Scan(&query)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load frame signature: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT capture_id, frame_number, 1 - (signature <=> $1) AS similarity
        FROM frames
        WHERE NOT (capture_id = $2 AND frame_number = $3)
        ORDER BY signature <=> $1
        LIMIT $4`,
		query, captureID, frameNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar frames: %w", err)
	}
	defer rows.Close()

	var results []models.FrameSearchResult
	for rows.Next() {
		var result models.FrameSearchResult
		if err := rows.Scan(&result.CaptureID, &result.FrameNumber, &result.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist
func InitSchema(ctx context.Context, config PostgresConfig) error {
	conn, err := pgx.Connect(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS captures (
            id BIGSERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            geometry JSONB NOT NULL,
            css TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS frames (
            id BIGSERIAL PRIMARY KEY,
            capture_id BIGINT REFERENCES captures(id) ON DELETE CASCADE,
            frame_number INTEGER NOT NULL,
            colors TEXT[] NOT NULL,
            signature vector(%d),
            UNIQUE(capture_id, frame_number)
        );

        CREATE INDEX IF NOT EXISTS idx_frames_capture_id ON frames(capture_id);
    `, signature.Dimensions))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}
