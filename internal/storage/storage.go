package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bdougie/boxshadow/internal/compiler"
	"github.com/bdougie/boxshadow/internal/models"
)

// ErrNotFound is returned when a capture does not exist.
var ErrNotFound = errors.New("capture not found")

// Storage defines the interface for persisting finished captures
type Storage interface {
	// SaveCapture stores a capture and returns its new ID
	SaveCapture(ctx context.Context, c *models.Capture) (int64, error)

	GetCapture(ctx context.Context, id int64) (*models.Capture, error)

	// LatestCapture returns the most recently saved capture
	LatestCapture(ctx context.Context) (*models.Capture, error)

	// ListCaptures returns summaries, newest first
	ListCaptures(ctx context.Context, limit int) ([]models.CaptureSummary, error)

	Close() error
}

const indexFile = "captures.json"

// FileStorage keeps every capture in its own directory under outputDir,
// next to a stylesheet and a standalone HTML page, plus a shared index.
type FileStorage struct {
	mu        sync.Mutex
	outputDir string
}

// NewFileStorage creates a file storage rooted at outputDir
func NewFileStorage(outputDir string) (*FileStorage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", outputDir, err)
	}
	return &FileStorage{outputDir: outputDir}, nil
}

// CaptureDir returns the directory holding capture id.
func (s *FileStorage) CaptureDir(id int64, name string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%04d-%s", id, slug(name)))
}

// SaveCapture writes capture.json, animation.css and index.html and appends
// the capture to the index.
func (s *FileStorage) SaveCapture(ctx context.Context, c *models.Capture) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return 0, err
	}
	var id int64 = 1
	for _, e := range index {
		if e.ID >= id {
			id = e.ID + 1
		}
	}

	c.ID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	dir := s.CaptureDir(id, c.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create capture directory '%s': %w", dir, err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to encode capture: %w", err)
	}
	files := map[string][]byte{
		"capture.json":  data,
		"animation.css": []byte(c.CSS),
		"index.html":    []byte(compiler.HTMLDocument(c.CSS)),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	index = append(index, models.CaptureSummary{
		ID:         id,
		Name:       c.Name,
		FrameCount: len(c.Frames),
		CreatedAt:  c.CreatedAt,
	})
	if err := s.writeIndex(index); err != nil {
		return 0, err
	}
	return id, nil
}

// GetCapture loads a capture by ID
func (s *FileStorage) GetCapture(ctx context.Context, id int64) (*models.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range index {
		if e.ID == id {
			return s.load(e)
		}
	}
	return nil, ErrNotFound
}

// LatestCapture loads the capture with the highest ID
func (s *FileStorage) LatestCapture(ctx context.Context) (*models.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	if len(index) == 0 {
		return nil, ErrNotFound
	}
	latest := index[0]
	for _, e := range index[1:] {
		if e.ID > latest.ID {
			latest = e
		}
	}
	return s.load(latest)
}

// ListCaptures returns up to limit summaries, newest first
func (s *FileStorage) ListCaptures(ctx context.Context, limit int) ([]models.CaptureSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	sort.Slice(index, func(i, j int) bool { return index[i].ID > index[j].ID })
	if limit > 0 && len(index) > limit {
		index = index[:limit]
	}
	return index, nil
}

// Close implements Storage; files need no cleanup
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) load(e models.CaptureSummary) (*models.Capture, error) {
	path := filepath.Join(s.CaptureDir(e.ID, e.Name), "capture.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}
	var c models.Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capture: %w", err)
	}
	return &c, nil
}

func (s *FileStorage) readIndex() ([]models.CaptureSummary, error) {
	var index []models.CaptureSummary
	data, err := os.ReadFile(filepath.Join(s.outputDir, indexFile))
	if os.IsNotExist(err) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return index, nil
}

func (s *FileStorage) writeIndex(index []models.CaptureSummary) error {
	file, err := os.Create(filepath.Join(s.outputDir, indexFile))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(index); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "capture"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
