package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/signature"
)

func testCapture(name string) *models.Capture {
	return &models.Capture{
		Name: name,
		Geometry: models.Geometry{
			BlockSize:     6,
			Pitch:         200.0 / 34,
			RowWidth:      34,
			ContainerSize: 200,
		},
		Frames: []models.Frame{
			{"#000", "#fff", "#f00"},
			{"#111", "#eee", "#0f0"},
		},
		CSS: ":root{--size:200px}",
	}
}

// exerciseStorage runs the behavior every Storage implementation shares.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.LatestCapture(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestCapture on empty store: err = %v, want ErrNotFound", err)
	}

	first, err := s.SaveCapture(ctx, testCapture("first take"))
	if err != nil {
		t.Fatalf("SaveCapture: %v", err)
	}
	second, err := s.SaveCapture(ctx, testCapture("second"))
	if err != nil {
		t.Fatalf("SaveCapture: %v", err)
	}
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	got, err := s.GetCapture(ctx, first)
	if err != nil {
		t.Fatalf("GetCapture: %v", err)
	}
	want := testCapture("first take")
	if got.Name != want.Name || got.CSS != want.CSS || got.Geometry != want.Geometry {
		t.Errorf("GetCapture = %+v, want %+v", got, want)
	}
	if len(got.Frames) != len(want.Frames) {
		t.Fatalf("got %d frames, want %d", len(got.Frames), len(want.Frames))
	}
	for i := range want.Frames {
		if strings.Join(got.Frames[i], ",") != strings.Join(want.Frames[i], ",") {
			t.Errorf("frame %d = %v, want %v", i, got.Frames[i], want.Frames[i])
		}
	}

	latest, err := s.LatestCapture(ctx)
	if err != nil {
		t.Fatalf("LatestCapture: %v", err)
	}
	if latest.ID != second {
		t.Errorf("LatestCapture id = %d, want %d", latest.ID, second)
	}

	list, err := s.ListCaptures(ctx, 10)
	if err != nil {
		t.Fatalf("ListCaptures: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("ListCaptures = %+v, want newest first", list)
	}
	if list[0].FrameCount != 2 {
		t.Errorf("FrameCount = %d, want 2", list[0].FrameCount)
	}

	limited, err := s.ListCaptures(ctx, 1)
	if err != nil {
		t.Fatalf("ListCaptures: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListCaptures(1) returned %d entries", len(limited))
	}

	if _, err := s.GetCapture(ctx, second+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCapture unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStorage(t, s)
}

func TestFileStorageWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.SaveCapture(context.Background(), testCapture("My Clip!"))
	if err != nil {
		t.Fatal(err)
	}

	captureDir := s.CaptureDir(id, "My Clip!")
	if filepath.Base(captureDir) != "0001-my-clip-" {
		t.Errorf("capture dir = %q", filepath.Base(captureDir))
	}
	css, err := os.ReadFile(filepath.Join(captureDir, "animation.css"))
	if err != nil {
		t.Fatal(err)
	}
	if string(css) != ":root{--size:200px}" {
		t.Errorf("animation.css = %q", css)
	}
	html, err := os.ReadFile(filepath.Join(captureDir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), ":root{--size:200px}") {
		t.Error("index.html does not embed the stylesheet")
	}
	if _, err := os.Stat(filepath.Join(dir, indexFile)); err != nil {
		t.Errorf("index not written: %v", err)
	}
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStorage(t, s)
}

func TestSQLiteStorageReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "captures.db")

	s, err := NewSQLiteStorage(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.SaveCapture(ctx, testCapture("persisted"))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStorage(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.GetCapture(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "persisted" || len(got.Frames) != 2 {
		t.Errorf("reopened capture = %+v", got)
	}
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("BXS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BXS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	signatures := signature.NewService(2)
	defer signatures.Close()

	s, err := NewPostgresStorage(ctx, PostgresConfig{DSN: dsn}, signatures)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(ctx, "TRUNCATE captures CASCADE"); err != nil {
		t.Fatal(err)
	}

	exerciseStorage(t, s)

	latest, err := s.LatestCapture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	results, err := s.SearchSimilarFrames(ctx, latest.ID, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no similar frames found")
	}
	// both captures hold identical frames, so the best match is an exact one
	if results[0].Similarity < 0.999 {
		t.Errorf("best similarity = %f, want ~1", results[0].Similarity)
	}
}

func TestPostgresConnString(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "bxs"}
	if got := cfg.ConnString(); got != "postgres://u:p@db:5432/bxs" {
		t.Errorf("ConnString = %q", got)
	}
	cfg.DSN = "postgres://override"
	if got := cfg.ConnString(); got != "postgres://override" {
		t.Errorf("ConnString with DSN = %q", got)
	}
}
