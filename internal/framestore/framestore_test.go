package framestore

import (
	"errors"
	"testing"

	"github.com/bdougie/boxshadow/internal/models"
)

func TestAppendUntilFull(t *testing.T) {
	s := New(3)
	for i := 0; i < 3; i++ {
		if err := s.Append(models.Frame{"#000"}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if !s.Full() {
		t.Fatal("store should be full")
	}
	if err := s.Append(models.Frame{"#000"}); !errors.Is(err, ErrFull) {
		t.Fatalf("Append() on full store = %v, want ErrFull", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
}

func TestOrderPreserved(t *testing.T) {
	s := New(2)
	_ = s.Append(models.Frame{"#111"})
	_ = s.Append(models.Frame{"#222"})
	if s.At(0)[0] != "#111" || s.At(1)[0] != "#222" {
		t.Fatalf("frames out of order: %v", s.Frames())
	}
}

func TestReset(t *testing.T) {
	s := New(1)
	_ = s.Append(models.Frame{"#111"})
	s.Reset(5)
	if s.Len() != 0 || s.Cap() != 5 {
		t.Fatalf("after Reset: len=%d cap=%d", s.Len(), s.Cap())
	}
}

func TestSnapshot(t *testing.T) {
	s := New(2)
	if _, err := s.Snapshot(); !errors.Is(err, ErrEmptyStore) {
		t.Fatalf("Snapshot() on empty store = %v, want ErrEmptyStore", err)
	}
	_ = s.Append(models.Frame{"#111"})
	frames, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	frames[0] = models.Frame{"#fff"}
	if s.At(0)[0] != "#111" {
		t.Fatal("Snapshot must not alias the store")
	}
}
