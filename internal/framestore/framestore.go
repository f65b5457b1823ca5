// Package framestore holds the frames recorded during one capture session.
package framestore

import (
	"errors"

	"github.com/bdougie/boxshadow/internal/models"
)

var (
	// ErrFull is returned by Append once Capacity frames are stored.
	ErrFull = errors.New("frame store is full")
	// ErrEmptyStore is returned when frames are requested from an empty store.
	ErrEmptyStore = errors.New("frame store is empty")
)

// Store is an append-only, capacity-bounded list of frames. It is not safe
// for concurrent use; the scheduler serialises access to it.
type Store struct {
	capacity int
	frames   []models.Frame
}

// New creates an empty store holding at most capacity frames.
func New(capacity int) *Store {
	return &Store{capacity: capacity, frames: make([]models.Frame, 0, capacity)}
}

// Append adds a frame to the end of the store.
func (s *Store) Append(f models.Frame) error {
	if len(s.frames) >= s.capacity {
		return ErrFull
	}
	s.frames = append(s.frames, f)
	return nil
}

// Reset empties the store for a new session with the given capacity.
func (s *Store) Reset(capacity int) {
	s.capacity = capacity
	s.frames = make([]models.Frame, 0, capacity)
}

// Len returns the number of stored frames.
func (s *Store) Len() int { return len(s.frames) }

// Cap returns the configured capacity.
func (s *Store) Cap() int { return s.capacity }

// Full reports whether no more frames can be appended.
func (s *Store) Full() bool { return len(s.frames) >= s.capacity }

// At returns frame i. It panics if i is out of range, like a slice index.
func (s *Store) At(i int) models.Frame { return s.frames[i] }

// Frames returns a copy of the frame list.
func (s *Store) Frames() []models.Frame {
	out := make([]models.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Snapshot returns the frames or ErrEmptyStore when nothing was recorded.
func (s *Store) Snapshot() ([]models.Frame, error) {
	if len(s.frames) == 0 {
		return nil, ErrEmptyStore
	}
	return s.Frames(), nil
}
