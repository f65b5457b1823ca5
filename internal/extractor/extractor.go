// Package extractor provides capture sources: live video through ffmpeg and
// still images from disk.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp" // register decoder
)

// ErrAcquisition is returned when a capture source cannot be opened.
var ErrAcquisition = errors.New("capture source unavailable")

// Source is a capture device or file that can be polled for its latest picture.
type Source interface {
	// Acquire opens the source. It either succeeds or fails with an error
	// wrapping ErrAcquisition.
	Acquire(ctx context.Context) error
	// Next returns the most recent picture.
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Open picks a source for input: still images are decoded from disk,
// /dev/video* devices and everything else go through ffmpeg.
func Open(input string, size int) Source {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return &ImageSource{Path: input}
	}
	src := &FFmpegSource{Input: input, Size: size}
	if strings.HasPrefix(input, "/dev/video") {
		src.Format = "v4l2"
	} else {
		src.Loop = true
	}
	return src
}

// ImageSource serves a single still image on every tick.
type ImageSource struct {
	Path string
	img  image.Image
}

// Acquire decodes the image.
func (s *ImageSource) Acquire(ctx context.Context) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("failed to open image '%s': %v: %w", s.Path, err, ErrAcquisition)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image '%s': %v: %w", s.Path, err, ErrAcquisition)
	}
	s.img = img
	return nil
}

// Next returns the decoded image.
func (s *ImageSource) Next(ctx context.Context) (image.Image, error) {
	if s.img == nil {
		return nil, fmt.Errorf("image '%s' not acquired: %w", s.Path, ErrAcquisition)
	}
	return s.img, nil
}

// Close is a no-op.
func (s *ImageSource) Close() error { return nil }
