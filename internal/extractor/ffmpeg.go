package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// FFmpegSource decodes a video file or capture device with ffmpeg into raw
// RGBA frames of Size x Size. A background reader keeps only the newest
// frame, so slow consumers see the live picture rather than a backlog.
type FFmpegSource struct {
	Input  string
	Format string // ffmpeg input format, e.g. "v4l2"; empty for files
	Size   int
	Loop   bool // restart files at EOF

	cmd    *exec.Cmd
	stderr bytes.Buffer

	mu     sync.Mutex
	latest *image.RGBA
	err    error
	ready  chan struct{}
	once   sync.Once
}

func (s *FFmpegSource) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.Format != "" {
		args = append(args, "-f", s.Format)
	} else {
		// Files play at their own frame rate, like a video element.
		args = append(args, "-re")
		if s.Loop {
			args = append(args, "-stream_loop", "-1")
		}
	}
	size := strconv.Itoa(s.Size)
	return append(args,
		"-i", s.Input,
		"-vf", "scale="+size+":"+size,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
}

// Acquire starts ffmpeg and waits for the first frame.
func (s *FFmpegSource) Acquire(ctx context.Context) error {
	if s.Format == "" {
		if _, err := os.Stat(s.Input); os.IsNotExist(err) {
			return fmt.Errorf("video file does not exist at path: '%s': %w", s.Input, ErrAcquisition)
		}
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: %v: %w", err, ErrAcquisition)
	}

	s.cmd = exec.CommandContext(ctx, "ffmpeg", s.args()...)
	s.cmd.Stderr = &s.stderr
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg pipe: %v: %w", err, ErrAcquisition)
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %v: %w", err, ErrAcquisition)
	}

	s.ready = make(chan struct{})
	go s.read(stdout)

	select {
	case <-s.ready:
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}

	s.mu.Lock()
	got, readErr := s.latest != nil, s.err
	s.mu.Unlock()
	if got {
		return nil
	}

	waitErr := s.cmd.Wait()
	s.cmd = nil
	return fmt.Errorf("ffmpeg produced no frames: %v (%v)\nOutput: %s: %w", readErr, waitErr, s.stderr.String(), ErrAcquisition)
}

// read copies frames out of the pipe until it closes.
func (s *FFmpegSource) read(r io.Reader) {
	frameLen := s.Size * s.Size * 4
	for {
		buf := image.NewRGBA(image.Rect(0, 0, s.Size, s.Size))
		if _, err := io.ReadFull(r, buf.Pix[:frameLen]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.once.Do(func() { close(s.ready) })
			return
		}
		s.mu.Lock()
		s.latest = buf
		s.mu.Unlock()
		s.once.Do(func() { close(s.ready) })
	}
}

// Next returns the newest decoded frame. Once the stream has ended it keeps
// returning the last frame together with no error, so a finished file
// freezes on its final picture.
func (s *FFmpegSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		if s.err != nil {
			return nil, s.err
		}
		return nil, fmt.Errorf("no frame decoded yet from '%s'", s.Input)
	}
	return s.latest, nil
}

// Close stops ffmpeg.
func (s *FFmpegSource) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	_ = s.cmd.Process.Kill()
	err := s.cmd.Wait()
	s.cmd = nil
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
