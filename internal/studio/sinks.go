package studio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LogSink reports each displayed value on a logger.
type LogSink struct {
	Logger *slog.Logger
	Label  string
}

func (s LogSink) SetBoxShadow(value string) {
	s.Logger.Debug("box-shadow", "sink", s.Label, "bytes", len(value))
}

// WriterSink writes every value as one "box-shadow: ...;" line.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
	n  int
}

func (s *WriterSink) SetBoxShadow(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.W, "/* %d */ box-shadow: %s;\n", s.n, value)
	s.n++
}

// Count returns the number of values written.
func (s *WriterSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
