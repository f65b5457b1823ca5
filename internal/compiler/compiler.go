// Package compiler turns recorded frames into a looping CSS animation.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/shadow"
)

const (
	defaultSteps    = 100
	defaultDuration = 10 * time.Second
	maxWorkers      = 4

	// AnimationName is the @keyframes identifier in the stylesheet.
	AnimationName = "anim-shadow"
)

// ErrEmptyStore is returned when there are no frames to compile.
var ErrEmptyStore = errors.New("no frames to compile")

// Options controls the timeline of the compiled animation.
type Options struct {
	Steps    int           // keyframes in the timeline, at most 100
	Duration time.Duration // length of one loop
	Logger   *slog.Logger
}

// Keyframe binds a timeline percentage to a frame variable.
type Keyframe struct {
	Percent int
	Frame   int
}

// Document is a compiled animation.
type Document struct {
	Geometry  models.Geometry
	Variables []string // shadow list per frame index
	Keyframes []Keyframe
	Duration  time.Duration
	Steps     int
}

// VariableName returns the custom property holding frame i.
func VariableName(i int) string {
	return fmt.Sprintf("--bxs-frame-%d", i)
}

// Compile encodes every frame and spreads them over a fixed number of
// steps. Step s shows frame floor(s*R/T) at floor(s*100/T) percent, so
// with R != T frames are repeated or skipped.
//
// Both are computed in integers. The float form floor(s/T*100) rounds some
// steps down onto the previous percentage (step 29 of 100 lands on 28),
// which would give two keyframes the same selector; integer division keeps
// every percentage strictly increasing.
func Compile(ctx context.Context, frames []models.Frame, g models.Geometry, opts Options) (*Document, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyStore
	}
	if opts.Steps <= 0 {
		opts.Steps = defaultSteps
	}
	if opts.Steps > 100 {
		return nil, fmt.Errorf("steps %d exceeds 100 percent resolution", opts.Steps)
	}
	if opts.Duration <= 0 {
		opts.Duration = defaultDuration
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	vars, err := encodeFrames(ctx, frames, g, opts.Logger)
	if err != nil {
		return nil, err
	}

	r, t := len(frames), opts.Steps
	keyframes := make([]Keyframe, t)
	for s := 0; s < t; s++ {
		keyframes[s] = Keyframe{Percent: s * 100 / t, Frame: s * r / t}
	}

	return &Document{
		Geometry:  g,
		Variables: vars,
		Keyframes: keyframes,
		Duration:  opts.Duration,
		Steps:     t,
	}, nil
}

// encodeFrames runs the shadow encoder over a small worker pool. Each
// worker writes only its own slots of the result slice.
func encodeFrames(ctx context.Context, frames []models.Frame, g models.Geometry, logger *slog.Logger) ([]string, error) {
	out := make([]string, len(frames))
	work := make(chan int, len(frames))
	for i := range frames {
		work <- i
	}
	close(work)

	remaining := atomic.Int64{}
	remaining.Store(int64(len(frames)))

	workers := min(maxWorkers, len(frames))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					return
				}
				out[i] = shadow.EncodeFrame(frames[i], g)
				left := remaining.Add(-1)
				logger.Debug("frame encoded", "frame", i, "remaining", left)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compile interrupted: %w", err)
	}
	return out, nil
}

// CSS renders the document as a self-contained stylesheet.
func (d *Document) CSS() string {
	var b strings.Builder
	size := d.Geometry.ContainerSize

	b.WriteString("\n:root {\n")
	fmt.Fprintf(&b, "  --size: %dpx;\n", d.Geometry.BlockSize)
	b.WriteString("  --offset: 0px;\n")
	for i, v := range d.Variables {
		fmt.Fprintf(&b, "  %s: %s;\n", VariableName(i), v)
	}
	b.WriteString("}\n")

	fmt.Fprintf(&b, "div.bxs-video-container {\n  width: %dpx;\n  height: %dpx;\n  overflow: hidden;\n}\n", size, size)

	b.WriteString("div.bxs-video {\n")
	fmt.Fprintf(&b, "  width: %dpx;\n  height: %dpx;\n", size, size)
	fmt.Fprintf(&b, "  animation: %s %ss steps(%d, end) infinite;\n", AnimationName, seconds(d.Duration), d.Steps)
	fmt.Fprintf(&b, "  box-shadow: var(%s);\n", VariableName(0))
	b.WriteString("  will-change: box-shadow;\n}\n")

	fmt.Fprintf(&b, "@keyframes %s {\n", AnimationName)
	for _, k := range d.Keyframes {
		fmt.Fprintf(&b, "  %d%% {box-shadow: var(%s)}\n", k.Percent, VariableName(k.Frame))
	}
	b.WriteString("}\n")
	return b.String()
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
