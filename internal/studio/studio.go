// Package studio runs a complete recording: it opens the capture source,
// records a session, optionally replays it, compiles the stylesheet and
// persists the result.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bdougie/boxshadow/internal/compiler"
	"github.com/bdougie/boxshadow/internal/config"
	"github.com/bdougie/boxshadow/internal/extractor"
	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/sampler"
	"github.com/bdougie/boxshadow/internal/scheduler"
	"github.com/bdougie/boxshadow/internal/storage"
)

// ErrCancelled is returned when a recording is stopped before it finished.
var ErrCancelled = errors.New("recording cancelled")

// Options tweaks a single recording run.
type Options struct {
	Name        string
	Replay      bool   // replay the captured frames before compiling
	PreviewPath string // write the last preview surface as PNG when set

	LiveSink   scheduler.StyleSink
	ReplaySink scheduler.StyleSink
	Ticks      scheduler.TickSource
}

// Processor records sources into stored captures
type Processor struct {
	cfg     *config.Config
	storage storage.Storage
	logger  *slog.Logger
}

func NewProcessor(cfg *config.Config, store storage.Storage, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:     cfg,
		storage: store,
		logger:  logger,
	}
}

// ProcessSource acquires src and records one capture from it
func (p *Processor) ProcessSource(ctx context.Context, src extractor.Source, opts Options) (*models.Capture, error) {
	if err := src.Acquire(ctx); err != nil {
		return nil, err
	}
	defer src.Close()

	geometry := p.cfg.Geometry()
	sched := scheduler.New(scheduler.Options{
		Source:   src,
		Surface:  sampler.NewSurface(p.cfg.Size),
		Sampler:  sampler.New(p.cfg.PixelSize, p.cfg.LessColors),
		Geometry: geometry,
		Timing: scheduler.Timing{
			Live:              p.cfg.Capture.LiveInterval,
			Capture:           p.cfg.Capture.Interval,
			Replay:            p.cfg.Capture.ReplayInterval,
			CountdownTicks:    p.cfg.Capture.CountdownTicks,
			CountdownInterval: p.cfg.Capture.CountdownInterval,
		},
		Ticks:      opts.Ticks,
		LiveSink:   opts.LiveSink,
		ReplaySink: opts.ReplaySink,
		Logger:     p.logger,
	})
	defer sched.Close()

	sched.StartLive(ctx)

	frames, err := p.record(ctx, sched, opts)
	if err != nil {
		return nil, err
	}

	doc, err := compiler.Compile(ctx, frames, geometry, compiler.Options{
		Steps:    p.cfg.Animation.Steps,
		Duration: p.cfg.Animation.Duration,
		Logger:   p.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile animation: %w", err)
	}

	capture := &models.Capture{
		Name:     opts.Name,
		Geometry: geometry,
		Frames:   frames,
		CSS:      doc.CSS(),
	}
	id, err := p.storage.SaveCapture(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("failed to save capture: %w", err)
	}
	p.logger.Info("capture saved", "id", id, "name", opts.Name, "frames", len(frames))
	return capture, nil
}

// record runs the capture session and the optional replay, then hands back
// the recorded frames.
func (p *Processor) record(ctx context.Context, sched *scheduler.Scheduler, opts Options) ([]models.Frame, error) {
	captured, err := sched.StartCapture(ctx, p.cfg.Capture.Repetitions)
	if err != nil {
		return nil, err
	}
	res := <-captured
	if res.Reason == scheduler.StopCancelled {
		return nil, fmt.Errorf("%w after %d frames", ErrCancelled, res.Frames)
	}
	if res.Reason == scheduler.StopDropped {
		p.logger.Warn("source missed capture ticks", "frames", res.Frames, "target", p.cfg.Capture.Repetitions)
	}

	if opts.PreviewPath != "" {
		if err := p.writePreview(sched, opts.PreviewPath); err != nil {
			return nil, err
		}
	}

	if opts.Replay {
		replayed, err := sched.StartReplay(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start replay: %w", err)
		}
		<-replayed
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w during replay: %v", ErrCancelled, ctx.Err())
		}
	}

	return sched.Frames()
}

func (p *Processor) writePreview(sched *scheduler.Scheduler, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file '%s': %w", path, err)
	}
	defer file.Close()

	if err := sched.WritePreview(file); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	p.logger.Debug("preview written", "path", path)
	return nil
}
