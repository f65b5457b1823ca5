// Package scheduler drives the three tick loops of a recording session: the
// live preview, the timed capture, and the replay of captured frames.
//
// Every tick handler runs under one lock, so handlers never interleave and
// frames land in the store strictly in tick order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bdougie/boxshadow/internal/framestore"
	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/sampler"
	"github.com/bdougie/boxshadow/internal/shadow"
)

var (
	// ErrBusy is returned when a session is requested while another is active.
	ErrBusy = errors.New("scheduler busy")
	// ErrNoTarget is returned when a capture is started with no frames to record.
	ErrNoTarget = errors.New("capture target must be positive")
	// ErrEmptyStore is returned when replaying or compiling with nothing recorded.
	ErrEmptyStore = framestore.ErrEmptyStore
)

// FrameSource hands out the latest picture of the capture source.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
}

// StyleSink receives box-shadow values to display.
type StyleSink interface {
	SetBoxShadow(value string)
}

// StopReason says why a capture session ended.
type StopReason string

const (
	StopFrames    StopReason = "frames"
	StopCountdown StopReason = "countdown"
	StopCancelled StopReason = "cancelled"
	// StopDropped means every capture tick ran but some found no frame.
	StopDropped   StopReason = "dropped"
)

// CaptureResult is delivered once a capture session is back to Idle.
type CaptureResult struct {
	Frames int
	Reason StopReason
}

// Timing holds the tick intervals.
type Timing struct {
	Live              time.Duration
	Capture           time.Duration
	Replay            time.Duration
	CountdownTicks    int
	CountdownInterval time.Duration
}

// Options configures a Scheduler.
type Options struct {
	Source     FrameSource
	Surface    *sampler.Surface
	Sampler    *sampler.Sampler
	Geometry   models.Geometry
	Timing     Timing
	Ticks      TickSource
	LiveSink   StyleSink
	ReplaySink StyleSink
	Logger     *slog.Logger
}

// Scheduler owns the session state machine and the frame store.
type Scheduler struct {
	mu    sync.Mutex
	opts  Options
	state State
	store *framestore.Store

	// gen identifies the current session; ticks from older runs are dropped.
	gen      uint64
	ctx      context.Context // capture session
	liveCtx  context.Context
	session  []Run
	live     Run
	captured chan CaptureResult
	replayed chan struct{}
}

// New creates an idle scheduler.
func New(opts Options) *Scheduler {
	if opts.Ticks == nil {
		opts.Ticks = IntervalTicks{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		opts:    opts,
		state:   Idle{},
		store:   framestore.New(0),
		ctx:     context.Background(),
		liveCtx: context.Background(),
	}
}

// State returns the current session state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartLive begins re-sampling the source at the live interval. Live ticks
// only do work while Idle. It stops when ctx is done or Close is called.
func (s *Scheduler) StartLive(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		return
	}
	s.liveCtx = ctx
	s.live = s.opts.Ticks.RunNTimes(s.liveTick, func(bool) {}, s.opts.Timing.Live, Unbounded)
	live := s.live
	go func() {
		select {
		case <-ctx.Done():
			live.Cancel()
		case <-live.Done():
		}
	}()
}

func (s *Scheduler) liveTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Idle); !ok {
		return
	}
	frame, err := s.sampleLocked(s.liveCtx)
	if err != nil {
		s.opts.Logger.Debug("live sample skipped", "error", err)
		return
	}
	if s.opts.LiveSink != nil {
		s.opts.LiveSink.SetBoxShadow(shadow.EncodeFrame(frame, s.opts.Geometry))
	}
}

// StartCapture clears the store and records up to target frames. The
// session also ends on the countdown tick after it reached zero, whichever
// comes first, so a countdown as long as the capture never cuts it short.
// The returned channel receives exactly one result once the scheduler is
// Idle again.
func (s *Scheduler) StartCapture(ctx context.Context, target int) (<-chan CaptureResult, error) {
	if target <= 0 {
		return nil, ErrNoTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Idle); !ok {
		return nil, fmt.Errorf("cannot capture while %s: %w", s.state, ErrBusy)
	}

	s.gen++
	gen := s.gen
	s.ctx = ctx
	s.store.Reset(target)
	s.captured = make(chan CaptureResult, 1)
	s.state = Capturing{Target: target, Remaining: s.opts.Timing.CountdownTicks}

	t := s.opts.Timing
	record := s.opts.Ticks.RunNTimes(
		func() { s.captureTick(gen) },
		func(active bool) {
			if !active {
				s.endCapture(gen, StopFrames)
			}
		},
		t.Capture, target,
	)
	countdown := s.opts.Ticks.RunNTimes(
		func() { s.countdownTick(gen) },
		func(bool) {},
		t.CountdownInterval, t.CountdownTicks+1,
	)
	s.session = []Run{record, countdown}
	s.opts.Logger.Info("capture started", "target", target, "countdown", t.CountdownTicks)

	s.watchContext(ctx, gen)
	return s.captured, nil
}

func (s *Scheduler) captureTick(gen uint64) {
	s.mu.Lock()
	c, ok := s.state.(Capturing)
	if !ok || gen != s.gen {
		s.mu.Unlock()
		return
	}

	frame, err := s.sampleLocked(s.ctx)
	if err != nil {
		s.opts.Logger.Warn("capture tick without frame", "tick", c.Ticks+1, "error", err)
	} else if err := s.store.Append(frame); err != nil {
		s.opts.Logger.Warn("frame dropped", "error", err)
	}
	c.Ticks++
	s.state = c

	var notify func()
	if c.Ticks >= c.Target {
		notify = s.finishCaptureLocked(StopFrames)
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (s *Scheduler) countdownTick(gen uint64) {
	s.mu.Lock()
	c, ok := s.state.(Capturing)
	if !ok || gen != s.gen {
		s.mu.Unlock()
		return
	}
	var notify func()
	if c.Remaining <= 0 {
		notify = s.finishCaptureLocked(StopCountdown)
	} else {
		c.Remaining--
		s.state = c
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (s *Scheduler) endCapture(gen uint64, reason StopReason) {
	s.mu.Lock()
	var notify func()
	if _, ok := s.state.(Capturing); ok && gen == s.gen {
		notify = s.finishCaptureLocked(reason)
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// finishCaptureLocked moves to Idle and returns the notification to send
// once the lock is released.
func (s *Scheduler) finishCaptureLocked(reason StopReason) func() {
	if c, ok := s.state.(Capturing); ok && reason == StopFrames && s.store.Len() < c.Target {
		reason = StopDropped
	}
	s.cancelSessionLocked()
	s.state = Idle{}
	res := CaptureResult{Frames: s.store.Len(), Reason: reason}
	ch := s.captured
	s.captured = nil
	s.opts.Logger.Info("capture finished", "frames", res.Frames, "reason", reason)
	return func() { ch <- res }
}

// StartReplay shows every stored frame once on the replay sink, one per
// replay tick. The returned channel is closed when replay is over.
func (s *Scheduler) StartReplay(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Idle); !ok {
		return nil, fmt.Errorf("cannot replay while %s: %w", s.state, ErrBusy)
	}
	total := s.store.Len()
	if total == 0 {
		return nil, ErrEmptyStore
	}

	s.gen++
	gen := s.gen
	s.replayed = make(chan struct{})
	s.state = Replaying{Total: total}

	run := s.opts.Ticks.RunNTimes(
		func() { s.replayTick(gen) },
		func(active bool) {
			if !active {
				s.endReplay(gen)
			}
		},
		s.opts.Timing.Replay, total,
	)
	s.session = []Run{run}
	s.opts.Logger.Info("replay started", "frames", total)

	s.watchContext(ctx, gen)
	return s.replayed, nil
}

func (s *Scheduler) replayTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.(Replaying)
	if !ok || gen != s.gen || r.Index >= r.Total {
		return
	}
	if s.opts.ReplaySink != nil {
		s.opts.ReplaySink.SetBoxShadow(shadow.EncodeFrame(s.store.At(r.Index), s.opts.Geometry))
	}
	r.Index++
	s.state = r
	if r.Index >= r.Total {
		s.finishReplayLocked()
	}
}

func (s *Scheduler) endReplay(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Replaying); ok && gen == s.gen {
		s.finishReplayLocked()
	}
}

func (s *Scheduler) finishReplayLocked() {
	s.cancelSessionLocked()
	s.state = Idle{}
	close(s.replayed)
	s.replayed = nil
	s.opts.Logger.Info("replay finished")
}

// Cancel ends the active capture or replay session, if any. A cancelled
// capture keeps every frame recorded so far.
func (s *Scheduler) Cancel() {
	s.cancel(0)
}

func (s *Scheduler) cancel(gen uint64) {
	s.mu.Lock()
	if gen != 0 && gen != s.gen {
		s.mu.Unlock()
		return
	}
	var notify func()
	switch s.state.(type) {
	case Capturing:
		notify = s.finishCaptureLocked(StopCancelled)
	case Replaying:
		s.finishReplayLocked()
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (s *Scheduler) watchContext(ctx context.Context, gen uint64) {
	if ctx.Done() == nil {
		return
	}
	runs := s.session
	go func() {
		select {
		case <-ctx.Done():
			s.cancel(gen)
		case <-allDone(runs):
		}
	}()
}

func allDone(runs []Run) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for _, r := range runs {
			<-r.Done()
		}
		close(done)
	}()
	return done
}

func (s *Scheduler) cancelSessionLocked() {
	for _, r := range s.session {
		r.Cancel()
	}
	s.session = nil
}

// Frames returns the recorded frames. It fails with ErrBusy while a session
// is running and ErrEmptyStore when nothing was recorded.
func (s *Scheduler) Frames() ([]models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Idle); !ok {
		return nil, fmt.Errorf("frames unavailable while %s: %w", s.state, ErrBusy)
	}
	return s.store.Snapshot()
}

// Geometry returns the layout used for encoding.
func (s *Scheduler) Geometry() models.Geometry {
	return s.opts.Geometry
}

// WritePreview encodes the pixelated preview surface as PNG.
func (s *Scheduler) WritePreview(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Surface.EncodePNG(w)
}

// Close cancels every run including the live preview.
func (s *Scheduler) Close() {
	s.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		s.live.Cancel()
		s.live = nil
	}
}

func (s *Scheduler) sampleLocked(ctx context.Context) (models.Frame, error) {
	img, err := s.opts.Source.Next(ctx)
	if err != nil {
		return nil, err
	}
	s.opts.Surface.DrawImage(img)
	return s.opts.Sampler.Sample(s.opts.Surface)
}
