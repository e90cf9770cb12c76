// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package frame implements the frame loop: it acquires a
// swapchain image, records a frame for it, submits the
// commands and presents the result, while keeping a bounded
// number of frames in flight and recreating the swapchain
// when it becomes stale.
package frame

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/internal/logging"
	"github.com/gviegas/vkframe/swapchain"
)

// SetLogger sets the logger used by the frame loop and the
// swapchain. By default, nothing is logged.
// Passing nil restores the default.
//
// Levels used:
//   - slog.LevelDebug: swapchain recreation
//   - slog.LevelInfo: lifecycle events
//   - slog.LevelWarn: fence timeouts
func SetLogger(l *slog.Logger) { logging.Set(l) }

// Logger returns the current logger.
func Logger() *slog.Logger { return logging.Get() }

// Window is the interface that the window presented to
// must implement.
type Window interface {
	swapchain.Surface

	// Resized reports whether the framebuffer was resized
	// since the last call.
	Resized() bool
}

// PipelineFunc creates the graphics pipeline used to
// draw into pass.
type PipelineFunc func(pass driver.RenderPass) (driver.Pipeline, error)

// Deps are the collaborators of a Loop.
type Deps struct {
	GPU       driver.GPU
	Presenter driver.Presenter
	Window    Window
	// Pipeline is called once, after the render pass is
	// created. The Loop takes ownership of the pipeline.
	// It must not be nil.
	Pipeline PipelineFunc
	// Logger, if nil, defaults to Logger().
	Logger *slog.Logger
}

// State is the state of a Loop.
type State int

// Loop states.
const (
	Idle State = iota
	Acquiring
	Recording
	Submitting
	Presenting
	Recreating
	Dead
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Acquiring:
		return "Acquiring"
	case Recording:
		return "Recording"
	case Submitting:
		return "Submitting"
	case Presenting:
		return "Presenting"
	case Recreating:
		return "Recreating"
	case Dead:
		return "Dead"
	}
	return "State(?)"
}

// Result is the outcome of Loop.RenderFrame.
type Result int

// Frame results.
const (
	// The frame was presented.
	Ok Result = iota
	// The swapchain was stale and has been recreated.
	// No frame was rendered.
	Skipped
	// The slot's previous frame did not complete in time.
	// No frame was rendered.
	TimedOut
	// The frame was presented, but the draw function
	// failed. Only the clear is visible.
	Incomplete
	// An unrecoverable error occurred.
	Fatal
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case Skipped:
		return "Skipped"
	case TimedOut:
		return "TimedOut"
	case Incomplete:
		return "Incomplete"
	case Fatal:
		return "Fatal"
	}
	return "Result(?)"
}

// Stats are frame loop counters.
type Stats struct {
	Rendered    uint64
	Skipped     uint64
	Recreations uint64
	Timeouts    uint64
}

// Loop is the frame loop controller.
// It must be used from a single goroutine.
type Loop struct {
	cfg Config
	gpu driver.GPU
	win Window
	log *slog.Logger
	rec Recorder

	sc   *swapchain.Swapchain
	pass driver.RenderPass
	pl   driver.Pipeline

	// Indexed by slot.
	syncs []*Sync
	cbs   []driver.CmdBuffer

	slot     int
	state    State
	recreate bool
	stats    Stats
}

// ErrNoPipeline means that Deps.Pipeline is nil.
var ErrNoPipeline = errors.New("frame: no pipeline function")

// New creates the swapchain, render pass, pipeline and
// per-slot resources, and returns a Loop ready to render.
// cfg may be nil, in which case DefaultConfig is used.
func New(cfg *Config, deps *Deps) (l *Loop, err error) {
	if deps.Pipeline == nil {
		return nil, ErrNoPipeline
	}
	l = &Loop{
		gpu: deps.GPU,
		win: deps.Window,
		log: logging.Or(deps.Logger),
	}
	if cfg == nil {
		l.cfg = DefaultConfig()
	} else {
		l.cfg = *cfg
		l.cfg.validate()
	}
	l.rec.Clear = l.cfg.ClearColor

	defer func() {
		if err != nil {
			l.destroy()
			l = nil
		}
	}()
	if l.sc, err = swapchain.New(deps.GPU, deps.Presenter, deps.Window, l.log); err != nil {
		return
	}
	if l.pass, err = l.gpu.NewRenderPass(l.sc.Format().Format); err != nil {
		err = errors.Wrap(err, "frame: create render pass")
		return
	}
	if err = l.sc.SetRenderPass(l.pass); err != nil {
		return
	}
	if l.pl, err = deps.Pipeline(l.pass); err != nil {
		err = errors.Wrap(err, "frame: create pipeline")
		return
	}
	if l.pl == nil {
		err = ErrNoPipeline
		return
	}
	if err = l.resize(); err != nil {
		return
	}
	l.log.Info("frame loop initialized",
		"framesInFlight", len(l.syncs),
		"images", l.sc.ImageCount())
	return
}

// framesInFlight returns the number of slots that the
// current swapchain allows.
func (l *Loop) framesInFlight() int {
	return max(1, min(l.cfg.FramesInFlight, l.sc.ImageCount()))
}

// resize adjusts the number of slots to framesInFlight.
// The device must be idle if slots are removed.
func (l *Loop) resize() error {
	n := l.framesInFlight()
	if n == len(l.syncs) {
		return nil
	}
	for len(l.syncs) > n {
		i := len(l.syncs) - 1
		l.syncs[i].Destroy()
		l.cbs[i].Destroy()
		l.syncs = l.syncs[:i]
		l.cbs = l.cbs[:i]
	}
	for len(l.syncs) < n {
		s, err := NewSync(l.gpu)
		if err != nil {
			return err
		}
		cb, err := l.gpu.NewCmdBuffer()
		if err != nil {
			s.Destroy()
			return errors.Wrap(err, "frame: create command buffer")
		}
		l.syncs = append(l.syncs, s)
		l.cbs = append(l.cbs, cb)
	}
	l.slot = 0
	return nil
}

// RenderFrame renders one frame using draw to record the
// draw commands.
//
// Stale swapchains are recreated before returning Skipped,
// and never produce an error. A fence wait that times out
// returns TimedOut along with an error wrapping
// driver.ErrTimeout; the frame can be retried. If draw
// fails, the frame is still presented and Incomplete is
// returned along with a *DrawError. Any other
// error is returned with Fatal and wraps either
// driver.ErrDeviceLost or driver.ErrSubmission, in which
// case the Loop must only be shut down.
func (l *Loop) RenderFrame(draw DrawFunc) (Result, error) {
	if l.state == Dead {
		return Fatal, errors.Wrap(driver.ErrDeviceLost, "frame: loop is dead")
	}
	if l.recreate || l.win.Resized() {
		if err := l.Recreate(); err != nil {
			return l.fatal(deviceErr(err))
		}
	}

	sync := l.syncs[l.slot]
	cb := l.cbs[l.slot]

	l.state = Acquiring
	if err := sync.Wait(l.cfg.FenceTimeout, l.cfg.MaxTimeouts); err != nil {
		if errors.Is(err, driver.ErrTimeout) {
			l.state = Idle
			l.stats.Timeouts++
			l.log.Warn("frame: fence timeout", "slot", l.slot, "err", err)
			return TimedOut, err
		}
		return l.fatal(deviceErr(err))
	}
	acq := l.sc.Acquire(sync.ImageAvailable)
	switch acq.Status {
	case swapchain.Stale:
		// The fence is still signaled, so the next wait on
		// this slot will not block.
		l.stats.Skipped++
		if err := l.Recreate(); err != nil {
			return l.fatal(deviceErr(err))
		}
		if acq.Signaled && sync.ImageAvailable != nil {
			if err := sync.RenewImageAvailable(); err != nil {
				return l.fatal(deviceErr(err))
			}
		}
		return Skipped, nil
	case swapchain.Failed:
		return l.fatal(errors.Wrap(deviceErr(acq.Err), "frame: acquire"))
	}
	if err := sync.Reset(); err != nil {
		return l.fatal(deviceErr(err))
	}

	l.state = Recording
	if err := cb.Reset(); err != nil {
		return l.fatal(deviceErr(err))
	}
	tgt := Target{
		Pass:     l.pass,
		Framebuf: l.sc.Framebuf(acq.Index),
		Extent:   l.sc.Extent(),
		Pipeline: l.pl,
	}
	var drawErr error
	if err := l.rec.Record(cb, &tgt, draw); err != nil {
		var de *DrawError
		if !errors.As(err, &de) {
			return l.fatal(deviceErr(err))
		}
		// The recording is closed, so the frame can still be
		// submitted and presented with only the clear.
		drawErr = err
	}

	l.state = Submitting
	if err := l.gpu.Submit(cb, sync.ImageAvailable, driver.SColorOutput, sync.RenderFinished, sync.InFlight); err != nil {
		return l.fatal(submitErr(err))
	}

	l.state = Presenting
	stale, err := l.sc.Present(acq.Index, sync.RenderFinished)
	if err != nil {
		return l.fatal(deviceErr(err))
	}
	if stale {
		l.recreate = true
	}

	l.slot = (l.slot + 1) % len(l.syncs)
	l.state = Idle
	if drawErr != nil {
		return Incomplete, drawErr
	}
	l.stats.Rendered++
	return Ok, nil
}

// Recreate rebuilds the swapchain and its dependents.
// It waits for the device to become idle.
// The number of slots is adjusted if the new swapchain
// has a different number of images.
func (l *Loop) Recreate() error {
	l.state = Recreating
	if err := l.sc.Recreate(); err != nil {
		return err
	}
	if err := l.resize(); err != nil {
		return err
	}
	l.recreate = false
	l.stats.Recreations++
	l.state = Idle
	return nil
}

// fatal marks the loop as dead and returns err.
func (l *Loop) fatal(err error) (Result, error) {
	l.state = Dead
	l.log.Error("frame: fatal error", "err", err)
	return Fatal, err
}

// deviceErr ensures that err wraps either
// driver.ErrDeviceLost or driver.ErrSubmission.
func deviceErr(err error) error {
	if errors.Is(err, driver.ErrDeviceLost) || errors.Is(err, driver.ErrSubmission) {
		return err
	}
	return fmt.Errorf("%w: %w", driver.ErrDeviceLost, err)
}

// submitErr ensures that err wraps either
// driver.ErrDeviceLost or driver.ErrSubmission.
func submitErr(err error) error {
	if errors.Is(err, driver.ErrDeviceLost) || errors.Is(err, driver.ErrSubmission) {
		return err
	}
	return fmt.Errorf("%w: %w", driver.ErrSubmission, err)
}

// Shutdown waits for the device to become idle and then
// destroys everything created by New.
// The Loop must not be used afterwards.
func (l *Loop) Shutdown() {
	if l == nil || l.gpu == nil {
		return
	}
	if err := l.gpu.WaitIdle(); err != nil {
		l.log.Warn("frame: wait idle on shutdown", "err", err)
	}
	l.destroy()
	l.log.Info("frame loop shut down", "rendered", l.stats.Rendered)
}

func (l *Loop) destroy() {
	for i := range l.syncs {
		l.syncs[i].Destroy()
		l.cbs[i].Destroy()
	}
	l.syncs = nil
	l.cbs = nil
	if l.pl != nil {
		l.pl.Destroy()
		l.pl = nil
	}
	if l.sc != nil {
		l.sc.Destroy()
		l.sc = nil
	}
	if l.pass != nil {
		l.pass.Destroy()
		l.pass = nil
	}
	l.state = Dead
}

// Swapchain returns the swapchain.
func (l *Loop) Swapchain() *swapchain.Swapchain { return l.sc }

// FramesInFlight returns the current number of slots.
func (l *Loop) FramesInFlight() int { return len(l.syncs) }

// Slot returns the index of the slot used by the next frame.
func (l *Loop) Slot() int { return l.slot }

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Stats returns the loop counters.
func (l *Loop) Stats() Stats { return l.stats }
