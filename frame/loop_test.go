// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"errors"
	"testing"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/internal/fakegpu"
	"github.com/gviegas/vkframe/swapchain"
)

type window struct {
	w, h    int
	resized bool
	waits   int
	// restore is applied on the first WaitEvents call.
	restore *[2]int
}

func (w *window) FramebufferSize() (int, int) { return w.w, w.h }

func (w *window) WaitEvents() {
	w.waits++
	if w.restore != nil {
		w.w, w.h = w.restore[0], w.restore[1]
		w.restore = nil
	}
}

func (w *window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

func newGPU(minImages, maxImages int) *fakegpu.GPU {
	return fakegpu.New(driver.SurfaceCaps{
		MinImages: minImages,
		MaxImages: maxImages,
		Current:   driver.Extent{driver.UndefinedExtent, driver.UndefinedExtent},
		MinExtent: driver.Extent{1, 1},
		MaxExtent: driver.Extent{4096, 4096},
	})
}

func newLoop(t *testing.T, g *fakegpu.GPU, win *window, cfg *Config) *Loop {
	t.Helper()
	l, err := New(cfg, &Deps{
		GPU:       g,
		Presenter: g,
		Window:    win,
		Pipeline: func(pass driver.RenderPass) (driver.Pipeline, error) {
			return g.NewPipeline(&driver.GraphState{Pass: pass})
		},
	})
	if err != nil {
		t.Fatalf("frame.New: unexpected error: %v", err)
	}
	return l
}

func drawTriangle(cb driver.CmdBuffer) error {
	cb.Draw(3, 1, 0, 0)
	return nil
}

func checkViolations(t *testing.T, g *fakegpu.GPU) {
	t.Helper()
	if len(g.Violations) != 0 {
		t.Fatalf("fakegpu violations:\n%v", g.Violations)
	}
}

func checkShutdown(t *testing.T, g *fakegpu.GPU, l *Loop) {
	t.Helper()
	l.Shutdown()
	if n := g.LiveTotal(); n != 0 {
		t.Fatalf("live objects after Loop.Shutdown:\nhave %d\nwant 0", n)
	}
	checkViolations(t, g)
}

func render(t *testing.T, l *Loop, want Result) {
	t.Helper()
	res, err := l.RenderFrame(drawTriangle)
	if res != want {
		t.Fatalf("Loop.RenderFrame:\nhave %v (%v)\nwant %v", res, err, want)
	}
}

func TestLoop(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	if n := l.FramesInFlight(); n != 2 {
		t.Fatalf("Loop.FramesInFlight:\nhave %d\nwant 2", n)
	}
	if s := l.State(); s != Idle {
		t.Fatalf("Loop.State:\nhave %v\nwant %v", s, Idle)
	}

	const frames = 6
	for i := range frames {
		if s := l.Slot(); s != i%2 {
			t.Fatalf("Loop.Slot (frame %d):\nhave %d\nwant %d", i, s, i%2)
		}
		render(t, l, Ok)
	}
	if g.Submits != frames || g.Presents != frames {
		t.Fatalf("submissions/presentations:\nhave %d/%d\nwant %d/%d", g.Submits, g.Presents, frames, frames)
	}
	// Each slot's fence is waited on exactly once per use.
	for i, s := range l.syncs {
		if n := s.InFlight.(*fakegpu.Fence).Waits; n != frames/2 {
			t.Fatalf("Fence.Wait calls (slot %d):\nhave %d\nwant %d", i, n, frames/2)
		}
	}
	st := l.Stats()
	if st.Rendered != frames || st.Skipped != 0 || st.Recreations != 0 {
		t.Fatalf("Loop.Stats:\nhave %+v\nwant %d rendered", st, frames)
	}
	checkShutdown(t, g, l)
}

func TestLoopFrameOrder(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 32, h: 16}, nil)
	g.ClearEvents()
	render(t, l, Ok)
	want := []string{
		"Next 0",
		"Reset",
		"Begin",
		"BeginPass [0 0 0 1]",
		"SetPipeline",
		"SetViewport 32x16",
		"SetScissor 32x16",
		"Draw 3",
		"EndPass",
		"End",
		"Submit",
		"Present 0",
	}
	if len(g.Events) != len(want) {
		t.Fatalf("events:\nhave %v\nwant %v", g.Events, want)
	}
	for i := range want {
		if g.Events[i] != want[i] {
			t.Fatalf("events:\nhave %v\nwant %v", g.Events, want)
		}
	}
	checkShutdown(t, g, l)
}

func TestLoopFramesInFlight(t *testing.T) {
	for _, x := range [...]struct {
		minImg, maxImg int
		frames         int
		want           int
	}{
		{2, 0, 2, 2},
		{2, 0, 3, 3},
		{1, 2, 3, 2},
		{0, 1, 2, 1},
		{0, 0, 1, 1},
		{2, 0, 0, dflFramesInFlight},
		{4, 0, 4, 4},
		{6, 0, 5, 5},
		{6, 0, 8, 7},
		{2, 0, -1, dflFramesInFlight},
	} {
		g := newGPU(x.minImg, x.maxImg)
		cfg := DefaultConfig()
		cfg.FramesInFlight = x.frames
		l := newLoop(t, g, &window{w: 100, h: 100}, &cfg)
		if n := l.FramesInFlight(); n != x.want {
			t.Fatalf("Loop.FramesInFlight (images [%d, %d], config %d):\nhave %d\nwant %d",
				x.minImg, x.maxImg, x.frames, n, x.want)
		}
		if n := g.Live("fence"); n != x.want {
			t.Fatalf("live fences:\nhave %d\nwant %d", n, x.want)
		}
		for range 2*x.want + 1 {
			render(t, l, Ok)
		}
		checkShutdown(t, g, l)
	}
}

func TestLoopStaleAcquire(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	g.StaleNext = 1
	res, err := l.RenderFrame(drawTriangle)
	if res != Skipped || err != nil {
		t.Fatalf("Loop.RenderFrame:\nhave %v, %v\nwant %v, nil", res, err, Skipped)
	}
	if g.Submits != 0 || g.Presents != 0 {
		t.Fatalf("submissions/presentations after stale acquire:\nhave %d/%d\nwant 0/0", g.Submits, g.Presents)
	}
	if gen := l.Swapchain().Generation(); gen != 1 {
		t.Fatalf("Swapchain.Generation:\nhave %d\nwant 1", gen)
	}
	if st := l.Stats(); st.Skipped != 1 || st.Recreations != 1 {
		t.Fatalf("Loop.Stats:\nhave %+v\nwant 1 skipped, 1 recreation", st)
	}
	render(t, l, Ok)
	render(t, l, Ok)
	checkShutdown(t, g, l)
}

func TestLoopSuboptimalAcquire(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	sems := g.Live("sem")
	g.SuboptimalNext = 1
	render(t, l, Skipped)
	if g.Submits != 0 || g.Presents != 0 {
		t.Fatalf("submissions/presentations after suboptimal acquire:\nhave %d/%d\nwant 0/0", g.Submits, g.Presents)
	}
	if n := g.Live("sem"); n != sems {
		t.Fatalf("live semaphores:\nhave %d\nwant %d", n, sems)
	}
	// The slot's image-available semaphore must be usable
	// for the next acquisition.
	for range 4 {
		render(t, l, Ok)
	}
	checkShutdown(t, g, l)
}

func TestLoopStalePresent(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	g.StalePresent = 1
	render(t, l, Ok)
	if g.Presents != 1 {
		t.Fatalf("presentations:\nhave %d\nwant 1", g.Presents)
	}
	if gen := l.Swapchain().Generation(); gen != 0 {
		t.Fatalf("Swapchain.Generation (before next frame):\nhave %d\nwant 0", gen)
	}
	render(t, l, Ok)
	if gen := l.Swapchain().Generation(); gen != 1 {
		t.Fatalf("Swapchain.Generation (after next frame):\nhave %d\nwant 1", gen)
	}
	if g.Presents != 2 {
		t.Fatalf("presentations:\nhave %d\nwant 2", g.Presents)
	}
	checkShutdown(t, g, l)
}

func TestLoopResized(t *testing.T) {
	g := newGPU(2, 0)
	win := &window{w: 640, h: 480}
	l := newLoop(t, g, win, nil)
	render(t, l, Ok)
	win.w, win.h = 1024, 768
	win.resized = true
	render(t, l, Ok)
	if e := l.Swapchain().Extent(); e != (driver.Extent{1024, 768}) {
		t.Fatalf("Swapchain.Extent:\nhave %v\nwant {1024 768}", e)
	}
	if gen := l.Swapchain().Generation(); gen != 1 {
		t.Fatalf("Swapchain.Generation:\nhave %d\nwant 1", gen)
	}
	fb := l.Swapchain().Framebuf(0).(*fakegpu.Framebuf)
	if fb.Width != 1024 || fb.Height != 768 {
		t.Fatalf("Framebuf:\nhave %dx%d\nwant 1024x768", fb.Width, fb.Height)
	}
	checkShutdown(t, g, l)
}

func TestLoopRecreate(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	render(t, l, Ok)
	if l.Slot() != 1 {
		t.Fatalf("Loop.Slot:\nhave %d\nwant 1", l.Slot())
	}

	// A swapchain with a single image allows a single
	// frame in flight.
	g.Caps.MinImages = 0
	if err := l.Recreate(); err != nil {
		t.Fatalf("Loop.Recreate: unexpected error: %v", err)
	}
	if n := l.FramesInFlight(); n != 1 {
		t.Fatalf("Loop.FramesInFlight:\nhave %d\nwant 1", n)
	}
	if l.Slot() != 0 {
		t.Fatalf("Loop.Slot:\nhave %d\nwant 0", l.Slot())
	}
	if n := g.Live("fence"); n != 1 {
		t.Fatalf("live fences:\nhave %d\nwant 1", n)
	}
	for range 3 {
		render(t, l, Ok)
	}

	g.Caps.MinImages = 2
	if err := l.Recreate(); err != nil {
		t.Fatalf("Loop.Recreate: unexpected error: %v", err)
	}
	if n := l.FramesInFlight(); n != 2 {
		t.Fatalf("Loop.FramesInFlight:\nhave %d\nwant 2", n)
	}
	for range 3 {
		render(t, l, Ok)
	}
	if st := l.Stats(); st.Recreations != 2 {
		t.Fatalf("Loop.Stats.Recreations:\nhave %d\nwant 2", st.Recreations)
	}
	checkShutdown(t, g, l)
}

func TestLoopTimeout(t *testing.T) {
	g := newGPU(2, 0)
	cfg := DefaultConfig()
	cfg.MaxTimeouts = 2
	l := newLoop(t, g, &window{w: 640, h: 480}, &cfg)

	g.Stall = 2
	for i := range 2 {
		res, err := l.RenderFrame(drawTriangle)
		if res != TimedOut || !errors.Is(err, driver.ErrTimeout) {
			t.Fatalf("Loop.RenderFrame (timeout %d):\nhave %v, %v\nwant %v, %v", i+1, res, err, TimedOut, driver.ErrTimeout)
		}
		if l.Slot() != 0 || l.State() != Idle {
			t.Fatalf("Loop after timeout:\nhave slot %d, %v\nwant slot 0, %v", l.Slot(), l.State(), Idle)
		}
	}
	if g.Submits != 0 {
		t.Fatalf("submissions after timeouts:\nhave %d\nwant 0", g.Submits)
	}
	render(t, l, Ok)

	g.Stall = 3
	render(t, l, TimedOut)
	render(t, l, TimedOut)
	res, err := l.RenderFrame(drawTriangle)
	if res != Fatal || !errors.Is(err, driver.ErrDeviceLost) {
		t.Fatalf("Loop.RenderFrame (escalation):\nhave %v, %v\nwant %v, %v", res, err, Fatal, driver.ErrDeviceLost)
	}
	if s := l.State(); s != Dead {
		t.Fatalf("Loop.State:\nhave %v\nwant %v", s, Dead)
	}
	if res, _ := l.RenderFrame(drawTriangle); res != Fatal {
		t.Fatalf("Loop.RenderFrame (dead):\nhave %v\nwant %v", res, Fatal)
	}
	if st := l.Stats(); st.Timeouts != 4 {
		t.Fatalf("Loop.Stats.Timeouts:\nhave %d\nwant 4", st.Timeouts)
	}
	checkShutdown(t, g, l)
}

func TestLoopSubmitError(t *testing.T) {
	for _, x := range [...]struct {
		err  error
		want error
	}{
		{errSubmit, driver.ErrSubmission},
		{driver.ErrDeviceLost, driver.ErrDeviceLost},
	} {
		g := newGPU(2, 0)
		l := newLoop(t, g, &window{w: 640, h: 480}, nil)
		render(t, l, Ok)
		g.SubmitErr = x.err
		res, err := l.RenderFrame(drawTriangle)
		if res != Fatal || !errors.Is(err, x.want) || !errors.Is(err, x.err) {
			t.Fatalf("Loop.RenderFrame:\nhave %v, %v\nwant %v, %v and %v", res, err, Fatal, x.want, x.err)
		}
		if s := l.State(); s != Dead {
			t.Fatalf("Loop.State:\nhave %v\nwant %v", s, Dead)
		}
		if g.Presents != 1 {
			t.Fatalf("presentations:\nhave %d\nwant 1", g.Presents)
		}
		checkShutdown(t, g, l)
	}
}

var errSubmit = errors.New("queue submit failed")

func TestLoopWaitError(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	render(t, l, Ok)
	errWait := errors.New("fence wait failed")
	g.WaitErr = errWait
	res, err := l.RenderFrame(drawTriangle)
	if res != Fatal || !errors.Is(err, driver.ErrDeviceLost) || !errors.Is(err, errWait) {
		t.Fatalf("Loop.RenderFrame:\nhave %v, %v\nwant %v, %v and %v", res, err, Fatal, driver.ErrDeviceLost, errWait)
	}
	if s := l.State(); s != Dead {
		t.Fatalf("Loop.State:\nhave %v\nwant %v", s, Dead)
	}
	if g.Submits != 1 {
		t.Fatalf("submissions:\nhave %d\nwant 1", g.Submits)
	}
	checkShutdown(t, g, l)
}

func TestDeviceErr(t *testing.T) {
	for _, x := range [...]struct {
		err  error
		want []error
	}{
		{errSubmit, []error{errSubmit, driver.ErrDeviceLost}},
		{driver.ErrSurfaceCreation, []error{driver.ErrSurfaceCreation, driver.ErrDeviceLost}},
		{driver.ErrSubmission, []error{driver.ErrSubmission}},
		{driver.ErrDeviceLost, []error{driver.ErrDeviceLost}},
	} {
		err := deviceErr(x.err)
		for _, w := range x.want {
			if !errors.Is(err, w) {
				t.Fatalf("deviceErr(%v):\nhave %v\nwant %v in chain", x.err, err, w)
			}
		}
	}
	if err := submitErr(errSubmit); !errors.Is(err, driver.ErrSubmission) || !errors.Is(err, errSubmit) {
		t.Fatalf("submitErr(%v):\nhave %v\nwant %v and %v in chain", errSubmit, err, driver.ErrSubmission, errSubmit)
	}
}

func TestLoopDrawError(t *testing.T) {
	g := newGPU(2, 0)
	l := newLoop(t, g, &window{w: 640, h: 480}, nil)
	errDraw := errors.New("draw failed")
	res, err := l.RenderFrame(func(cb driver.CmdBuffer) error { return errDraw })
	if res != Incomplete || !errors.Is(err, errDraw) {
		t.Fatalf("Loop.RenderFrame:\nhave %v, %v\nwant %v, %v", res, err, Incomplete, errDraw)
	}
	var de *DrawError
	if !errors.As(err, &de) {
		t.Fatalf("Loop.RenderFrame: error %T is not a *DrawError", err)
	}
	if g.Submits != 1 || g.Presents != 1 {
		t.Fatalf("submissions/presentations:\nhave %d/%d\nwant 1/1", g.Submits, g.Presents)
	}
	if s := l.State(); s != Idle {
		t.Fatalf("Loop.State:\nhave %v\nwant %v", s, Idle)
	}
	render(t, l, Ok)
	render(t, l, Ok)
	if st := l.Stats(); st.Rendered != 2 {
		t.Fatalf("Loop.Stats.Rendered:\nhave %d\nwant 2", st.Rendered)
	}
	checkShutdown(t, g, l)
}

func TestLoopMinimized(t *testing.T) {
	g := newGPU(2, 0)
	win := &window{w: 640, h: 480}
	l := newLoop(t, g, win, nil)
	render(t, l, Ok)
	win.w, win.h = 0, 0
	win.resized = true
	win.restore = &[2]int{320, 240}
	render(t, l, Ok)
	if win.waits != 1 {
		t.Fatalf("Window.WaitEvents calls:\nhave %d\nwant 1", win.waits)
	}
	if e := l.Swapchain().Extent(); e != (driver.Extent{320, 240}) {
		t.Fatalf("Swapchain.Extent:\nhave %v\nwant {320 240}", e)
	}
	checkShutdown(t, g, l)
}

func TestNewFailure(t *testing.T) {
	g := newGPU(2, 0)
	_, err := New(nil, &Deps{GPU: g, Presenter: g, Window: &window{w: 1, h: 1}})
	if err != ErrNoPipeline {
		t.Fatalf("frame.New (nil pipeline function):\nhave %v\nwant %v", err, ErrNoPipeline)
	}
	if n := g.LiveTotal(); n != 0 || len(g.Infos) != 0 {
		t.Fatalf("frame.New (nil pipeline function): live objects, swapchains\nhave %d, %d\nwant 0, 0", n, len(g.Infos))
	}

	g = newGPU(2, 0)
	_, err = New(nil, &Deps{
		GPU:       g,
		Presenter: g,
		Window:    &window{w: 1, h: 1},
		Pipeline: func(driver.RenderPass) (driver.Pipeline, error) {
			return nil, nil
		},
	})
	if err != ErrNoPipeline {
		t.Fatalf("frame.New (nil pipeline):\nhave %v\nwant %v", err, ErrNoPipeline)
	}
	if n := g.LiveTotal(); n != 0 {
		t.Fatalf("live objects after failed New:\nhave %d\nwant 0", n)
	}

	g = newGPU(2, 0)
	g.Fmts = nil
	_, err = New(nil, &Deps{
		GPU:       g,
		Presenter: g,
		Window:    &window{w: 1, h: 1},
		Pipeline: func(pass driver.RenderPass) (driver.Pipeline, error) {
			return g.NewPipeline(&driver.GraphState{Pass: pass})
		},
	})
	if !errors.Is(err, driver.ErrSurfaceCreation) {
		t.Fatalf("frame.New (no formats):\nhave %v\nwant %v", err, driver.ErrSurfaceCreation)
	}

	g = newGPU(2, 0)
	errPipeline := errors.New("pipeline failed")
	_, err = New(nil, &Deps{
		GPU:       g,
		Presenter: g,
		Window:    &window{w: 1, h: 1},
		Pipeline: func(driver.RenderPass) (driver.Pipeline, error) {
			return nil, errPipeline
		},
	})
	if !errors.Is(err, errPipeline) {
		t.Fatalf("frame.New (pipeline):\nhave %v\nwant %v", err, errPipeline)
	}
	if n := g.LiveTotal(); n != 0 {
		t.Fatalf("live objects after failed New:\nhave %d\nwant 0", n)
	}
	checkViolations(t, g)
}

func TestStateString(t *testing.T) {
	for _, x := range [...]struct {
		s    State
		want string
	}{
		{Idle, "Idle"},
		{Acquiring, "Acquiring"},
		{Recording, "Recording"},
		{Submitting, "Submitting"},
		{Presenting, "Presenting"},
		{Recreating, "Recreating"},
		{Dead, "Dead"},
		{State(-1), "State(?)"},
	} {
		if s := x.s.String(); s != x.want {
			t.Fatalf("State.String:\nhave %s\nwant %s", s, x.want)
		}
	}
	if s := Incomplete.String(); s != "Incomplete" {
		t.Fatalf("Result.String:\nhave %s\nwant Incomplete", s)
	}
	if s := swapchain.Stale.String(); s != "Stale" {
		t.Fatalf("Status.String:\nhave %s\nwant Stale", s)
	}
}
