// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Command vkframe opens a window and renders frames into it
// using Vulkan until the window is closed.
//
// Shaders are loaded from the directory given by -res.
// The program named by -prog must have both a vertex shader
// (<prog>.vert.spv) and a fragment shader (<prog>.frag.spv).
// The vertex shader generates the vertices of a triangle
// from gl_VertexIndex.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/xlab/closer"
	"golang.org/x/image/math/f32"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/driver/vk"
	"github.com/gviegas/vkframe/frame"
	"github.com/gviegas/vkframe/resource"
	"github.com/gviegas/vkframe/wsi"
)

func init() { runtime.LockOSThread() }

type options struct {
	width, height int
	title         string
	frames        int
	inFlight      int
	clear         string
	validate      bool
	res           string
	prog          string
	verbose       bool
}

func parseFlags() *options {
	var o options
	flag.IntVar(&o.width, "width", 800, "window width")
	flag.IntVar(&o.height, "height", 600, "window height")
	flag.StringVar(&o.title, "title", "vkframe", "window title")
	flag.IntVar(&o.frames, "frames", 0, "number of frames to render (0 means until closed)")
	flag.IntVar(&o.inFlight, "inflight", 2, "frames in flight")
	flag.StringVar(&o.clear, "clear", "0,0,0,1", "clear color as r,g,b,a")
	flag.BoolVar(&o.validate, "validate", false, "enable the validation layer")
	flag.StringVar(&o.res, "res", "res", "resource directory")
	flag.StringVar(&o.prog, "prog", "shaders/triangle", "shader program name")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Parse()
	return &o
}

func parseColor(s string) (c f32.Vec4, err error) {
	if _, err = fmt.Sscanf(s, "%g,%g,%g,%g", &c[0], &c[1], &c[2], &c[3]); err != nil {
		err = errors.Wrapf(err, "invalid color %q", s)
	}
	return
}

func main() {
	o := parseFlags()
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	frame.SetLogger(log)

	var quit atomic.Bool
	done := make(chan struct{})
	closer.Bind(func() {
		quit.Store(true)
		<-done
	})

	err := run(o, log, &quit)
	close(done)
	if err != nil {
		log.Error("vkframe", "err", err)
		closer.Exit(1)
	}
	closer.Close()
}

// keys closes the window on Escape.
type keys struct{}

func (keys) KeyboardKey(win wsi.Window, key wsi.Key, pressed bool, _ wsi.Modifier) {
	if pressed && key == wsi.KeyEsc {
		win.SetShouldClose(true)
	}
}

func run(o *options, log *slog.Logger, quit *atomic.Bool) error {
	cc, err := parseColor(o.clear)
	if err != nil {
		return err
	}

	var shaders resource.ShaderLoader
	n, err := resource.NewSet(log, &shaders).Load(os.DirFS(o.res))
	if err != nil {
		return err
	}
	log.Debug("resources loaded", "dir", o.res, "count", n)
	vert, frag, err := shaders.Program(o.prog)
	if err != nil {
		return err
	}

	if err := wsi.Init(); err != nil {
		return err
	}
	defer wsi.Terminate()
	wsi.SetKeyboardHandler(keys{})
	win, err := wsi.NewWindow(o.width, o.height, o.title)
	if err != nil {
		return err
	}
	defer win.Close()

	drv, err := vk.Open(win, &vk.Options{
		AppName:    o.title,
		Validation: o.validate,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer drv.Close()

	cfg := frame.DefaultConfig()
	cfg.FramesInFlight = o.inFlight
	cfg.ClearColor = cc
	loop, err := frame.New(&cfg, &frame.Deps{
		GPU:       drv,
		Presenter: drv,
		Window:    win,
		Pipeline: func(pass driver.RenderPass) (driver.Pipeline, error) {
			return newPipeline(drv, pass, vert, frag)
		},
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer loop.Shutdown()

	draw := func(cb driver.CmdBuffer) error {
		cb.Draw(3, 1, 0, 0)
		return nil
	}
	for i := 0; o.frames <= 0 || i < o.frames; i++ {
		wsi.Dispatch()
		if win.ShouldClose() || quit.Load() {
			break
		}
		switch res, err := loop.RenderFrame(draw); res {
		case frame.Fatal:
			return err
		case frame.TimedOut, frame.Incomplete:
			log.Warn("frame", "result", res, "err", err)
		}
	}
	st := loop.Stats()
	log.Info("done",
		"rendered", st.Rendered,
		"skipped", st.Skipped,
		"recreations", st.Recreations,
		"timeouts", st.Timeouts)
	return nil
}

// newPipeline creates a triangle pipeline from SPIR-V code.
func newPipeline(gpu driver.GPU, pass driver.RenderPass, vert, frag []byte) (driver.Pipeline, error) {
	vs, err := gpu.NewShaderCode(vert)
	if err != nil {
		return nil, err
	}
	defer vs.Destroy()
	fs, err := gpu.NewShaderCode(frag)
	if err != nil {
		return nil, err
	}
	defer fs.Destroy()
	return gpu.NewPipeline(&driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: vs, Name: "main"},
		FragFunc: driver.ShaderFunc{Code: fs, Name: "main"},
		Topology: driver.TTriangle,
		Cull:     driver.CNone,
		Pass:     pass,
	})
}
