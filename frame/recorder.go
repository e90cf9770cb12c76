// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"github.com/pkg/errors"
	"golang.org/x/image/math/f32"

	"github.com/gviegas/vkframe/driver"
)

// DrawFunc records draw commands into cb.
// It is called with a render pass already begun and the
// pipeline, viewport and scissor already set. It must not
// end the pass nor the command buffer.
type DrawFunc func(cb driver.CmdBuffer) error

// Target describes what a Recorder draws into.
type Target struct {
	Pass     driver.RenderPass
	Framebuf driver.Framebuf
	Extent   driver.Extent
	Pipeline driver.Pipeline
}

// Recorder records the commands of a single frame.
type Recorder struct {
	Clear f32.Vec4
}

// Record records a frame into cb.
// The sequence is begin, begin pass (clearing to r.Clear),
// bind pipeline, set viewport and scissor to cover the
// whole target, draw and then end pass and end.
// cb must be in the initial state.
//
// If draw fails or panics, the pass and the recording are
// still ended before Record returns (or re-panics). A draw
// failure is reported as *DrawError, and the command
// buffer remains valid for submission.
func (r *Recorder) Record(cb driver.CmdBuffer, tgt *Target, draw DrawFunc) (err error) {
	if err = cb.Begin(); err != nil {
		return errors.Wrap(err, "frame: begin command buffer")
	}
	defer func() {
		if e := cb.End(); e != nil {
			err = errors.Wrap(e, "frame: end command buffer")
		}
	}()

	cb.BeginPass(tgt.Pass, tgt.Framebuf, driver.ClearValue{Color: r.Clear})
	defer cb.EndPass()

	cb.SetPipeline(tgt.Pipeline)
	cb.SetViewport(driver.Viewport{
		Width:  float32(tgt.Extent.Width),
		Height: float32(tgt.Extent.Height),
		Zfar:   1,
	})
	cb.SetScissor(driver.Scissor{
		Width:  tgt.Extent.Width,
		Height: tgt.Extent.Height,
	})
	if draw != nil {
		if e := draw(cb); e != nil {
			err = &DrawError{Err: e}
		}
	}
	return
}

// DrawError is the error returned by Recorder.Record when
// the draw function fails.
type DrawError struct {
	Err error
}

func (e *DrawError) Error() string { return "frame: draw: " + e.Err.Error() }

func (e *DrawError) Unwrap() error { return e.Err }
