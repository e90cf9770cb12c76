// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package fakegpu implements the driver interfaces without
// a device.
// Submitted work completes immediately. Misuse of signals
// (e.g., waiting on a semaphore that nothing will signal)
// is recorded as a violation rather than causing a hang.
package fakegpu

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// GPU implements driver.GPU and driver.Presenter.
type GPU struct {
	Graphics int
	Present  int

	Caps  driver.SurfaceCaps
	Fmts  []driver.SurfaceFormat
	Modes []driver.PresentMode

	// StaleNext is the number of upcoming Next calls that
	// report an out-of-date swapchain.
	StaleNext int
	// SuboptimalNext is the number of upcoming Next calls
	// that acquire an image but report it as suboptimal.
	SuboptimalNext int
	// StalePresent is the number of upcoming Present calls
	// that report a stale swapchain.
	StalePresent int
	// Stall is the number of upcoming fence waits that
	// time out.
	Stall int
	// WaitErr, if not nil, is returned by the next fence
	// wait that does not stall.
	WaitErr error
	// SubmitErr, if not nil, is returned by Submit.
	SubmitErr error
	// SwapchainErr, if not nil, is returned by NewSwapchain.
	SwapchainErr error

	Events     []string
	Violations []string
	Submits    int
	Presents   int
	WaitIdles  int

	// Infos records every SwapchainInfo passed to
	// NewSwapchain.
	Infos []driver.SwapchainInfo

	live map[string]int
}

// New creates a new GPU whose surface has the given
// capabilities.
// Formats and present modes default to BGRA8sRGB/sRGB
// and FIFO/Mailbox.
func New(caps driver.SurfaceCaps) *GPU {
	return &GPU{
		Caps:  caps,
		Fmts:  []driver.SurfaceFormat{{driver.BGRA8sRGB, driver.SRGBNonlinear}},
		Modes: []driver.PresentMode{driver.FIFO, driver.Mailbox},
		live:  make(map[string]int),
	}
}

func (g *GPU) event(format string, a ...any) {
	g.Events = append(g.Events, fmt.Sprintf(format, a...))
}

func (g *GPU) violation(format string, a ...any) {
	g.Violations = append(g.Violations, fmt.Sprintf(format, a...))
}

func (g *GPU) alloc(kind string) {
	if g.live == nil {
		g.live = make(map[string]int)
	}
	g.live[kind]++
}

func (g *GPU) free(kind string) {
	if g.live[kind] <= 0 {
		g.violation("double destroy of %s", kind)
		return
	}
	g.live[kind]--
}

// Live returns the number of objects of the given kind that
// were created and not yet destroyed.
// Kinds are "cmd", "sem", "fence", "pass", "fb", "shader",
// "pipeline", "swapchain" and "view".
func (g *GPU) Live(kind string) int { return g.live[kind] }

// LiveTotal returns the number of objects that were
// created and not yet destroyed.
func (g *GPU) LiveTotal() (n int) {
	for _, x := range g.live {
		n += x
	}
	return
}

// ClearEvents discards the recorded events.
func (g *GPU) ClearEvents() { g.Events = g.Events[:0] }

// NewCmdBuffer creates a new command buffer.
func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	g.alloc("cmd")
	return &CmdBuffer{g: g}, nil
}

// NewSemaphore creates a new semaphore.
func (g *GPU) NewSemaphore() (driver.Semaphore, error) {
	g.alloc("sem")
	return &Semaphore{g: g}, nil
}

// NewFence creates a new fence.
func (g *GPU) NewFence(signaled bool) (driver.Fence, error) {
	g.alloc("fence")
	return &Fence{g: g, Signaled: signaled}, nil
}

// NewRenderPass creates a new render pass.
func (g *GPU) NewRenderPass(pf driver.PixelFmt) (driver.RenderPass, error) {
	g.alloc("pass")
	return &RenderPass{g: g, Format: pf}, nil
}

// NewShaderCode creates a new shader code.
func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Errorf("fakegpu: invalid shader code size %d", len(data))
	}
	g.alloc("shader")
	return &object{g: g, kind: "shader"}, nil
}

// NewPipeline creates a new pipeline.
func (g *GPU) NewPipeline(state *driver.GraphState) (driver.Pipeline, error) {
	if state.Pass == nil {
		return nil, errors.New("fakegpu: pipeline requires a render pass")
	}
	g.alloc("pipeline")
	return &object{g: g, kind: "pipeline"}, nil
}

// Submit simulates the immediate execution of cb.
func (g *GPU) Submit(cb driver.CmdBuffer, wait driver.Semaphore, stage driver.Sync, signal driver.Semaphore, fence driver.Fence) error {
	if g.SubmitErr != nil {
		return g.SubmitErr
	}
	c := cb.(*CmdBuffer)
	if c.recording || c.inPass {
		g.violation("submit of command buffer that was not ended")
	}
	if wait != nil {
		s := wait.(*Semaphore)
		if !s.Signaled {
			g.violation("submit waits on semaphore that will not be signaled")
		}
		s.Signaled = false
	}
	if signal != nil {
		s := signal.(*Semaphore)
		if s.Signaled {
			g.violation("submit signals semaphore that is already signaled")
		}
		s.Signaled = true
	}
	if fence != nil {
		f := fence.(*Fence)
		if f.Signaled {
			g.violation("submit with fence that was not reset")
		}
		f.Signaled = true
	}
	g.Submits++
	g.event("Submit")
	return nil
}

// WaitIdle records the wait.
func (g *GPU) WaitIdle() error {
	g.WaitIdles++
	g.event("WaitIdle")
	return nil
}

// QueueFamilies returns g.Graphics and g.Present.
func (g *GPU) QueueFamilies() (graphics, present int) { return g.Graphics, g.Present }

// Capabilities returns g.Caps.
func (g *GPU) Capabilities() (driver.SurfaceCaps, error) { return g.Caps, nil }

// Formats returns g.Fmts.
func (g *GPU) Formats() ([]driver.SurfaceFormat, error) { return g.Fmts, nil }

// PresentModes returns g.Modes.
func (g *GPU) PresentModes() ([]driver.PresentMode, error) { return g.Modes, nil }

// NewSwapchain creates a new swapchain with info.ImageCount
// images.
func (g *GPU) NewSwapchain(info *driver.SwapchainInfo) (driver.Swapchain, error) {
	if g.SwapchainErr != nil {
		return nil, g.SwapchainErr
	}
	if info.ImageCount < 1 {
		return nil, errors.Errorf("fakegpu: invalid image count %d", info.ImageCount)
	}
	if info.Old != nil && info.Old.(*Swapchain).destroyed {
		g.violation("old swapchain destroyed before replacement")
	}
	g.Infos = append(g.Infos, *info)
	g.alloc("swapchain")
	s := &Swapchain{g: g, Info: *info}
	for range info.ImageCount {
		g.alloc("view")
		s.views = append(s.views, &object{g: g, kind: "view"})
	}
	g.event("NewSwapchain %dx%d", info.Extent.Width, info.Extent.Height)
	return s, nil
}

type object struct {
	g    *GPU
	kind string
}

func (o *object) Destroy() {
	o.g.free(o.kind)
	if o.kind == "view" {
		o.g.event("DestroyView")
	}
}

// CmdBuffer implements driver.CmdBuffer.
type CmdBuffer struct {
	g         *GPU
	recording bool
	inPass    bool
	// Draws is the number of draws recorded since the
	// last reset.
	Draws int
}

func (c *CmdBuffer) Destroy() { c.g.free("cmd") }

func (c *CmdBuffer) Begin() error {
	if c.recording {
		c.g.violation("Begin while recording")
	}
	c.recording = true
	c.g.event("Begin")
	return nil
}

func (c *CmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear driver.ClearValue) {
	if !c.recording || c.inPass {
		c.g.violation("BeginPass outside recording or nested")
	}
	if f := fb.(*Framebuf); f.destroyed {
		c.g.violation("BeginPass with destroyed framebuffer")
	}
	c.inPass = true
	c.g.event("BeginPass %v", clear.Color)
}

func (c *CmdBuffer) EndPass() {
	if !c.inPass {
		c.g.violation("EndPass outside pass")
	}
	c.inPass = false
	c.g.event("EndPass")
}

func (c *CmdBuffer) SetPipeline(pl driver.Pipeline) { c.g.event("SetPipeline") }

func (c *CmdBuffer) SetViewport(vp driver.Viewport) {
	c.g.event("SetViewport %vx%v", vp.Width, vp.Height)
}

func (c *CmdBuffer) SetScissor(sciss driver.Scissor) {
	c.g.event("SetScissor %dx%d", sciss.Width, sciss.Height)
}

func (c *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	if !c.inPass {
		c.g.violation("Draw outside pass")
	}
	c.Draws++
	c.g.event("Draw %d", vertCount)
}

func (c *CmdBuffer) End() error {
	if !c.recording || c.inPass {
		c.g.violation("End outside recording or inside pass")
	}
	c.recording = false
	c.g.event("End")
	return nil
}

func (c *CmdBuffer) Reset() error {
	c.recording = false
	c.inPass = false
	c.Draws = 0
	c.g.event("Reset")
	return nil
}

// Semaphore implements driver.Semaphore.
type Semaphore struct {
	g        *GPU
	Signaled bool
}

func (s *Semaphore) Destroy() { s.g.free("sem") }

// Fence implements driver.Fence.
type Fence struct {
	g        *GPU
	Signaled bool
	// Waits is the number of calls to Wait.
	Waits int
}

func (f *Fence) Destroy() { f.g.free("fence") }

func (f *Fence) Wait(timeout time.Duration) error {
	f.Waits++
	if f.g.Stall > 0 {
		f.g.Stall--
		return driver.ErrTimeout
	}
	if err := f.g.WaitErr; err != nil {
		f.g.WaitErr = nil
		return err
	}
	if !f.Signaled {
		f.g.violation("wait on fence that will not be signaled")
		return driver.ErrTimeout
	}
	return nil
}

func (f *Fence) Reset() error {
	f.Signaled = false
	return nil
}

// RenderPass implements driver.RenderPass.
type RenderPass struct {
	g      *GPU
	Format driver.PixelFmt
}

func (p *RenderPass) Destroy() {
	if p.g.live["fb"] > 0 {
		p.g.violation("render pass destroyed before its framebuffers")
	}
	p.g.free("pass")
}

func (p *RenderPass) NewFB(iv driver.ImageView, width, height int) (driver.Framebuf, error) {
	if o := iv.(*object); o.kind != "view" {
		return nil, errors.New("fakegpu: not a view")
	}
	p.g.alloc("fb")
	p.g.event("NewFB %dx%d", width, height)
	return &Framebuf{g: p.g, Width: width, Height: height}, nil
}

// Framebuf implements driver.Framebuf.
type Framebuf struct {
	g             *GPU
	Width, Height int
	destroyed     bool
}

func (f *Framebuf) Destroy() {
	f.destroyed = true
	f.g.free("fb")
	f.g.event("DestroyFB")
}

// Swapchain implements driver.Swapchain.
type Swapchain struct {
	g         *GPU
	Info      driver.SwapchainInfo
	views     []driver.ImageView
	next      int
	destroyed bool
}

func (s *Swapchain) Destroy() {
	for _, v := range s.views {
		v.Destroy()
	}
	s.views = nil
	s.destroyed = true
	s.g.free("swapchain")
	s.g.event("DestroySwapchain")
}

func (s *Swapchain) Views() []driver.ImageView {
	return append([]driver.ImageView(nil), s.views...)
}

func (s *Swapchain) Next(sem driver.Semaphore) (int, error) {
	if s.destroyed {
		s.g.violation("Next on destroyed swapchain")
	}
	if s.g.StaleNext > 0 {
		s.g.StaleNext--
		s.g.event("Next stale")
		return -1, driver.ErrSwapchain
	}
	x := sem.(*Semaphore)
	if x.Signaled {
		s.g.violation("Next signals semaphore that is already signaled")
	}
	x.Signaled = true
	idx := s.next % len(s.views)
	s.next++
	if s.g.SuboptimalNext > 0 {
		s.g.SuboptimalNext--
		s.g.event("Next suboptimal %d", idx)
		return idx, driver.ErrSwapchain
	}
	s.g.event("Next %d", idx)
	return idx, nil
}

func (s *Swapchain) Present(index int, wait driver.Semaphore) error {
	if index < 0 || index >= len(s.views) {
		s.g.violation("Present with invalid index %d", index)
	}
	x := wait.(*Semaphore)
	if !x.Signaled {
		s.g.violation("Present waits on semaphore that will not be signaled")
	}
	x.Signaled = false
	s.g.Presents++
	if s.g.StalePresent > 0 {
		s.g.StalePresent--
		s.g.event("Present stale %d", index)
		return driver.ErrSwapchain
	}
	s.g.event("Present %d", index)
	return nil
}
