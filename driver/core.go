// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"time"
)

// GPU is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
type GPU interface {
	// NewCmdBuffer creates a new command buffer.
	// Command buffers are allocated from a pool that
	// allows individual resets.
	NewCmdBuffer() (CmdBuffer, error)

	// NewSemaphore creates a new GPU-GPU signal.
	NewSemaphore() (Semaphore, error)

	// NewFence creates a new GPU-CPU signal.
	// If signaled is true, the first wait on the fence
	// returns immediately.
	NewFence(signaled bool) (Fence, error)

	// NewRenderPass creates a new render pass with a
	// single color attachment of the given format.
	// The attachment is cleared on load and left in a
	// presentable layout at the end of the pass.
	NewRenderPass(pf PixelFmt) (RenderPass, error)

	// NewShaderCode creates a new shader code.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewPipeline creates a new graphics pipeline.
	// Viewport and scissor are dynamic state and must be
	// set during recording.
	NewPipeline(state *GraphState) (Pipeline, error)

	// Submit submits cb to the graphics queue.
	// Execution waits on wait at the stage given by
	// stage, and, when it completes, signals both signal
	// and fence. Any of wait, signal and fence may be nil.
	// Errors other than ErrDeviceLost are reported as
	// ErrSubmission.
	Submit(cb CmdBuffer, wait Semaphore, stage Sync, signal Semaphore, fence Fence) error

	// WaitIdle blocks until the device has finished all
	// pending work.
	WaitIdle() error

	// QueueFamilies returns the indices of the queue
	// families used for graphics and presentation.
	QueueFamilies() (graphics, present int)
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later
// submitted to the GPU for execution. The usage is as
// follows:
//
//	1. call Reset if the command buffer was used before
//	2. call Begin
//	3. call BeginPass
//	4. call Set* methods to configure rendering state
//	5. call Draw
//	6. repeat 4-5 as needed
//	7. call EndPass
//	8. call End and, if it succeeds, GPU.Submit
//
// Passes must not be nested.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	Begin() error

	// BeginPass begins a render pass targeting fb.
	// The render area covers the whole framebuffer and
	// the color attachment is cleared to clear.
	BeginPass(pass RenderPass, fb Framebuf, clear ClearValue)

	// EndPass ends the current render pass.
	EndPass()

	// SetPipeline sets the graphics pipeline.
	SetPipeline(pl Pipeline)

	// SetViewport sets the viewport.
	SetViewport(vp Viewport)

	// SetScissor sets the scissor rectangle.
	SetScissor(sciss Scissor)

	// Draw draws primitives.
	Draw(vertCount, instCount, baseVert, baseInst int)

	// End ends command recording and prepares the
	// command buffer for execution.
	End() error

	// Reset discards all recorded commands.
	// It must not be called while the command buffer
	// is pending execution.
	Reset() error
}

// Semaphore is the interface that defines a signal
// used to order work on the GPU timeline.
type Semaphore interface {
	Destroyer
}

// Fence is the interface that defines a signal that
// the CPU can observe.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled or the
	// timeout expires, in which case ErrTimeout is
	// returned. A negative timeout means no timeout.
	Wait(timeout time.Duration) error

	// Reset unsignals the fence.
	Reset() error
}

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	SVertexInput Sync = 1 << iota
	SVertexShading
	SFragmentShading
	SColorOutput
	SAll
	SNone Sync = 0
)

// RenderPass is the interface that defines a render pass
// into which draw commands operate.
type RenderPass interface {
	Destroyer

	// NewFB creates a new framebuffer.
	// The view's pixel format must match the render
	// pass' attachment.
	// All framebuffers created from a given render pass
	// must be destroyed before the render pass itself
	// is destroyed.
	NewFB(iv ImageView, width, height int) (Framebuf, error)
}

// Framebuf is the interface that defines the render targets
// of a render pass.
type Framebuf interface {
	Destroyer
}

// ClearValue defines the clear color of a render target.
type ClearValue struct {
	Color [4]float32
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Topology is the type of primitive topologies.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// CullMode is the type of cull modes.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// GraphState defines the combination of programmable and
// fixed stages of a graphics pipeline.
// Vertices are generated by the vertex function itself,
// so there is no vertex input state.
type GraphState struct {
	VertFunc  ShaderFunc
	FragFunc  ShaderFunc
	Topology  Topology
	Cull      CullMode
	Clockwise bool
	Pass      RenderPass
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	FInvalid PixelFmt = iota
	RGBA8un
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RGBA16f
	RGB10A2un
)

// String implements fmt.Stringer.
func (f PixelFmt) String() string {
	switch f {
	case RGBA8un:
		return "RGBA8un"
	case RGBA8sRGB:
		return "RGBA8sRGB"
	case BGRA8un:
		return "BGRA8un"
	case BGRA8sRGB:
		return "BGRA8sRGB"
	case RGBA16f:
		return "RGBA16f"
	case RGB10A2un:
		return "RGB10A2un"
	}
	return "FInvalid"
}

// ImageView is the interface that defines a typed view of
// an image resource.
type ImageView interface {
	Destroyer
}
