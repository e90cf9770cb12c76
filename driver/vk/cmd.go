// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	d  *Driver
	cb vk.CommandBuffer
}

// NewCmdBuffer creates a new command buffer.
// It is allocated from the graphics queue's pool.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.cpool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := checkResult(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return nil, errors.Wrap(err, "vk: allocate command buffer")
	}
	return &cmdBuffer{d: d, cb: cbs[0]}, nil
}

// Begin prepares the command buffer for recording.
func (cb *cmdBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return checkResult(vk.BeginCommandBuffer(cb.cb, &info))
}

// BeginPass begins a render pass instance that covers the
// whole framebuffer.
func (cb *cmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear driver.ClearValue) {
	f := fb.(*framebuf)
	clears := make([]vk.ClearValue, 1)
	clears[0].SetColor(clear.Color[:])
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.(*renderPass).pass,
		Framebuffer: f.fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: uint32(f.width), Height: uint32(f.height)},
		},
		ClearValueCount: 1,
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(cb.cb, &info, vk.SubpassContentsInline)
}

// EndPass ends the current render pass instance.
func (cb *cmdBuffer) EndPass() { vk.CmdEndRenderPass(cb.cb) }

// SetPipeline binds a graphics pipeline.
func (cb *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	vk.CmdBindPipeline(cb.cb, vk.PipelineBindPointGraphics, pl.(*pipeline).pl)
}

// SetViewport sets the dynamic viewport.
func (cb *cmdBuffer) SetViewport(vp driver.Viewport) {
	vk.CmdSetViewport(cb.cb, 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.Znear,
		MaxDepth: vp.Zfar,
	}})
}

// SetScissor sets the dynamic scissor rectangle.
func (cb *cmdBuffer) SetScissor(sciss driver.Scissor) {
	vk.CmdSetScissor(cb.cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(sciss.X), Y: int32(sciss.Y)},
		Extent: vk.Extent2D{Width: uint32(sciss.Width), Height: uint32(sciss.Height)},
	}})
}

// Draw records a non-indexed draw.
func (cb *cmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	vk.CmdDraw(cb.cb, uint32(vertCount), uint32(instCount), uint32(baseVert), uint32(baseInst))
}

// End ends recording.
func (cb *cmdBuffer) End() error { return checkResult(vk.EndCommandBuffer(cb.cb)) }

// Reset discards all recorded commands.
func (cb *cmdBuffer) Reset() error { return checkResult(vk.ResetCommandBuffer(cb.cb, 0)) }

// Destroy frees the command buffer.
func (cb *cmdBuffer) Destroy() {
	if cb == nil {
		return
	}
	if cb.d != nil {
		vk.FreeCommandBuffers(cb.d.dev, cb.d.cpool, 1, []vk.CommandBuffer{cb.cb})
	}
	*cb = cmdBuffer{}
}

// Submit submits cb to the graphics queue.
// Execution waits on wait (if not nil) at stage, and
// signals signal and fence (if not nil) on completion.
func (d *Driver) Submit(cb driver.CmdBuffer, wait driver.Semaphore, stage driver.Sync, signal driver.Semaphore, fence driver.Fence) error {
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.(*cmdBuffer).cb},
	}
	if wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{semHandle(wait)}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{convSync(stage)}
	}
	if signal != nil {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{semHandle(signal)}
	}
	err := checkResult(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{info}, fenceHandle(fence)))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrDeviceLost):
		return err
	default:
		return errors.Wrap(driver.ErrSubmission, err.Error())
	}
}
