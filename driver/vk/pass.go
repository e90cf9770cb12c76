// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// renderPass implements driver.RenderPass.
type renderPass struct {
	d    *Driver
	pass vk.RenderPass
}

// NewRenderPass creates a new render pass with a single
// color attachment of the given format.
// The attachment is cleared on load and transitioned to
// the presentation layout at the end of the pass.
func (d *Driver) NewRenderPass(pf driver.PixelFmt) (driver.RenderPass, error) {
	format := convPixelFmt(pf)
	if format == vk.FormatUndefined {
		return nil, errors.Wrapf(errUnsupportedFormat, "vk: render pass format %v", pf)
	}
	atts := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	refs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	subs := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    refs,
	}}
	// The image is only written after the acquisition
	// semaphore (waited at color output) is signaled.
	deps := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    uint32(len(subs)),
		PSubpasses:      subs,
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}
	var pass vk.RenderPass
	if err := checkResult(vk.CreateRenderPass(d.dev, &info, nil, &pass)); err != nil {
		return nil, errors.Wrap(err, "vk: create render pass")
	}
	return &renderPass{d: d, pass: pass}, nil
}

// Destroy destroys the render pass.
func (p *renderPass) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		vk.DestroyRenderPass(p.d.dev, p.pass, nil)
	}
	*p = renderPass{}
}

// framebuf implements driver.Framebuf.
type framebuf struct {
	d      *Driver
	fb     vk.Framebuffer
	width  int
	height int
}

// NewFB creates a new framebuffer whose only attachment
// is iv.
func (p *renderPass) NewFB(iv driver.ImageView, width, height int) (driver.Framebuf, error) {
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.pass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{iv.(*imageView).view},
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := checkResult(vk.CreateFramebuffer(p.d.dev, &info, nil, &fb)); err != nil {
		return nil, errors.Wrap(err, "vk: create framebuffer")
	}
	return &framebuf{
		d:      p.d,
		fb:     fb,
		width:  width,
		height: height,
	}, nil
}

// Destroy destroys the framebuffer.
func (f *framebuf) Destroy() {
	if f == nil {
		return
	}
	if f.d != nil {
		vk.DestroyFramebuffer(f.d.dev, f.fb, nil)
	}
	*f = framebuf{}
}
