// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// Color spaces from VK_EXT_swapchain_colorspace.
const (
	colorSpaceDisplayP3Nonlinear vk.ColorSpace = 1000104001
	colorSpaceExtendedSRGBLinear vk.ColorSpace = 1000104002
)

// convPixelFmt converts a driver.PixelFmt to a VkFormat.
func convPixelFmt(pf driver.PixelFmt) vk.Format {
	switch pf {
	case driver.RGBA8un:
		return vk.FormatR8g8b8a8Unorm
	case driver.RGBA8sRGB:
		return vk.FormatR8g8b8a8Srgb
	case driver.BGRA8un:
		return vk.FormatB8g8r8a8Unorm
	case driver.BGRA8sRGB:
		return vk.FormatB8g8r8a8Srgb
	case driver.RGBA16f:
		return vk.FormatR16g16b16a16Sfloat
	case driver.RGB10A2un:
		return vk.FormatA2b10g10r10UnormPack32
	}
	return vk.FormatUndefined
}

// pixelFmtFrom converts a VkFormat to a driver.PixelFmt.
// It returns driver.FInvalid if f has no equivalent.
func pixelFmtFrom(f vk.Format) driver.PixelFmt {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return driver.RGBA8un
	case vk.FormatR8g8b8a8Srgb:
		return driver.RGBA8sRGB
	case vk.FormatB8g8r8a8Unorm:
		return driver.BGRA8un
	case vk.FormatB8g8r8a8Srgb:
		return driver.BGRA8sRGB
	case vk.FormatR16g16b16a16Sfloat:
		return driver.RGBA16f
	case vk.FormatA2b10g10r10UnormPack32:
		return driver.RGB10A2un
	}
	return driver.FInvalid
}

// convColorSpace converts a driver.ColorSpace to a
// VkColorSpaceKHR.
func convColorSpace(cs driver.ColorSpace) vk.ColorSpace {
	switch cs {
	case driver.ExtendedSRGBLinear:
		return colorSpaceExtendedSRGBLinear
	case driver.DisplayP3Nonlinear:
		return colorSpaceDisplayP3Nonlinear
	}
	return vk.ColorSpaceSrgbNonlinear
}

// colorSpaceFrom converts a VkColorSpaceKHR to a
// driver.ColorSpace.
func colorSpaceFrom(cs vk.ColorSpace) driver.ColorSpace {
	switch cs {
	case vk.ColorSpaceSrgbNonlinear:
		return driver.SRGBNonlinear
	case colorSpaceExtendedSRGBLinear:
		return driver.ExtendedSRGBLinear
	case colorSpaceDisplayP3Nonlinear:
		return driver.DisplayP3Nonlinear
	}
	return driver.OtherColorSpace
}

// convPresentMode converts a driver.PresentMode to a
// VkPresentModeKHR.
func convPresentMode(pm driver.PresentMode) vk.PresentMode {
	switch pm {
	case driver.Immediate:
		return vk.PresentModeImmediate
	case driver.Mailbox:
		return vk.PresentModeMailbox
	case driver.FIFORelaxed:
		return vk.PresentModeFifoRelaxed
	}
	return vk.PresentModeFifo
}

// presentModeFrom converts a VkPresentModeKHR to a
// driver.PresentMode.
func presentModeFrom(pm vk.PresentMode) (driver.PresentMode, bool) {
	switch pm {
	case vk.PresentModeImmediate:
		return driver.Immediate, true
	case vk.PresentModeMailbox:
		return driver.Mailbox, true
	case vk.PresentModeFifo:
		return driver.FIFO, true
	case vk.PresentModeFifoRelaxed:
		return driver.FIFORelaxed, true
	}
	return 0, false
}

// convSharing converts a driver.SharingMode to a
// VkSharingMode.
func convSharing(sm driver.SharingMode) vk.SharingMode {
	if sm == driver.Concurrent {
		return vk.SharingModeConcurrent
	}
	return vk.SharingModeExclusive
}

// convTopology converts a driver.Topology to a
// VkPrimitiveTopology.
func convTopology(top driver.Topology) vk.PrimitiveTopology {
	switch top {
	case driver.TPoint:
		return vk.PrimitiveTopologyPointList
	case driver.TLine:
		return vk.PrimitiveTopologyLineList
	case driver.TLnStrip:
		return vk.PrimitiveTopologyLineStrip
	case driver.TTriStrip:
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}

// convCullMode converts a driver.CullMode to a
// VkCullModeFlags.
func convCullMode(cm driver.CullMode) vk.CullModeFlags {
	switch cm {
	case driver.CFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case driver.CBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

// convSync converts a driver.Sync to a
// VkPipelineStageFlags.
// SNone maps to the top of the pipe, since a wait stage
// mask must not be empty.
func convSync(s driver.Sync) (flags vk.PipelineStageFlags) {
	if s == driver.SNone {
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if s&driver.SAll != 0 {
		return vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
	if s&driver.SVertexInput != 0 {
		flags |= vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	}
	if s&driver.SVertexShading != 0 {
		flags |= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)
	}
	if s&driver.SFragmentShading != 0 {
		flags |= vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}
	if s&driver.SColorOutput != 0 {
		flags |= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	return
}

// compositeAlpha chooses a composite alpha mode from the
// supported ones, preferring opaque.
func compositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, x := range [...]vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaInheritBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
	} {
		if supported&vk.CompositeAlphaFlags(x) != 0 {
			return x
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// convExtent converts a driver.Extent to a VkExtent2D.
func convExtent(e driver.Extent) vk.Extent2D {
	return vk.Extent2D{Width: uint32(e.Width), Height: uint32(e.Height)}
}

// extentFrom converts a VkExtent2D to a driver.Extent.
func extentFrom(e vk.Extent2D) driver.Extent {
	return driver.Extent{Width: int(e.Width), Height: int(e.Height)}
}
