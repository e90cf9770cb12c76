// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// Capabilities queries the surface capabilities.
func (d *Driver) Capabilities() (driver.SurfaceCaps, error) {
	caps, err := d.surfaceCaps()
	if err != nil {
		return driver.SurfaceCaps{}, err
	}
	return driver.SurfaceCaps{
		MinImages: int(caps.MinImageCount),
		MaxImages: int(caps.MaxImageCount),
		Current:   extentFrom(caps.CurrentExtent),
		MinExtent: extentFrom(caps.MinImageExtent),
		MaxExtent: extentFrom(caps.MaxImageExtent),
	}, nil
}

func (d *Driver) surfaceCaps() (caps vk.SurfaceCapabilities, err error) {
	if err = checkResult(vk.GetPhysicalDeviceSurfaceCapabilities(d.pdev, d.sf, &caps)); err != nil {
		err = errors.Wrap(err, "vk: surface capabilities")
		return
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return
}

// Formats queries the supported surface formats.
// Formats that have no driver.PixelFmt equivalent, or
// whose color space has no driver.ColorSpace equivalent,
// are omitted. If every format is omitted, the result is
// empty and swapchain creation fails.
func (d *Driver) Formats() ([]driver.SurfaceFormat, error) {
	var n uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.sf, &n, nil)); err != nil {
		return nil, errors.Wrap(err, "vk: surface formats")
	}
	sfs := make([]vk.SurfaceFormat, n)
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.sf, &n, sfs)); err != nil {
		return nil, errors.Wrap(err, "vk: surface formats")
	}
	for i := range sfs[:n] {
		sfs[i].Deref()
	}
	return surfaceFormats(sfs[:n]), nil
}

// surfaceFormats converts sfs to driver.SurfaceFormat
// values, keeping their order and dropping the ones that
// cannot be represented.
func surfaceFormats(sfs []vk.SurfaceFormat) []driver.SurfaceFormat {
	fmts := make([]driver.SurfaceFormat, 0, len(sfs))
	for _, sf := range sfs {
		pf := pixelFmtFrom(sf.Format)
		cs := colorSpaceFrom(sf.ColorSpace)
		if pf == driver.FInvalid || cs == driver.OtherColorSpace {
			continue
		}
		fmts = append(fmts, driver.SurfaceFormat{Format: pf, Space: cs})
	}
	return fmts
}

// PresentModes queries the supported presentation modes.
func (d *Driver) PresentModes() ([]driver.PresentMode, error) {
	var n uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.sf, &n, nil)); err != nil {
		return nil, errors.Wrap(err, "vk: present modes")
	}
	pms := make([]vk.PresentMode, n)
	if err := checkResult(vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.sf, &n, pms)); err != nil {
		return nil, errors.Wrap(err, "vk: present modes")
	}
	modes := make([]driver.PresentMode, 0, n)
	for _, pm := range pms[:n] {
		if m, ok := presentModeFrom(pm); ok {
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// swapchain implements driver.Swapchain.
type swapchain struct {
	d     *Driver
	sc    vk.Swapchain
	views []driver.ImageView
}

// NewSwapchain creates a new swapchain.
// If info.Old is not nil, it is retired, but the caller
// remains responsible for destroying it.
func (d *Driver) NewSwapchain(info *driver.SwapchainInfo) (driver.Swapchain, error) {
	caps, err := d.surfaceCaps()
	if err != nil {
		return nil, err
	}
	old := vk.NullSwapchain
	if info.Old != nil {
		old = info.Old.(*swapchain).sc
	}
	format := convPixelFmt(info.Format.Format)
	ci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.sf,
		MinImageCount:    uint32(info.ImageCount),
		ImageFormat:      format,
		ImageColorSpace:  convColorSpace(info.Format.Space),
		ImageExtent:      convExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: convSharing(info.Sharing),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      convPresentMode(info.Mode),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if info.Sharing == driver.Concurrent {
		fams := make([]uint32, len(info.Families))
		for i, f := range info.Families {
			fams[i] = uint32(f)
		}
		ci.QueueFamilyIndexCount = uint32(len(fams))
		ci.PQueueFamilyIndices = fams
	}
	var sc vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(d.dev, &ci, nil, &sc)); err != nil {
		return nil, errors.Wrap(err, "vk: create swapchain")
	}
	s := &swapchain{d: d, sc: sc}
	if err := s.newViews(format); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

// newViews creates an image view for every swapchain
// image.
func (s *swapchain) newViews(format vk.Format) error {
	var n uint32
	if err := checkResult(vk.GetSwapchainImages(s.d.dev, s.sc, &n, nil)); err != nil {
		return errors.Wrap(err, "vk: swapchain images")
	}
	imgs := make([]vk.Image, n)
	if err := checkResult(vk.GetSwapchainImages(s.d.dev, s.sc, &n, imgs)); err != nil {
		return errors.Wrap(err, "vk: swapchain images")
	}
	s.views = make([]driver.ImageView, 0, n)
	for _, img := range imgs[:n] {
		info := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := checkResult(vk.CreateImageView(s.d.dev, &info, nil, &view)); err != nil {
			return errors.Wrap(err, "vk: create image view")
		}
		s.views = append(s.views, &imageView{d: s.d, view: view})
	}
	return nil
}

// Views returns the image views of the swapchain images.
func (s *swapchain) Views() []driver.ImageView {
	return append([]driver.ImageView(nil), s.views...)
}

// Next acquires the next writable image.
// sem is signaled when the image can be written to.
// An out of date swapchain produces driver.ErrSwapchain and
// a negative index. A suboptimal one also produces
// driver.ErrSwapchain, but the image is acquired and the
// index is valid.
func (s *swapchain) Next(sem driver.Semaphore) (int, error) {
	var idx uint32
	res := vk.AcquireNextImage(s.d.dev, s.sc, vk.MaxUint64, semHandle(sem), vk.NullFence, &idx)
	switch res {
	case vk.Success:
		return int(idx), nil
	case vk.Suboptimal:
		return int(idx), driver.ErrSwapchain
	case vk.ErrorOutOfDate:
		return -1, driver.ErrSwapchain
	case vk.Timeout, vk.NotReady:
		return -1, driver.ErrTimeout
	}
	return -1, checkResult(res)
}

// Present presents the image identified by index once
// wait is signaled.
func (s *swapchain) Present(index int, wait driver.Semaphore) error {
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{s.sc},
		PImageIndices:  []uint32{uint32(index)},
	}
	if wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{semHandle(wait)}
	}
	switch res := vk.QueuePresent(s.d.pque, &info); res {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return driver.ErrSwapchain
	default:
		return checkResult(res)
	}
}

// Destroy destroys the swapchain and its image views.
func (s *swapchain) Destroy() {
	if s == nil {
		return
	}
	for _, v := range s.views {
		v.Destroy()
	}
	if s.d != nil {
		vk.DestroySwapchain(s.d.dev, s.sc, nil)
	}
	*s = swapchain{}
}

// imageView implements driver.ImageView.
type imageView struct {
	d    *Driver
	view vk.ImageView
}

// Destroy destroys the image view.
func (v *imageView) Destroy() {
	if v == nil {
		return
	}
	if v.d != nil {
		vk.DestroyImageView(v.d.dev, v.view, nil)
	}
	*v = imageView{}
}
