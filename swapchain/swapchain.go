// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package swapchain implements the presentation surface:
// the set of presentable images targeted by the frame loop,
// together with their views and framebuffers.
//
// Policy decisions (format, present mode, extent, image
// count and sharing mode) are made here, on top of the
// queries exposed by driver.Presenter.
package swapchain

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/internal/logging"
)

// Surface is the interface that the window backing the
// swapchain must implement.
type Surface interface {
	// FramebufferSize returns the size of the window's
	// framebuffer in pixels.
	FramebufferSize() (width, height int)

	// WaitEvents blocks until the window system has
	// events to process.
	// It is called while the framebuffer is zero-sized,
	// which happens when the window is minimized.
	WaitEvents()
}

// Status is the status of an acquisition.
type Status int

// Acquisition statuses.
const (
	Ready Status = iota
	Stale
	Failed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Stale:
		return "Stale"
	case Failed:
		return "Failed"
	}
	return "Status(?)"
}

// Acquisition is the result of Swapchain.Acquire.
type Acquisition struct {
	Status Status
	// Index is the acquired image when Status is Ready.
	Index int
	// Signaled indicates that, although Status is Stale,
	// an image was acquired and the semaphore given to
	// Acquire will be signaled. Such semaphore must not
	// be used for another acquisition.
	Signaled bool
	// Err is set when Status is Failed.
	Err error
}

// Swapchain is a presentation surface.
// It owns the driver swapchain, one image view per image
// and one framebuffer per view.
// The image list only changes during New, Recreate and
// Destroy.
type Swapchain struct {
	gpu  driver.GPU
	pres driver.Presenter
	win  Surface
	log  *slog.Logger

	sc      driver.Swapchain
	views   []driver.ImageView
	fbs     []driver.Framebuf
	pass    driver.RenderPass
	format  driver.SurfaceFormat
	mode    driver.PresentMode
	extent  driver.Extent
	sharing driver.SharingMode
	fams    []int
	gen     uint64
}

// New creates a new swapchain presenting to win.
// Framebuffers are not created until SetRenderPass is
// called. A nil logger means the shared logger.
// Errors that prevent creation at the current parameters
// wrap driver.ErrSurfaceCreation. This includes a surface
// whose formats have no driver.PixelFmt equivalent, since
// the Presenter omits such formats from its list.
func New(gpu driver.GPU, pres driver.Presenter, win Surface, logger *slog.Logger) (*Swapchain, error) {
	s := &Swapchain{
		gpu:  gpu,
		pres: pres,
		win:  win,
		log:  logging.Or(logger),
	}
	fmts, err := pres.Formats()
	if err != nil {
		return nil, errors.Wrap(err, "swapchain: query formats")
	}
	if len(fmts) == 0 {
		return nil, errors.Wrap(driver.ErrSurfaceCreation, "swapchain: no surface formats")
	}
	s.format = ChooseFormat(fmts)
	if err := s.create(); err != nil {
		return nil, err
	}
	s.log.Info("swapchain created",
		"format", s.format.Format,
		"mode", s.mode,
		"extent", s.extent,
		"images", len(s.views))
	return s, nil
}

// create creates s.sc and s.views, replacing any existing
// swapchain. The replaced swapchain is passed to the driver
// as the old swapchain and destroyed right after the new one
// exists.
// It does not touch framebuffers.
func (s *Swapchain) create() error {
	caps, err := s.pres.Capabilities()
	if err != nil {
		return errors.Wrap(err, "swapchain: query capabilities")
	}
	modes, err := s.pres.PresentModes()
	if err != nil {
		return errors.Wrap(err, "swapchain: query present modes")
	}
	if len(modes) == 0 {
		return errors.Wrap(driver.ErrSurfaceCreation, "swapchain: no present modes")
	}
	fbw, fbh := s.win.FramebufferSize()
	extent := ChooseExtent(&caps, fbw, fbh)
	if extent.Width <= 0 || extent.Height <= 0 {
		return errors.Wrapf(driver.ErrSurfaceCreation, "swapchain: invalid extent %dx%d", extent.Width, extent.Height)
	}
	graph, pres := s.gpu.QueueFamilies()
	sharing, fams := Sharing(graph, pres)
	info := driver.SwapchainInfo{
		Format:     s.format,
		Mode:       ChoosePresentMode(modes),
		Extent:     extent,
		ImageCount: ImageCount(&caps),
		Sharing:    sharing,
		Families:   fams,
		Old:        s.sc,
	}
	sc, err := s.pres.NewSwapchain(&info)
	if err != nil {
		return errors.Wrapf(driver.ErrSurfaceCreation, "swapchain: %v", err)
	}
	if s.sc != nil {
		s.sc.Destroy()
	}
	s.sc = sc
	s.views = sc.Views()
	s.mode = info.Mode
	s.extent = info.Extent
	s.sharing = info.Sharing
	s.fams = info.Families
	return nil
}

// SetRenderPass sets the render pass used to create the
// framebuffers and (re)creates them.
// The render pass must outlive the swapchain's framebuffers,
// i.e., it must not be destroyed before either Destroy or
// another call to SetRenderPass.
func (s *Swapchain) SetRenderPass(pass driver.RenderPass) error {
	s.destroyFBs()
	s.pass = pass
	return s.newFBs()
}

func (s *Swapchain) newFBs() error {
	if s.pass == nil {
		return nil
	}
	s.fbs = make([]driver.Framebuf, 0, len(s.views))
	for i, v := range s.views {
		fb, err := s.pass.NewFB(v, s.extent.Width, s.extent.Height)
		if err != nil {
			s.destroyFBs()
			return errors.Wrapf(err, "swapchain: framebuffer %d", i)
		}
		s.fbs = append(s.fbs, fb)
	}
	return nil
}

func (s *Swapchain) destroyFBs() {
	for _, fb := range s.fbs {
		fb.Destroy()
	}
	s.fbs = nil
}

// Acquire requests the next presentable image.
// sem is signaled when the image can be written to.
// It blocks until an image is available.
func (s *Swapchain) Acquire(sem driver.Semaphore) Acquisition {
	idx, err := s.sc.Next(sem)
	switch {
	case err == nil:
		return Acquisition{Status: Ready, Index: idx}
	case errors.Is(err, driver.ErrSwapchain):
		return Acquisition{Status: Stale, Index: -1, Signaled: idx >= 0}
	default:
		return Acquisition{Status: Failed, Index: -1, Err: err}
	}
}

// Present presents the image identified by index once wait
// is signaled.
// It reports stale as true when the swapchain should be
// recreated; this is not an error.
func (s *Swapchain) Present(index int, wait driver.Semaphore) (stale bool, err error) {
	err = s.sc.Present(index, wait)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, driver.ErrSwapchain):
		return true, nil
	default:
		return false, err
	}
}

// Recreate rebuilds the swapchain to match the current
// state of the window.
// It waits for the device to become idle, so it must not
// be called while the caller holds work that is yet to be
// submitted and waited on. The format chosen on creation
// is kept across recreations.
// The generation is incremented on success.
func (s *Swapchain) Recreate() error {
	for {
		w, h := s.win.FramebufferSize()
		if w > 0 && h > 0 {
			break
		}
		s.win.WaitEvents()
	}
	if err := s.gpu.WaitIdle(); err != nil {
		return errors.Wrap(err, "swapchain: wait idle")
	}
	s.destroyFBs()
	fmts, err := s.pres.Formats()
	if err != nil {
		return errors.Wrap(err, "swapchain: query formats")
	}
	found := false
	for _, f := range fmts {
		if f == s.format {
			found = true
			break
		}
	}
	if !found {
		return errors.Wrapf(driver.ErrSurfaceCreation, "swapchain: format %v no longer supported", s.format.Format)
	}
	if err := s.create(); err != nil {
		return err
	}
	if err := s.newFBs(); err != nil {
		return err
	}
	s.gen++
	s.log.Debug("swapchain recreated",
		"generation", s.gen,
		"extent", s.extent,
		"images", len(s.views))
	return nil
}

// Destroy destroys the swapchain.
// The caller must ensure that no GPU work that uses the
// swapchain's images is pending.
func (s *Swapchain) Destroy() {
	if s == nil {
		return
	}
	s.destroyFBs()
	if s.sc != nil {
		s.sc.Destroy()
	}
	*s = Swapchain{}
}

// Format returns the surface format of the images.
func (s *Swapchain) Format() driver.SurfaceFormat { return s.format }

// PresentMode returns the presentation mode.
func (s *Swapchain) PresentMode() driver.PresentMode { return s.mode }

// Extent returns the size of the images.
func (s *Swapchain) Extent() driver.Extent { return s.extent }

// ImageCount returns the number of images, which may be
// greater than the number requested.
func (s *Swapchain) ImageCount() int { return len(s.views) }

// Views returns the image views, indexed by image.
func (s *Swapchain) Views() []driver.ImageView {
	return append([]driver.ImageView(nil), s.views...)
}

// Framebuf returns the framebuffer of the i-th image.
// It returns nil if no render pass was set.
func (s *Swapchain) Framebuf(i int) driver.Framebuf {
	if s.fbs == nil {
		return nil
	}
	return s.fbs[i]
}

// Sharing returns the image sharing mode along with the
// queue families attached to creation.
func (s *Swapchain) Sharing() (driver.SharingMode, []int) {
	return s.sharing, append([]int(nil), s.fams...)
}

// Generation returns the number of times the swapchain has
// been recreated.
func (s *Swapchain) Generation() uint64 { return s.gen }
