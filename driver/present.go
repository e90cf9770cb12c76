// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"
)

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = errors.New("driver: presentation not supported")

// ErrWindow represents an error related to a specific window.
// This error usually indicates that a window misconfiguration
// is preventing correct operation, or that the surface was
// lost.
var ErrWindow = errors.New("driver: window-related error")

// ErrSwapchain represents an error related to a specific
// swapchain.
// This error indicates that changes to the window or
// compositor made the swapchain stale (i.e., out of date
// or suboptimal). It is recovered by recreating the
// swapchain.
var ErrSwapchain = errors.New("driver: swapchain-related error")

// ErrSurfaceCreation means that a swapchain could not be
// created with the current parameters.
var ErrSurfaceCreation = errors.New("driver: cannot create presentation surface")

// Extent is a two-dimensional size in pixels.
type Extent struct {
	Width, Height int
}

// UndefinedExtent is the sentinel value used in
// SurfaceCaps.Current to indicate that the surface size is
// determined by the extent of the swapchain targeting it.
const UndefinedExtent = 0xFFFFFFFF

// ColorSpace is the type of presentation color spaces.
type ColorSpace int

// Color spaces.
const (
	SRGBNonlinear ColorSpace = iota
	ExtendedSRGBLinear
	DisplayP3Nonlinear
	OtherColorSpace
)

// SurfaceFormat is a pairing of pixel format and color
// space supported by a surface.
type SurfaceFormat struct {
	Format PixelFmt
	Space  ColorSpace
}

// PresentMode is the type of presentation modes.
type PresentMode int

// Presentation modes.
const (
	Immediate PresentMode = iota
	Mailbox
	FIFO
	FIFORelaxed
)

// String implements fmt.Stringer.
func (m PresentMode) String() string {
	switch m {
	case Immediate:
		return "Immediate"
	case Mailbox:
		return "Mailbox"
	case FIFO:
		return "FIFO"
	case FIFORelaxed:
		return "FIFORelaxed"
	}
	return "Unknown"
}

// SharingMode is the type of swapchain image sharing modes.
type SharingMode int

// Sharing modes.
const (
	// Exclusive means that images are owned by a single
	// queue family at a time.
	Exclusive SharingMode = iota
	// Concurrent means that images can be accessed from
	// multiple queue families.
	Concurrent
)

// SurfaceCaps describes the capabilities of a surface.
// Current's width and height are both UndefinedExtent
// when the surface size is not fixed.
// MaxImages is zero when there is no upper bound.
type SurfaceCaps struct {
	MinImages int
	MaxImages int
	Current   Extent
	MinExtent Extent
	MaxExtent Extent
}

// SwapchainInfo describes the parameters of a new swapchain.
type SwapchainInfo struct {
	Format     SurfaceFormat
	Mode       PresentMode
	Extent     Extent
	ImageCount int
	Sharing    SharingMode
	// Families must be nil if Sharing is Exclusive.
	Families []int
	// Old, if not nil, is the swapchain being replaced.
	// It is handed to the driver so that resources can
	// be reused, and it must be destroyed by the caller
	// after the new swapchain is created.
	Old Swapchain
}

// Presenter is the interface that a GPU may implement
// to enable presentation on a window surface.
type Presenter interface {
	// Capabilities queries the surface capabilities.
	Capabilities() (SurfaceCaps, error)

	// Formats queries the supported surface formats.
	Formats() ([]SurfaceFormat, error)

	// PresentModes queries the supported presentation
	// modes.
	PresentModes() ([]PresentMode, error)

	// NewSwapchain creates a new swapchain.
	NewSwapchain(info *SwapchainInfo) (Swapchain, error)
}

// Swapchain is the interface that defines a n-buffered
// swapchain for presentation.
// To present, one calls Next to obtain the index of an
// image view to target, records and submits commands
// that wait on the semaphore given to Next, and then
// calls Present with a semaphore signaled by the
// submission.
type Swapchain interface {
	Destroyer

	// Views returns the list of image views that
	// comprises the swapchain.
	// This value remains unchanged as long as the
	// swapchain's Destroy method is not called.
	Views() []ImageView

	// Next returns the index of the next writable
	// image view. sem is signaled when the image
	// can be written.
	// It blocks until an image is available.
	// If the swapchain is stale, it returns
	// ErrSwapchain. The index returned along with
	// ErrSwapchain is non-negative if an image was
	// acquired anyway, in which case sem will be
	// signaled.
	Next(sem Semaphore) (int, error)

	// Present presents the image view identified
	// by index once wait is signaled.
	// It returns ErrSwapchain if the swapchain is
	// stale; the presentation request is still
	// consumed in this case.
	Present(index int, wait Semaphore) error
}
