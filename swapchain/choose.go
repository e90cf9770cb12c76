// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package swapchain

import (
	"github.com/gviegas/vkframe/driver"
)

// Preferred surface format.
var prefFormat = driver.SurfaceFormat{
	Format: driver.BGRA8sRGB,
	Space:  driver.SRGBNonlinear,
}

// ChooseFormat selects a surface format from fmts.
// It prefers 8-bit BGRA sRGB in the non-linear sRGB color
// space and otherwise picks the first one listed.
// fmts must not be empty.
func ChooseFormat(fmts []driver.SurfaceFormat) driver.SurfaceFormat {
	for _, f := range fmts {
		if f == prefFormat {
			return f
		}
	}
	return fmts[0]
}

// ChoosePresentMode selects a presentation mode from modes.
// It prefers Mailbox and falls back to FIFO, which every
// presentation engine supports.
func ChoosePresentMode(modes []driver.PresentMode) driver.PresentMode {
	for _, m := range modes {
		if m == driver.Mailbox {
			return m
		}
	}
	return driver.FIFO
}

// ChooseExtent selects the extent of the swapchain images.
// It uses caps.Current unless either dimension is undefined,
// in which case the framebuffer size is clamped into the
// surface bounds.
func ChooseExtent(caps *driver.SurfaceCaps, fbWidth, fbHeight int) driver.Extent {
	if caps.Current.Width != driver.UndefinedExtent && caps.Current.Height != driver.UndefinedExtent {
		return caps.Current
	}
	return driver.Extent{
		Width:  clamp(fbWidth, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(fbHeight, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

func clamp(x, lo, hi int) int { return max(lo, min(x, hi)) }

// ImageCount returns the number of images to request.
// It asks for one more than the minimum so that the
// application never has to wait on the presentation
// engine to release an image, bounded by the maximum
// when there is one.
func ImageCount(caps *driver.SurfaceCaps) int {
	n := caps.MinImages + 1
	if caps.MaxImages != 0 && n > caps.MaxImages {
		n = caps.MaxImages
	}
	return n
}

// Sharing returns the sharing mode for images used by the
// given queue families, along with the family indices to
// attach to swapchain creation.
// When both families are the same, images are exclusive
// and no indices are returned.
func Sharing(graphics, present int) (driver.SharingMode, []int) {
	if graphics == present {
		return driver.Exclusive, nil
	}
	return driver.Concurrent, uniqueFamilies(graphics, present)
}

// uniqueFamilies returns the distinct values of fams in
// the order they first appear.
func uniqueFamilies(fams ...int) []int {
	var u []int
outer:
	for _, f := range fams {
		for _, x := range u {
			if x == f {
				continue outer
			}
		}
		u = append(u, f)
	}
	return u
}
