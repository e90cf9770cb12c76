// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package swapchain

import (
	"slices"
	"testing"

	"github.com/gviegas/vkframe/driver"
)

func TestChooseFormat(t *testing.T) {
	srgb := driver.SurfaceFormat{driver.BGRA8sRGB, driver.SRGBNonlinear}
	unorm := driver.SurfaceFormat{driver.BGRA8un, driver.SRGBNonlinear}
	rgba := driver.SurfaceFormat{driver.RGBA8sRGB, driver.SRGBNonlinear}
	wrongSpace := driver.SurfaceFormat{driver.BGRA8sRGB, driver.DisplayP3Nonlinear}
	for _, x := range [...]struct {
		fmts []driver.SurfaceFormat
		want driver.SurfaceFormat
	}{
		{[]driver.SurfaceFormat{srgb}, srgb},
		{[]driver.SurfaceFormat{unorm, rgba, srgb}, srgb},
		{[]driver.SurfaceFormat{unorm, rgba}, unorm},
		{[]driver.SurfaceFormat{rgba, unorm}, rgba},
		{[]driver.SurfaceFormat{wrongSpace, unorm}, wrongSpace},
	} {
		if have := ChooseFormat(x.fmts); have != x.want {
			t.Fatalf("ChooseFormat(%v):\nhave %v\nwant %v", x.fmts, have, x.want)
		}
	}
}

func TestChoosePresentMode(t *testing.T) {
	for _, x := range [...]struct {
		modes []driver.PresentMode
		want  driver.PresentMode
	}{
		{[]driver.PresentMode{driver.FIFO}, driver.FIFO},
		{[]driver.PresentMode{driver.FIFO, driver.Mailbox}, driver.Mailbox},
		{[]driver.PresentMode{driver.Immediate, driver.FIFORelaxed, driver.FIFO}, driver.FIFO},
		{[]driver.PresentMode{driver.Mailbox, driver.Immediate}, driver.Mailbox},
		{nil, driver.FIFO},
	} {
		if have := ChoosePresentMode(x.modes); have != x.want {
			t.Fatalf("ChoosePresentMode(%v):\nhave %v\nwant %v", x.modes, have, x.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	undef := driver.Extent{driver.UndefinedExtent, driver.UndefinedExtent}
	for _, x := range [...]struct {
		caps     driver.SurfaceCaps
		fbw, fbh int
		want     driver.Extent
	}{
		{
			driver.SurfaceCaps{Current: driver.Extent{800, 600}},
			1024, 768,
			driver.Extent{800, 600},
		},
		{
			driver.SurfaceCaps{Current: undef, MinExtent: driver.Extent{1, 1}, MaxExtent: driver.Extent{4096, 4096}},
			1024, 768,
			driver.Extent{1024, 768},
		},
		{
			driver.SurfaceCaps{Current: undef, MinExtent: driver.Extent{64, 64}, MaxExtent: driver.Extent{1920, 1080}},
			4000, 10,
			driver.Extent{1920, 64},
		},
		{
			driver.SurfaceCaps{Current: undef, MinExtent: driver.Extent{64, 64}, MaxExtent: driver.Extent{1920, 1080}},
			1920, 1080,
			driver.Extent{1920, 1080},
		},
		{
			driver.SurfaceCaps{Current: driver.Extent{800, driver.UndefinedExtent}, MinExtent: driver.Extent{1, 1}, MaxExtent: driver.Extent{4096, 4096}},
			1024, 768,
			driver.Extent{1024, 768},
		},
		{
			driver.SurfaceCaps{Current: driver.Extent{driver.UndefinedExtent, 600}, MinExtent: driver.Extent{1, 1}, MaxExtent: driver.Extent{4096, 4096}},
			640, 480,
			driver.Extent{640, 480},
		},
	} {
		if have := ChooseExtent(&x.caps, x.fbw, x.fbh); have != x.want {
			t.Fatalf("ChooseExtent(%v, %d, %d):\nhave %v\nwant %v", x.caps, x.fbw, x.fbh, have, x.want)
		}
	}
}

func TestChooseExtentWithinBounds(t *testing.T) {
	caps := driver.SurfaceCaps{
		Current:   driver.Extent{driver.UndefinedExtent, driver.UndefinedExtent},
		MinExtent: driver.Extent{16, 32},
		MaxExtent: driver.Extent{2048, 1024},
	}
	for w := 0; w < 4096; w += 97 {
		for h := 0; h < 4096; h += 89 {
			e := ChooseExtent(&caps, w, h)
			if e.Width < caps.MinExtent.Width || e.Width > caps.MaxExtent.Width ||
				e.Height < caps.MinExtent.Height || e.Height > caps.MaxExtent.Height {
				t.Fatalf("ChooseExtent(%d, %d): %v out of bounds", w, h, e)
			}
		}
	}
}

func TestImageCount(t *testing.T) {
	for _, x := range [...]struct {
		min, max int
		want     int
	}{
		{2, 0, 3},
		{3, 3, 3},
		{2, 8, 3},
		{1, 2, 2},
		{4, 0, 5},
	} {
		caps := driver.SurfaceCaps{MinImages: x.min, MaxImages: x.max}
		n := ImageCount(&caps)
		if n != x.want {
			t.Fatalf("ImageCount(min=%d, max=%d):\nhave %d\nwant %d", x.min, x.max, n, x.want)
		}
		if n < x.min || (x.max != 0 && n > x.max) {
			t.Fatalf("ImageCount(min=%d, max=%d): %d out of bounds", x.min, x.max, n)
		}
	}
}

func TestSharing(t *testing.T) {
	mode, fams := Sharing(0, 0)
	if mode != driver.Exclusive || fams != nil {
		t.Fatalf("Sharing(0, 0):\nhave %v, %v\nwant %v, nil", mode, fams, driver.Exclusive)
	}
	mode, fams = Sharing(0, 2)
	if mode != driver.Concurrent || !slices.Equal(fams, []int{0, 2}) {
		t.Fatalf("Sharing(0, 2):\nhave %v, %v\nwant %v, [0 2]", mode, fams, driver.Concurrent)
	}
	mode, fams = Sharing(3, 1)
	if mode != driver.Concurrent || !slices.Equal(fams, []int{3, 1}) {
		t.Fatalf("Sharing(3, 1):\nhave %v, %v\nwant %v, [3 1]", mode, fams, driver.Concurrent)
	}
}

func TestUniqueFamilies(t *testing.T) {
	for _, x := range [...]struct {
		in, want []int
	}{
		{[]int{1}, []int{1}},
		{[]int{1, 1}, []int{1}},
		{[]int{2, 0, 2, 1, 0}, []int{2, 0, 1}},
	} {
		if have := uniqueFamilies(x.in...); !slices.Equal(have, x.want) {
			t.Fatalf("uniqueFamilies(%v):\nhave %v\nwant %v", x.in, have, x.want)
		}
	}
}
