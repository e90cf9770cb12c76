// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"time"

	"golang.org/x/image/math/f32"
)

const (
	dflFramesInFlight = 2
	dflFenceTimeout   = 5 * time.Second
	dflMaxTimeouts    = 3
)

// Config is used to configure a Loop.
type Config struct {
	// The number of frames that can be recorded while
	// previous frames are still executing on the GPU.
	// The effective value is bounded by the number of
	// swapchain images.
	//
	// It must be at least 1.
	//
	// Default is 2.
	FramesInFlight int

	// Color used to clear the swapchain images at the
	// start of every frame.
	//
	// Default is opaque black.
	ClearColor f32.Vec4

	// How long to wait for a slot's previous frame to
	// complete before reporting a timeout.
	// A negative value disables the timeout.
	//
	// Default is 5 seconds.
	FenceTimeout time.Duration

	// The number of consecutive timeouts tolerated before
	// the device is considered lost.
	//
	// Default is 3.
	MaxTimeouts int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FramesInFlight: dflFramesInFlight,
		ClearColor:     f32.Vec4{0, 0, 0, 1},
		FenceTimeout:   dflFenceTimeout,
		MaxTimeouts:    dflMaxTimeouts,
	}
}

// validate replaces invalid values in cfg with defaults.
func (cfg *Config) validate() {
	if cfg.FramesInFlight < 1 {
		cfg.FramesInFlight = dflFramesInFlight
	}
	if cfg.FenceTimeout == 0 {
		cfg.FenceTimeout = dflFenceTimeout
	}
	if cfg.MaxTimeouts < 1 {
		cfg.MaxTimeouts = dflMaxTimeouts
	}
}
