// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the set of GPU interfaces that
// the frame loop depends on.
// It is designed to allow platform-specific APIs to be
// implemented in a mostly straightforward manner, and to
// allow the frame loop to be exercised without a device.
//
// There is no driver registry. Implementations are
// constructed explicitly and handed to their consumers.
package driver

import (
	"errors"
	"time"
)

// ErrNotInstalled means that a platform-specific library
// required for the driver to work is not present in the
// system.
var ErrNotInstalled = errors.New("driver: missing required library")

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoHostMemory means that host memory could not be
// allocated.
var ErrNoHostMemory = errors.New("driver: out of host memory")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrDeviceLost means that the device is in an unrecoverable
// state. Upon encountering such an error, the application
// must destroy everything that it created using the GPU
// and then close the driver. It may open the driver again
// to reinitialize it for further use.
var ErrDeviceLost = errors.New("driver: device lost")

// ErrSubmission means that the GPU rejected a batch of
// commands. As with ErrDeviceLost, the device state can
// no longer be trusted.
var ErrSubmission = errors.New("driver: submission failed")

// ErrTimeout means that a bounded wait expired before the
// awaited GPU work completed.
// It does not imply that the work will never complete.
var ErrTimeout = errors.New("driver: wait timed out")

// NoTimeout can be used as timeout argument to request a
// wait that does not expire.
const NoTimeout time.Duration = -1
