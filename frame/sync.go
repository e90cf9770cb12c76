// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// Sync is the synchronization set of a frame slot.
// ImageAvailable is signaled by the presentation engine
// when the acquired image can be written, RenderFinished
// is signaled when the slot's commands complete and
// InFlight is signaled at the same time for the CPU.
//
// InFlight is created signaled so that the first wait on
// a fresh slot does not block.
type Sync struct {
	gpu            driver.GPU
	ImageAvailable driver.Semaphore
	RenderFinished driver.Semaphore
	InFlight       driver.Fence

	// Consecutive timeouts.
	timeouts int
}

// NewSync creates a new synchronization set.
func NewSync(gpu driver.GPU) (*Sync, error) {
	s := &Sync{gpu: gpu}
	var err error
	if s.ImageAvailable, err = gpu.NewSemaphore(); err != nil {
		goto fail
	}
	if s.RenderFinished, err = gpu.NewSemaphore(); err != nil {
		goto fail
	}
	if s.InFlight, err = gpu.NewFence(true); err != nil {
		goto fail
	}
	return s, nil
fail:
	s.Destroy()
	return nil, errors.Wrap(err, "frame: create sync")
}

// Wait blocks until the slot's previous submission has
// completed.
// On timeout, it returns an error wrapping
// driver.ErrTimeout, unless more than maxTimeouts
// consecutive timeouts have occurred, in which case the
// error wraps driver.ErrDeviceLost instead.
func (s *Sync) Wait(timeout time.Duration, maxTimeouts int) error {
	err := s.InFlight.Wait(timeout)
	switch {
	case err == nil:
		s.timeouts = 0
		return nil
	case errors.Is(err, driver.ErrTimeout):
		s.timeouts++
		if s.timeouts > maxTimeouts {
			return errors.Wrapf(driver.ErrDeviceLost, "frame: %d consecutive fence timeouts", s.timeouts)
		}
		return errors.Wrapf(err, "frame: fence wait (%d/%d)", s.timeouts, maxTimeouts)
	default:
		return errors.Wrap(err, "frame: fence wait")
	}
}

// Reset unsignals the slot's fence.
// It must only be called after a successful Wait and
// before the fence is handed to a new submission.
func (s *Sync) Reset() error {
	return errors.Wrap(s.InFlight.Reset(), "frame: fence reset")
}

// WaitAndReset calls Wait and, if it succeeds, Reset.
func (s *Sync) WaitAndReset(timeout time.Duration, maxTimeouts int) error {
	if err := s.Wait(timeout, maxTimeouts); err != nil {
		return err
	}
	return s.Reset()
}

// RenewImageAvailable replaces the ImageAvailable semaphore.
// It is used when an acquisition signaled the semaphore but
// the image was never consumed, which leaves the semaphore
// in a state that prevents its reuse.
// The device must be idle.
func (s *Sync) RenewImageAvailable() error {
	sem, err := s.gpu.NewSemaphore()
	if err != nil {
		return errors.Wrap(err, "frame: renew semaphore")
	}
	s.ImageAvailable.Destroy()
	s.ImageAvailable = sem
	return nil
}

// Destroy destroys the synchronization set.
// The slot's fence must be signaled, or the device idle.
func (s *Sync) Destroy() {
	if s == nil {
		return
	}
	if s.ImageAvailable != nil {
		s.ImageAvailable.Destroy()
	}
	if s.RenderFinished != nil {
		s.RenderFinished.Destroy()
	}
	if s.InFlight != nil {
		s.InFlight.Destroy()
	}
	*s = Sync{}
}
