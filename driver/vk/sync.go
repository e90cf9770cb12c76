// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// semaphore implements driver.Semaphore.
type semaphore struct {
	d   *Driver
	sem vk.Semaphore
}

// NewSemaphore creates a new binary semaphore.
func (d *Driver) NewSemaphore() (driver.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sem vk.Semaphore
	if err := checkResult(vk.CreateSemaphore(d.dev, &info, nil, &sem)); err != nil {
		return nil, errors.Wrap(err, "vk: create semaphore")
	}
	return &semaphore{d: d, sem: sem}, nil
}

// Destroy destroys the semaphore.
func (s *semaphore) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		vk.DestroySemaphore(s.d.dev, s.sem, nil)
	}
	*s = semaphore{}
}

// semHandle returns the VkSemaphore of sem, which may be nil.
func semHandle(sem driver.Semaphore) vk.Semaphore {
	if sem == nil {
		return vk.NullSemaphore
	}
	return sem.(*semaphore).sem
}

// fence implements driver.Fence.
type fence struct {
	d     *Driver
	fence vk.Fence
}

// NewFence creates a new fence.
func (d *Driver) NewFence(signaled bool) (driver.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := checkResult(vk.CreateFence(d.dev, &info, nil, &f)); err != nil {
		return nil, errors.Wrap(err, "vk: create fence")
	}
	return &fence{d: d, fence: f}, nil
}

// Wait blocks until the fence is signaled or timeout
// elapses.
func (f *fence) Wait(timeout time.Duration) error {
	res := vk.WaitForFences(f.d.dev, 1, []vk.Fence{f.fence}, vk.True, waitTimeout(timeout))
	if res == vk.Timeout {
		return driver.ErrTimeout
	}
	return checkResult(res)
}

// Reset unsignals the fence.
func (f *fence) Reset() error {
	return checkResult(vk.ResetFences(f.d.dev, 1, []vk.Fence{f.fence}))
}

// Destroy destroys the fence.
func (f *fence) Destroy() {
	if f == nil {
		return
	}
	if f.d != nil {
		vk.DestroyFence(f.d.dev, f.fence, nil)
	}
	*f = fence{}
}

// fenceHandle returns the VkFence of f, which may be nil.
func fenceHandle(f driver.Fence) vk.Fence {
	if f == nil {
		return vk.NullFence
	}
	return f.(*fence).fence
}

// waitTimeout converts a timeout into nanoseconds.
// Negative values mean no timeout.
func waitTimeout(timeout time.Duration) uint64 {
	if timeout < 0 {
		return vk.MaxUint64
	}
	return uint64(timeout.Nanoseconds())
}
