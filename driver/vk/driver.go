// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API.
package vk

import (
	"context"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/internal/logging"
)

const driverName = "vulkan"

const validationLayer = "VK_LAYER_KHRONOS_validation\x00"

const (
	debugReportExt = "VK_EXT_debug_report\x00"
	swapchainExt   = "VK_KHR_swapchain\x00"
)

// Window is the interface that a window must implement to
// be presented to.
type Window interface {
	// ProcAddr returns the address of vkGetInstanceProcAddr.
	ProcAddr() unsafe.Pointer

	// RequiredExtensions returns the names of the instance
	// extensions needed to create a surface for the window.
	RequiredExtensions() []string

	// CreateSurface creates a surface for the window using
	// the given VkInstance.
	CreateSurface(instance any) (uintptr, error)
}

// Options configure the driver.
type Options struct {
	// AppName is the application name given to the instance.
	AppName string

	// Validation enables the validation layer, if available.
	// Validation messages are logged.
	Validation bool

	// Logger, if nil, defaults to the package logger.
	Logger *slog.Logger
}

// Driver implements driver.GPU and driver.Presenter.
type Driver struct {
	log *slog.Logger

	inst  vk.Instance
	dbg   vk.DebugReportCallback
	sf    vk.Surface
	pdev  vk.PhysicalDevice
	dname string
	dev   vk.Device
	layer bool

	gfam  uint32
	pfam  uint32
	gque  vk.Queue
	pque  vk.Queue
	cpool vk.CommandPool
}

// Open initializes the driver for presentation to win.
// opts may be nil.
func Open(win Window, opts *Options) (d *Driver, err error) {
	if opts == nil {
		opts = &Options{}
	}
	d = &Driver{log: logging.Or(opts.Logger)}
	defer func() {
		if err != nil {
			d.Close()
			d = nil
		}
	}()
	vk.SetGetInstanceProcAddr(win.ProcAddr())
	if err = vk.Init(); err != nil {
		err = errors.Wrap(driver.ErrNotInstalled, err.Error())
		return
	}
	if err = d.initInstance(win, opts); err != nil {
		return
	}
	surf, err := win.CreateSurface(d.inst)
	if err != nil {
		err = errors.Wrapf(driver.ErrWindow, "vk: create surface: %v", err)
		return
	}
	d.sf = vk.SurfaceFromPointer(surf)
	if err = d.initDevice(); err != nil {
		return
	}
	if err = d.initCmdPool(); err != nil {
		return
	}
	d.log.Info("vulkan driver opened",
		"device", d.dname,
		"graphicsFamily", d.gfam,
		"presentFamily", d.pfam,
		"validation", d.dbg != vk.NullDebugReportCallback)
	return
}

// initInstance initializes the Vulkan instance.
func (d *Driver) initInstance(win Window, opts *Options) error {
	exts := make([]string, 0, 4)
	for _, e := range win.RequiredExtensions() {
		exts = append(exts, cstr(e))
	}
	var layers []string
	if opts.Validation {
		if hasLayer(validationLayer) {
			layers = append(layers, validationLayer)
			exts = append(exts, debugReportExt)
			d.layer = true
		} else {
			d.log.Warn("vk: validation layer not available")
		}
	}
	appInfo := vk.ApplicationInfo{
		SType:            vk.StructureTypeApplicationInfo,
		PApplicationName: cstr(opts.AppName),
		PEngineName:      cstr(driverName),
		ApiVersion:       vk.MakeVersion(1, 0, 0),
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}
	var inst vk.Instance
	if err := checkResult(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return errors.Wrap(err, "vk: create instance")
	}
	d.inst = inst
	if err := vk.InitInstance(inst); err != nil {
		return errors.Wrap(err, "vk: init instance")
	}
	if d.layer {
		d.initDebug()
	}
	return nil
}

// initDebug routes validation messages to the logger.
// Failure is not fatal.
func (d *Driver) initDebug() {
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint, code int32, prefix string, msg string, _ unsafe.Pointer) vk.Bool32 {
			d.log.Log(context.Background(), debugLevel(flags), "vk: validation", "layer", prefix, "code", code, "msg", msg)
			return vk.False
		},
	}
	var dbg vk.DebugReportCallback
	if err := checkResult(vk.CreateDebugReportCallback(d.inst, &info, nil, &dbg)); err != nil {
		d.log.Warn("vk: debug report callback", "err", err)
		return
	}
	d.dbg = dbg
}

// debugLevel converts debug report flags into a log level.
func debugLevel(flags vk.DebugReportFlags) slog.Level {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// hasLayer returns whether the named instance layer is
// available.
func hasLayer(name string) bool {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success || n == 0 {
		return false
	}
	props := make([]vk.LayerProperties, n)
	if vk.EnumerateInstanceLayerProperties(&n, props) != vk.Success {
		return false
	}
	name = strings.TrimRight(name, "\x00")
	for i := range props {
		props[i].Deref()
		if vk.ToString(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// deviceCandidate is a physical device that can be used.
type deviceCandidate struct {
	pdev   vk.PhysicalDevice
	name   string
	weight int
	gfam   uint32
	pfam   uint32
}

// initDevice selects a physical device and creates the
// logical device along with its queues.
func (d *Driver) initDevice() error {
	var n uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(d.inst, &n, nil)); err != nil {
		return errors.Wrap(err, "vk: enumerate physical devices")
	}
	if n == 0 {
		return driver.ErrNoDevice
	}
	devs := make([]vk.PhysicalDevice, n)
	if err := checkResult(vk.EnumeratePhysicalDevices(d.inst, &n, devs)); err != nil {
		return errors.Wrap(err, "vk: enumerate physical devices")
	}

	// The bare minimum is a device that supports swapchains
	// and has queues for graphics and presentation.
	// Hardware-accelerated devices are preferred.
	var best deviceCandidate
	for _, pdev := range devs[:n] {
		c, ok := d.candidate(pdev)
		if !ok {
			continue
		}
		d.log.Debug("vk: device candidate", "device", c.name, "weight", c.weight)
		if c.weight > best.weight {
			best = c
		}
	}
	if best.weight == 0 {
		return driver.ErrNoDevice
	}
	d.pdev = best.pdev
	d.dname = best.name
	d.gfam = best.gfam
	d.pfam = best.pfam

	prio := []float32{1}
	queInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.gfam,
		QueueCount:       1,
		PQueuePriorities: prio,
	}}
	if d.pfam != d.gfam {
		queInfos = append(queInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.pfam,
			QueueCount:       1,
			PQueuePriorities: prio,
		})
	}
	exts := []string{swapchainExt}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queInfos)),
		PQueueCreateInfos:       queInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}
	if d.layer {
		info.EnabledLayerCount = 1
		info.PpEnabledLayerNames = []string{validationLayer}
	}
	var dev vk.Device
	if err := checkResult(vk.CreateDevice(d.pdev, &info, nil, &dev)); err != nil {
		return errors.Wrap(err, "vk: create device")
	}
	d.dev = dev
	var que vk.Queue
	vk.GetDeviceQueue(d.dev, d.gfam, 0, &que)
	d.gque = que
	vk.GetDeviceQueue(d.dev, d.pfam, 0, &que)
	d.pque = que
	return nil
}

// candidate checks whether pdev can be used.
func (d *Driver) candidate(pdev vk.PhysicalDevice) (c deviceCandidate, ok bool) {
	if !hasDeviceExt(pdev, swapchainExt) {
		return
	}
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &n, nil)
	props := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &n, props)

	gfam, pfam := -1, -1
	for i := range props[:n] {
		props[i].Deref()
		graph := props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		var pres vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pdev, uint32(i), d.sf, &pres)
		// A family that supports both is preferred.
		if graph && pres == vk.True {
			gfam, pfam = i, i
			break
		}
		if graph && gfam == -1 {
			gfam = i
		}
		if pres == vk.True && pfam == -1 {
			pfam = i
		}
	}
	if gfam == -1 || pfam == -1 {
		return
	}

	var dprops vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pdev, &dprops)
	dprops.Deref()
	c = deviceCandidate{
		pdev:   pdev,
		name:   vk.ToString(dprops.DeviceName[:]),
		weight: 1,
		gfam:   uint32(gfam),
		pfam:   uint32(pfam),
	}
	switch dprops.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		c.weight += 2
	case vk.PhysicalDeviceTypeIntegratedGpu:
		c.weight++
	}
	if gfam == pfam {
		c.weight++
	}
	return c, true
}

// hasDeviceExt returns whether pdev supports the named
// device extension.
func hasDeviceExt(pdev vk.PhysicalDevice, name string) bool {
	var n uint32
	if vk.EnumerateDeviceExtensionProperties(pdev, "", &n, nil) != vk.Success || n == 0 {
		return false
	}
	props := make([]vk.ExtensionProperties, n)
	if vk.EnumerateDeviceExtensionProperties(pdev, "", &n, props) != vk.Success {
		return false
	}
	name = strings.TrimRight(name, "\x00")
	for i := range props[:n] {
		props[i].Deref()
		if vk.ToString(props[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

// initCmdPool creates the command pool from which command
// buffers are allocated.
func (d *Driver) initCmdPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.gfam,
	}
	var pool vk.CommandPool
	if err := checkResult(vk.CreateCommandPool(d.dev, &info, nil, &pool)); err != nil {
		return errors.Wrap(err, "vk: create command pool")
	}
	d.cpool = pool
	return nil
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// DeviceName returns the name of the physical device that
// the driver is using.
func (d *Driver) DeviceName() string { return d.dname }

// QueueFamilies returns the queue families used for
// graphics and presentation.
func (d *Driver) QueueFamilies() (graphics, present int) {
	return int(d.gfam), int(d.pfam)
}

// WaitIdle blocks until the device is idle.
func (d *Driver) WaitIdle() error {
	return checkResult(vk.DeviceWaitIdle(d.dev))
}

// Close deinitializes the driver.
// Every object created from d must have been destroyed.
func (d *Driver) Close() {
	if d == nil {
		return
	}
	if d.dev != nil {
		vk.DeviceWaitIdle(d.dev)
		if d.cpool != vk.NullCommandPool {
			vk.DestroyCommandPool(d.dev, d.cpool, nil)
		}
		vk.DestroyDevice(d.dev, nil)
	}
	if d.inst != nil {
		if d.sf != vk.NullSurface {
			vk.DestroySurface(d.inst, d.sf, nil)
		}
		if d.dbg != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(d.inst, d.dbg, nil)
		}
		vk.DestroyInstance(d.inst, nil)
	}
	*d = Driver{log: d.log}
}

// cstr returns s terminated by a null byte.
func cstr(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// checkResult returns an error derived from a VkResult value.
// If such value does not indicate an error, it returns nil instead.
func checkResult(res vk.Result) error {
	if res >= 0 {
		// Not an error: VK_ERROR_* values are all negative.
		return nil
	}
	switch res {
	case vk.ErrorOutOfHostMemory:
		return errNoHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return errNoDeviceMemory
	case vk.ErrorInitializationFailed:
		return errInitFailed
	case vk.ErrorDeviceLost:
		return errDeviceLost
	case vk.ErrorLayerNotPresent:
		return errNoLayer
	case vk.ErrorExtensionNotPresent:
		return errNoExtension
	case vk.ErrorFeatureNotPresent:
		return errNoFeature
	case vk.ErrorIncompatibleDriver:
		return errDriverCompat
	case vk.ErrorTooManyObjects:
		return errTooManyObjects
	case vk.ErrorFormatNotSupported:
		return errUnsupportedFormat
	case vk.ErrorSurfaceLost:
		return errSurfaceLost
	case vk.ErrorNativeWindowInUse:
		return errWindowInUse
	case vk.ErrorOutOfDate:
		return errOutOfDate
	}
	return errors.Wrapf(errUnknown, "VkResult %d", res)
}

// Common Vulkan errors (VK_ERROR_*).
var (
	errNoHostMemory      = driver.ErrNoHostMemory
	errNoDeviceMemory    = driver.ErrNoDeviceMemory
	errInitFailed        = errors.New("vk: initialization failed")
	errDeviceLost        = driver.ErrDeviceLost
	errNoLayer           = errors.New("vk: layer not present")
	errNoExtension       = errors.New("vk: extension not present")
	errNoFeature         = errors.New("vk: feature not present")
	errDriverCompat      = errors.New("vk: incompatible driver")
	errTooManyObjects    = errors.New("vk: too many objects")
	errUnsupportedFormat = errors.New("vk: format not supported")
	errSurfaceLost       = errors.Wrap(driver.ErrSurfaceCreation, "vk: surface lost")
	errWindowInUse       = errors.Wrap(driver.ErrWindow, "vk: native window in use")
	errOutOfDate         = driver.ErrSwapchain
	errUnknown           = errors.New("vk: unknown error")
)
