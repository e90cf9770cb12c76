// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package wsi provides window system integration (WSI)
// for GPU drivers.
// Windows are created through GLFW with no client API,
// so that a Vulkan surface can be created for them.
// Package functions must be called from the main thread.
package wsi

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// ErrNotInit means that Init was not called or that it
// failed.
var ErrNotInit = errors.New("wsi: not initialized")

// Window is the interface that defines a drawable window.
// The purpose of a window is to provide a surface into
// which a GPU can draw.
type Window interface {
	// SetTitle sets the window's title.
	SetTitle(title string)

	// Close closes the window.
	Close()

	// Title returns the window's title.
	Title() string

	// FramebufferSize returns the size of the window's
	// framebuffer in pixels.
	// It is zero while the window is minimized.
	FramebufferSize() (width, height int)

	// Resized reports whether the framebuffer was resized
	// since the last call.
	Resized() bool

	// ShouldClose reports whether the window was asked to
	// close.
	ShouldClose() bool

	// SetShouldClose sets whether the window should close.
	SetShouldClose(value bool)

	// WaitEvents blocks until events are available and
	// then dispatches them.
	WaitEvents()

	// ProcAddr returns the address of vkGetInstanceProcAddr.
	ProcAddr() unsafe.Pointer

	// RequiredExtensions returns the names of the Vulkan
	// instance extensions needed to create a surface.
	RequiredExtensions() []string

	// CreateSurface creates a Vulkan surface for the
	// window. instance must be a valid VkInstance.
	CreateSurface(instance any) (uintptr, error)
}

var initialized bool

// Init initializes the window system.
// It must be called before NewWindow.
func Init() error {
	if initialized {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "wsi: init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("wsi: Vulkan not supported")
	}
	initialized = true
	return nil
}

// Terminate closes every window and terminates the window
// system.
func Terminate() {
	if !initialized {
		return
	}
	for _, win := range Windows() {
		win.Close()
	}
	glfw.Terminate()
	initialized = false
}

// NewWindow creates a new window.
func NewWindow(width, height int, title string) (Window, error) {
	if !initialized {
		return nil, ErrNotInit
	}
	if windowCount >= MaxWindows {
		return nil, errors.New("wsi: too many windows")
	}
	win, err := newGLFWWindow(width, height, title)
	if err != nil {
		return nil, err
	}
	for i := range createdWindows {
		if createdWindows[i] == nil {
			createdWindows[i] = win
			windowCount++
			break
		}
	}
	return win, nil
}

// The maximum number of windows that can exist at any
// given time.
const MaxWindows = 16

// Windows returns all created windows.
// The returned value becomes out of date after calls to
// NewWindow and Window.Close.
func Windows() []Window {
	if windowCount == 0 {
		return nil
	}
	wins := make([]Window, 0, windowCount)
	for i := range createdWindows {
		if createdWindows[i] != nil {
			wins = append(wins, createdWindows[i])
		}
	}
	return wins
}

// closeWindow removes win from createdWindows and
// decrements windowCount.
func closeWindow(win Window) {
	for i := range createdWindows {
		if createdWindows[i] == win {
			createdWindows[i] = nil
			windowCount--
			return
		}
	}
}

var (
	windowCount    int
	createdWindows [MaxWindows]Window
)

// Modifier is the type of modifier flags.
type Modifier int

// Modifier flags.
const (
	ModCapsLock Modifier = 1 << iota
	ModShift
	ModCtrl
	ModAlt
)

// WindowHandler is the interface that defines the methods
// for handling window events.
type WindowHandler interface {
	// WindowClose is called when a window is asked to
	// close.
	WindowClose(win Window)

	// WindowResize is called when a window's framebuffer
	// is resized.
	WindowResize(win Window, newWidth, newHeight int)
}

// SetWindowHandler sets the global WindowHandler.
func SetWindowHandler(wh WindowHandler) {
	windowHandler = wh
}

var windowHandler WindowHandler

// KeyboardHandler is the interface that defines the methods
// for handling keyboard events.
type KeyboardHandler interface {
	// KeyboardKey is called when a key is pressed/released.
	KeyboardKey(win Window, key Key, pressed bool, modMask Modifier)
}

// SetKeyboardHandler sets the global KeyboardHandler.
func SetKeyboardHandler(kh KeyboardHandler) {
	keyboardHandler = kh
}

var keyboardHandler KeyboardHandler

// Dispatch dispatches queued events.
// It does not block.
func Dispatch() {
	if initialized {
		glfw.PollEvents()
	}
}

// WaitEvents blocks until events are queued and then
// dispatches them.
func WaitEvents() {
	if initialized {
		glfw.WaitEvents()
	}
}
