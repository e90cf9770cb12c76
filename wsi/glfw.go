// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// glfwWindow implements Window.
type glfwWindow struct {
	win     *glfw.Window
	title   string
	resized bool
}

func newGLFWWindow(width, height int, title string) (*glfwWindow, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("wsi: invalid window size %dx%d", width, height)
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wsi: create window")
	}
	w := &glfwWindow{win: win, title: title}
	win.SetFramebufferSizeCallback(w.framebufferSize)
	win.SetCloseCallback(w.close)
	win.SetKeyCallback(w.key)
	return w, nil
}

func (w *glfwWindow) framebufferSize(_ *glfw.Window, width, height int) {
	w.resized = true
	if windowHandler != nil {
		windowHandler.WindowResize(w, width, height)
	}
}

func (w *glfwWindow) close(*glfw.Window) {
	if windowHandler != nil {
		windowHandler.WindowClose(w)
	}
}

func (w *glfwWindow) key(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
	if keyboardHandler == nil || action == glfw.Repeat {
		return
	}
	keyboardHandler.KeyboardKey(w, keyFrom(int(key)), action == glfw.Press, modFrom(mods))
}

// modFrom converts GLFW modifier bits to a Modifier mask.
func modFrom(mods glfw.ModifierKey) (m Modifier) {
	if mods&glfw.ModCapsLock != 0 {
		m |= ModCapsLock
	}
	if mods&glfw.ModShift != 0 {
		m |= ModShift
	}
	if mods&glfw.ModControl != 0 {
		m |= ModCtrl
	}
	if mods&glfw.ModAlt != 0 {
		m |= ModAlt
	}
	return
}

// SetTitle sets the window's title.
func (w *glfwWindow) SetTitle(title string) {
	w.win.SetTitle(title)
	w.title = title
}

// Close closes the window.
func (w *glfwWindow) Close() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
	closeWindow(w)
}

// Title returns the window's title.
func (w *glfwWindow) Title() string { return w.title }

// FramebufferSize returns the framebuffer size in pixels.
func (w *glfwWindow) FramebufferSize() (width, height int) {
	return w.win.GetFramebufferSize()
}

// Resized reports whether the framebuffer was resized
// since the last call.
func (w *glfwWindow) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// ShouldClose reports whether the window was asked to
// close.
func (w *glfwWindow) ShouldClose() bool {
	return w.win == nil || w.win.ShouldClose()
}

// SetShouldClose sets the close flag of the window.
func (w *glfwWindow) SetShouldClose(value bool) {
	w.win.SetShouldClose(value)
}

// WaitEvents blocks until events are available.
func (w *glfwWindow) WaitEvents() { glfw.WaitEvents() }

// ProcAddr returns the address of vkGetInstanceProcAddr.
func (w *glfwWindow) ProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// RequiredExtensions returns the Vulkan instance extensions
// needed to create a surface for the window.
func (w *glfwWindow) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates a Vulkan surface for the window.
func (w *glfwWindow) CreateSurface(instance any) (uintptr, error) {
	sf, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "wsi: create window surface")
	}
	return sf, nil
}
