package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

/**
 * @brief The platform side of the output. A backend owns the window, or the
 * overlay window on X11, that the swapchain presents to.
 */
type VulkanBackend interface {
	// GetInstanceProcAddress returns the vkGetInstanceProcAddr of the loader.
	GetInstanceProcAddress() unsafe.Pointer
	// PlatformSurfaceExtensions lists the instance extensions the platform
	// surface needs besides VK_KHR_surface.
	PlatformSurfaceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// PresentationSupport reports whether the queue family can present to
	// the platform display.
	PresentationSupport(pd vk.PhysicalDevice, queueFamily uint32) bool
	ScreenSize() (width, height uint32)
	ScreenGeometryChanged(width, height uint32)
	UsesOverlayWindow() bool
	OverlayWindow() uintptr
	ShowOverlay()
}

// initLoader installs the loader entry point of the backend. It is safe to
// call once per scene.
func initLoader(backend VulkanBackend) error {
	procAddr := backend.GetInstanceProcAddress()
	if procAddr == nil {
		err := errors.Mark(errors.New("GetInstanceProcAddress is nil"), core.ErrInitFailed)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return errors.Mark(err, core.ErrInitFailed)
	}
	return nil
}
