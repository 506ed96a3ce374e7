package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/containers"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	kmath "github.com/spaghettifunk/vkcompositor/engine/math"
)

const maxDamageHistory = 10

// VulkanSwapchainBuffer is one presentable image.
type VulkanSwapchainBuffer struct {
	Image       vk.Image
	View        *VulkanImageView
	Framebuffer *VulkanFramebuffer

	// Queue family ownership transfers of this image, recorded once on the
	// present queue. Only used when the present queue is a separate family.
	ReleaseCommandBuffer *VulkanCommandBuffer
	AcquireCommandBuffer *VulkanCommandBuffer

	sequence uint64
}

func (b *VulkanSwapchainBuffer) destroy() {
	for _, cmd := range []*VulkanCommandBuffer{b.ReleaseCommandBuffer, b.AcquireCommandBuffer} {
		if cmd != nil {
			cmd.Close()
		}
	}
	if b.Framebuffer != nil {
		b.Framebuffer.Close()
	}
	if b.View != nil {
		b.View.Close()
	}
	*b = VulkanSwapchainBuffer{}
}

type VulkanSwapchainConfig struct {
	Surface             vk.Surface
	SurfaceFormat       vk.SurfaceFormat
	PresentMode         vk.PresentMode
	PreferredImageCount uint32
	// Framebuffers are created against the load render pass; the other
	// variants are compatible with it.
	RenderPass *VulkanRenderPass
	// Present queue command pool for the ownership transfer command buffers.
	PresentCommandPool *VulkanCommandPool
}

/**
 * @brief The swapchain of the output surface. It tracks buffer age and the
 * damage of recent presents so that partial repaints can bring an older back
 * buffer up to date.
 */
type VulkanSwapchain struct {
	device   *VulkanDevice
	instance InstanceDriver
	config   VulkanSwapchainConfig

	handle  vk.Swapchain
	extent  vk.Extent2D
	buffers []VulkanSwapchainBuffer

	current  int
	acquired bool
	sequence uint64
	valid    bool

	damageHistory *containers.RingQueue[kmath.Region]
}

func NewVulkanSwapchain(device *VulkanDevice, instance InstanceDriver, config VulkanSwapchainConfig) *VulkanSwapchain {
	return &VulkanSwapchain{
		device:        device,
		instance:      instance,
		config:        config,
		current:       -1,
		damageHistory: containers.NewRingQueue[kmath.Region](maxDamageHistory),
	}
}

func (s *VulkanSwapchain) IsValid() bool         { return s.valid }
func (s *VulkanSwapchain) Invalidate()           { s.valid = false }
func (s *VulkanSwapchain) Handle() vk.Swapchain  { return s.handle }
func (s *VulkanSwapchain) Extent() vk.Extent2D   { return s.extent }
func (s *VulkanSwapchain) Format() vk.Format     { return s.config.SurfaceFormat.Format }
func (s *VulkanSwapchain) ImageCount() int       { return len(s.buffers) }
func (s *VulkanSwapchain) IsImageAcquired() bool { return s.acquired }

func (s *VulkanSwapchain) Rect() kmath.Rect {
	return kmath.NewRect(0, 0, int32(s.extent.Width), int32(s.extent.Height))
}

// CurrentIndex is the index of the last acquired image, or -1.
func (s *VulkanSwapchain) CurrentIndex() int {
	return s.current
}

func (s *VulkanSwapchain) CurrentBuffer() *VulkanSwapchainBuffer {
	if s.current < 0 || s.current >= len(s.buffers) {
		return nil
	}
	return &s.buffers[s.current]
}

func (s *VulkanSwapchain) Buffer(index int) *VulkanSwapchainBuffer {
	return &s.buffers[index]
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, alpha := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaInheritBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
	} {
		if supported&vk.CompositeAlphaFlags(alpha) != 0 {
			return alpha
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func chooseImageCount(preferred uint32, caps *vk.SurfaceCapabilities) uint32 {
	count := max(preferred, caps.MinImageCount)
	if caps.MaxImageCount > 0 {
		count = min(count, caps.MaxImageCount)
	}
	return count
}

func chooseExtent(width, height uint32, caps *vk.SurfaceCapabilities) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  kmath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: kmath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

/**
 * @brief (Re)creates the swapchain for a surface of the given size. The
 * previous swapchain is handed to the driver and destroyed once the present
 * queue is idle.
 * @return The driver result of the creation.
 */
func (s *VulkanSwapchain) Create(width, height uint32) vk.Result {
	s.valid = false

	caps, res := s.instance.GetPhysicalDeviceSurfaceCapabilities(s.device.PhysicalDevice, s.config.Surface)
	if res != vk.Success {
		resultError(res, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
		return res
	}

	extent := chooseExtent(width, height, &caps)
	imageCount := chooseImageCount(s.config.PreferredImageCount, &caps)

	preTransform := caps.CurrentTransform
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	oldSwapchain := s.handle
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.config.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.config.SurfaceFormat.Format,
		ImageColorSpace:  s.config.SurfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   chooseCompositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      s.config.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	handle, res := s.device.Driver.CreateSwapchain(&info)
	if res != vk.Success {
		resultError(res, "vkCreateSwapchainKHR")
		return res
	}

	s.device.PresentQueue.WaitIdle()
	s.destroyBuffers()
	if oldSwapchain != nil {
		s.device.Driver.DestroySwapchain(oldSwapchain)
	}
	s.handle = handle
	s.extent = extent

	images, res := s.device.Driver.GetSwapchainImages(handle)
	if res != vk.Success {
		resultError(res, "vkGetSwapchainImagesKHR")
		return res
	}

	s.buffers = make([]VulkanSwapchainBuffer, len(images))
	for i, image := range images {
		buffer := &s.buffers[i]
		buffer.Image = image

		view, res := NewVulkanImageView(s.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.config.SurfaceFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if res != vk.Success {
			resultError(res, "vkCreateImageView")
			return res
		}
		buffer.View = view

		framebuffer, res := NewVulkanFramebuffer(s.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      s.config.RenderPass.Handle(),
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view.Handle()},
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		})
		if res != vk.Success {
			resultError(res, "vkCreateFramebuffer")
			return res
		}
		buffer.Framebuffer = framebuffer
	}

	s.current = -1
	s.acquired = false
	s.damageHistory.Clear()
	s.valid = true

	core.LogInfo("Swapchain created: %dx%d, %d images, %s, %s",
		extent.Width, extent.Height, len(images), FormatString(info.ImageFormat), PresentModeString(info.PresentMode))
	return vk.Success
}

// AcquireNextImage advances the sequence counter and stamps the previously
// acquired image with it before asking the driver for the next image.
func (s *VulkanSwapchain) AcquireNextImage(timeout uint64, semaphore *VulkanSemaphore, fence *VulkanFence) (uint32, vk.Result) {
	s.sequence++
	if previous := s.CurrentBuffer(); previous != nil {
		previous.sequence = s.sequence
	}

	var sem vk.Semaphore
	if semaphore != nil {
		sem = semaphore.Handle()
	}
	var f vk.Fence
	if fence != nil {
		f = fence.Handle()
	}

	index, res := s.device.Driver.AcquireNextImage(s.handle, timeout, sem, f)
	s.valid = res == vk.Success || res == vk.Suboptimal
	if s.valid {
		s.current = int(index)
		s.acquired = true
	}
	return index, res
}

// BufferAge is the number of acquisitions since the current image was last
// acquired, or 0 when its contents are undefined.
func (s *VulkanSwapchain) BufferAge() uint32 {
	buffer := s.CurrentBuffer()
	if buffer == nil || buffer.sequence == 0 {
		return 0
	}
	return uint32(s.sequence - buffer.sequence + 1)
}

// Present queues the current image for presentation. When incremental present
// is supported the damaged rectangles of region are passed along.
func (s *VulkanSwapchain) Present(wait []vk.Semaphore, region kmath.Region) vk.Result {
	var damage []vk.RectLayer
	if s.device.SupportsIncrementalPresent && !region.IsEmpty() {
		for _, r := range region.IntersectedRect(s.Rect()).Rects() {
			damage = append(damage, vk.RectLayer{
				Offset: vk.Offset2D{X: r.X, Y: r.Y},
				Extent: vk.Extent2D{Width: uint32(r.Width), Height: uint32(r.Height)},
				Layer:  0,
			})
		}
	}

	res := s.device.PresentQueue.Present(wait, s.handle, uint32(s.current), damage)
	s.acquired = false
	if res != vk.Success {
		s.valid = false
	}
	return res
}

func (s *VulkanSwapchain) AddToDamageHistory(region kmath.Region) {
	s.damageHistory.Push(region)
}

/**
 * @brief Returns the union of the damage of the last age-1 presents, or the
 * whole output when age is 0 or reaches further back than the history.
 */
func (s *VulkanSwapchain) AccumulatedDamageHistory(age uint32) kmath.Region {
	n := s.damageHistory.Len()
	if age == 0 || age > maxDamageHistory || int(age)-1 > n {
		return kmath.NewRegion(s.Rect())
	}
	var region kmath.Region
	for i := n - int(age) + 1; i < n; i++ {
		region = region.United(s.damageHistory.At(i))
	}
	return region
}

func (s *VulkanSwapchain) destroyBuffers() {
	for i := range s.buffers {
		s.buffers[i].destroy()
	}
	s.buffers = nil
}

func (s *VulkanSwapchain) Close() {
	if s.handle == nil {
		return
	}
	s.destroyBuffers()
	s.device.Driver.DestroySwapchain(s.handle)
	s.handle = nil
	s.valid = false
	s.current = -1
	s.acquired = false
}
