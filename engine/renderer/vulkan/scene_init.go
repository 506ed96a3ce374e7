package vulkan

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

var preferredSurfaceFormats = []vk.Format{
	vk.FormatA2r10g10b10UnormPack32,
	vk.FormatA2b10g10r10UnormPack32,
	vk.FormatB8g8r8a8Unorm,
	vk.FormatR8g8b8a8Unorm,
	vk.FormatA8b8g8r8UnormPack32,
	vk.FormatB8g8r8a8Srgb,
	vk.FormatR8g8b8a8Srgb,
	vk.FormatA8b8g8r8SrgbPack32,
	vk.FormatB8g8r8Unorm,
	vk.FormatR8g8b8Unorm,
	vk.FormatB8g8r8Srgb,
	vk.FormatR8g8b8Srgb,
}

var presentModePreferences = map[VSyncMode][]vk.PresentMode{
	VSyncOff:    {vk.PresentModeImmediate, vk.PresentModeFifoRelaxed, vk.PresentModeFifo, vk.PresentModeMailbox},
	VSyncDouble: {vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeFifoRelaxed, vk.PresentModeImmediate},
	VSyncTriple: {vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeFifoRelaxed, vk.PresentModeImmediate},
}

/**
 * @brief Picks the swapchain format. A single UNDEFINED entry means the
 * surface accepts any format.
 */
func chooseSurfaceFormat(supported []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(supported) == 0 {
		return vk.SurfaceFormat{}, errors.New("the surface reports no formats")
	}
	if len(supported) == 1 && supported[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{
			Format:     preferredSurfaceFormats[0],
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}, nil
	}
	for _, preferred := range preferredSurfaceFormats {
		for _, format := range supported {
			if format.Format == preferred {
				return format, nil
			}
		}
	}
	return supported[0], nil
}

// choosePresentMode returns the first mode of the vsync preference list the
// surface supports and the swapchain image count that goes with it.
func choosePresentMode(supported []vk.PresentMode, vsync VSyncMode) (vk.PresentMode, uint32, error) {
	if len(supported) == 0 {
		return 0, 0, errors.New("the surface reports no present modes")
	}
	preferences, ok := presentModePreferences[vsync]
	if !ok {
		preferences = presentModePreferences[VSyncTriple]
	}
	mode := supported[0]
search:
	for _, preferred := range preferences {
		for _, candidate := range supported {
			if candidate == preferred {
				mode = candidate
				break search
			}
		}
	}
	if mode == vk.PresentModeMailbox {
		return mode, 3, nil
	}
	return mode, 2, nil
}

func samplerCreateInfo(filter vk.Filter) vk.SamplerCreateInfo {
	return vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MipLodBias:              0,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  1,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.True,
	}
}

func (s *VulkanScene) init() error {
	driver := s.instance.Driver

	info, err := SelectPhysicalDevice(driver, s.surface, s.backend.PresentationSupport, s.options.DeviceOverride)
	if err != nil {
		return err
	}

	formats, res := driver.GetPhysicalDeviceSurfaceFormats(info.Handle, s.surface)
	if res != vk.Success {
		return resultError(res, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	if s.surfaceFormat, err = chooseSurfaceFormat(formats); err != nil {
		return err
	}

	modes, res := driver.GetPhysicalDeviceSurfacePresentModes(info.Handle, s.surface)
	if res != vk.Success {
		return resultError(res, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}
	if s.presentMode, s.imageCount, err = choosePresentMode(modes, s.options.VSync); err != nil {
		return err
	}
	core.LogInfo("Surface format %s, present mode %s, %d images",
		FormatString(s.surfaceFormat.Format), PresentModeString(s.presentMode), s.imageCount)

	if s.device, err = NewVulkanDevice(s.instance, info); err != nil {
		return err
	}

	if s.device.SeparatePresentQueue() {
		if s.presentCommandPool, res = NewVulkanCommandPool(s.device, 0, s.device.PresentQueue.FamilyIndex); res != vk.Success {
			return resultError(res, "vkCreateCommandPool")
		}
	}

	if s.renderPasses, err = NewVulkanRenderPasses(s.device, s.surfaceFormat.Format); err != nil {
		return err
	}

	nearest := samplerCreateInfo(vk.FilterNearest)
	if s.nearestSampler, res = NewVulkanSampler(s.device, &nearest); res != vk.Success {
		return resultError(res, "vkCreateSampler")
	}
	linear := samplerCreateInfo(vk.FilterLinear)
	if s.linearSampler, res = NewVulkanSampler(s.device, &linear); res != vk.Success {
		return resultError(res, "vkCreateSampler")
	}

	s.swapchain = NewVulkanSwapchain(s.device, driver, VulkanSwapchainConfig{
		Surface:             s.surface,
		SurfaceFormat:       s.surfaceFormat,
		PresentMode:         s.presentMode,
		PreferredImageCount: s.imageCount,
		RenderPass:          s.renderPasses.Get(RenderPassLoad),
		PresentCommandPool:  s.presentCommandPool,
	})

	if s.pipelineCache, res = NewVulkanPipelineCache(s.device, s.loadPipelineCache()); res != vk.Success {
		return resultError(res, "vkCreatePipelineCache")
	}

	if s.pipelineManager, err = NewVulkanPipelineManager(s.device, VulkanPipelineManagerConfig{
		Shaders:             s.options.Shaders,
		Cache:               s.pipelineCache,
		NearestSampler:      s.nearestSampler,
		LinearSampler:       s.linearSampler,
		SwapchainRenderPass: s.renderPasses.Get(RenderPassLoad).Handle(),
		PushDescriptors:     s.device.SupportsPushDescriptors,
	}); err != nil {
		return err
	}

	if err := s.createFrameSlots(); err != nil {
		return err
	}
	if err := s.createPaintPasses(); err != nil {
		return err
	}

	s.allocator = NewVulkanDeviceMemoryAllocator(s.device)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	s.uploadManager = NewVulkanUploadManager(s.device, s.allocator, streamingBufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit|vk.BufferUsageUniformBufferBit|vk.BufferUsageVertexBufferBit), hostVisible)
	s.imageUploadManager = NewVulkanUploadManager(s.device, s.allocator, stagingBufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	s.stagingImageAllocator = NewVulkanStagingImageAllocator(s.device, s.allocator, stagingBufferSize, hostVisible)

	s.textureDescriptorPool = NewSceneDescriptorPool(s.device, s.pipelineManager.DescriptorSetLayout(MaterialTexture), textureDescriptorPoolSets, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: textureDescriptorPoolSets},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: textureDescriptorPoolSets},
	})
	s.crossFadeDescriptorPool = NewSceneDescriptorPool(s.device, s.pipelineManager.DescriptorSetLayout(MaterialTwoTextures), crossFadeDescriptorPoolSets, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: 2 * crossFadeDescriptorPoolSets},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: crossFadeDescriptorPoolSets},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: crossFadeDescriptorPoolSets},
	})
	s.colorDescriptorPool = NewSceneDescriptorPool(s.device, s.pipelineManager.DescriptorSetLayout(MaterialFlatColor), colorDescriptorPoolSets, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: colorDescriptorPoolSets},
	})
	return nil
}

func (s *VulkanScene) createFrameSlots() error {
	separate := s.device.SeparatePresentQueue()
	for i := range s.frames {
		frame := &s.frames[i]
		var res vk.Result
		if frame.acquisitionFence, res = NewVulkanFence(s.device, false); res != vk.Success {
			return resultError(res, "vkCreateFence")
		}
		if frame.acquisitionSemaphore, res = NewVulkanSemaphore(s.device); res != vk.Success {
			return resultError(res, "vkCreateSemaphore")
		}
		if !separate {
			continue
		}
		if frame.acquireOwnershipSemaphore, res = NewVulkanSemaphore(s.device); res != vk.Success {
			return resultError(res, "vkCreateSemaphore")
		}
		if frame.releaseOwnershipSemaphore, res = NewVulkanSemaphore(s.device); res != vk.Success {
			return resultError(res, "vkCreateSemaphore")
		}
	}
	return nil
}

func (s *VulkanScene) createPaintPasses() error {
	for i := range s.paintPasses {
		pass := &s.paintPasses[i]
		var res vk.Result
		if pass.semaphore, res = NewVulkanSemaphore(s.device); res != vk.Success {
			return resultError(res, "vkCreateSemaphore")
		}
		pass.commandPool, res = NewVulkanCommandPool(s.device,
			vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit), s.device.GraphicsQueue.FamilyIndex)
		if res != vk.Success {
			return resultError(res, "vkCreateCommandPool")
		}
		if pass.setupCommandBuffer, res = NewVulkanCommandBuffer(s.device, pass.commandPool, true); res != vk.Success {
			return resultError(res, "vkAllocateCommandBuffers")
		}
		if pass.mainCommandBuffer, res = NewVulkanCommandBuffer(s.device, pass.commandPool, true); res != vk.Success {
			return resultError(res, "vkAllocateCommandBuffers")
		}
		if pass.fence, res = NewVulkanFence(s.device, false); res != vk.Success {
			return resultError(res, "vkCreateFence")
		}
	}
	return nil
}

// loadPipelineCache returns the saved pipeline cache blob, or nil.
func (s *VulkanScene) loadPipelineCache() []byte {
	if s.options.PipelineCachePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.options.PipelineCachePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			core.LogWarn("Unable to read the pipeline cache %s: %s", s.options.PipelineCachePath, err)
		}
		return nil
	}
	core.LogDebug("Loaded %d bytes of pipeline cache from %s", len(data), s.options.PipelineCachePath)
	return data
}

func (s *VulkanScene) savePipelineCache() {
	if s.options.PipelineCachePath == "" {
		return
	}
	data, err := s.PipelineCacheData()
	if err != nil {
		core.LogWarn("Unable to retrieve the pipeline cache: %s", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.options.PipelineCachePath), 0o755); err != nil {
		core.LogWarn("Unable to save the pipeline cache: %s", err)
		return
	}
	if err := os.WriteFile(s.options.PipelineCachePath, data, 0o644); err != nil {
		core.LogWarn("Unable to save the pipeline cache: %s", err)
		return
	}
	core.LogDebug("Saved %d bytes of pipeline cache to %s", len(data), s.options.PipelineCachePath)
}
