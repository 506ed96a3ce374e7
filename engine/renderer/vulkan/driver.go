package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// MemoryRequirements is vk.MemoryRequirements plus the dedicated allocation
// hints reported through VK_KHR_dedicated_allocation.
type MemoryRequirements struct {
	Size              uint64
	Alignment         uint64
	MemoryTypeBits    uint32
	PrefersDedicated  bool
	RequiresDedicated bool
}

// InstanceDriver is the instance level entry point table. It is owned by the
// VulkanInstance and resolved once after instance creation.
type InstanceDriver interface {
	Handle() vk.Instance
	DestroyInstance()

	EnumeratePhysicalDevices() ([]vk.PhysicalDevice, vk.Result)
	GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties
	GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice) []vk.QueueFamilyProperties
	GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties
	EnumerateDeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result)

	GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result)
	GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result)
	GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result)
	DestroySurface(surface vk.Surface)

	CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (DeviceDriver, vk.Result)

	CreateDebugReportCallback(flags vk.DebugReportFlags, fn vk.DebugReportCallbackFunc) (vk.DebugReportCallback, vk.Result)
	DestroyDebugReportCallback(cb vk.DebugReportCallback)
}

// DeviceDriver is the device level entry point table of one logical device.
type DeviceDriver interface {
	DestroyDevice()
	DeviceWaitIdle() vk.Result
	GetDeviceQueue(family, index uint32) vk.Queue

	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result
	QueuePresent(queue vk.Queue, wait []vk.Semaphore, swapchain vk.Swapchain, imageIndex uint32, damage []vk.RectLayer) vk.Result

	// Memory
	AllocateMemory(size uint64, memoryTypeIndex uint32, dedicatedBuffer vk.Buffer, dedicatedImage vk.Image) (vk.DeviceMemory, vk.Result)
	FreeMemory(memory vk.DeviceMemory)
	MapMemory(memory vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)
	FlushMappedMemoryRanges(ranges []vk.MappedMemoryRange) vk.Result
	GetBufferMemoryRequirements(buffer vk.Buffer, queryDedicated bool) MemoryRequirements
	GetImageMemoryRequirements(image vk.Image, queryDedicated bool) MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset uint64) vk.Result
	BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset uint64) vk.Result
	GetImageSubresourceLayout(image vk.Image, subresource vk.ImageSubresource) vk.SubresourceLayout

	// Objects
	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	DestroyBuffer(buffer vk.Buffer)
	CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result)
	DestroyImage(image vk.Image)
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result)
	DestroySampler(sampler vk.Sampler)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(framebuffer vk.Framebuffer)
	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateShaderModule(code []uint32) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(module vk.ShaderModule)

	// Synchronization
	CreateSemaphore() (vk.Semaphore, vk.Result)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, vk.Result)
	DestroyFence(fence vk.Fence)
	WaitForFences(fences []vk.Fence, waitAll bool, timeout uint64) vk.Result
	ResetFences(fences []vk.Fence) vk.Result

	// Commands
	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result)
	DestroyCommandPool(pool vk.CommandPool)
	ResetCommandPool(pool vk.CommandPool, flags vk.CommandPoolResetFlags) vk.Result
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(cmd vk.CommandBuffer) vk.Result

	CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier)
	CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cmd vk.CommandBuffer)
	CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D)
	CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset uint64, indexType vk.IndexType)
	CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
	CmdCopyImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy)
	CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)

	// Descriptors
	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	// Pipelines
	CreatePipelineCache(initialData []byte) (vk.PipelineCache, vk.Result)
	DestroyPipelineCache(cache vk.PipelineCache)
	GetPipelineCacheData(cache vk.PipelineCache) ([]byte, vk.Result)
	CreateGraphicsPipeline(cache vk.PipelineCache, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result)
	DestroyPipeline(pipeline vk.Pipeline)

	// Swapchain
	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(swapchain vk.Swapchain)
	GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result)
}
