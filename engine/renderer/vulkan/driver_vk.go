package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// vkInstanceDriver forwards to the loader through goki/vulkan.
type vkInstanceDriver struct {
	instance vk.Instance
}

func newInstanceDriver(instance vk.Instance) *vkInstanceDriver {
	return &vkInstanceDriver{instance: instance}
}

func (d *vkInstanceDriver) Handle() vk.Instance {
	return d.instance
}

func (d *vkInstanceDriver) DestroyInstance() {
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

func (d *vkInstanceDriver) EnumeratePhysicalDevices() ([]vk.PhysicalDevice, vk.Result) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success {
		return nil, res
	}
	devices := make([]vk.PhysicalDevice, count)
	if count == 0 {
		return devices, vk.Success
	}
	res := vk.EnumeratePhysicalDevices(d.instance, &count, devices)
	return devices[:count], res
}

func (d *vkInstanceDriver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func (d *vkInstanceDriver) GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		props.MemoryHeaps[i].Deref()
	}
	return props
}

func (d *vkInstanceDriver) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (d *vkInstanceDriver) GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd, format, &props)
	props.Deref()
	return props
}

func (d *vkInstanceDriver) EnumerateDeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil, res
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, props); res != vk.Success {
			return nil, res
		}
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, vk.Success
}

func (d *vkInstanceDriver) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(pd, family, surface, &supported)
	return supported == vk.True, res
}

func (d *vkInstanceDriver) GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (d *vkInstanceDriver) GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	formats := make([]vk.SurfaceFormat, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, formats); res != vk.Success {
			return nil, res
		}
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, vk.Success
}

func (d *vkInstanceDriver) GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	modes := make([]vk.PresentMode, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, modes); res != vk.Success {
			return nil, res
		}
	}
	return modes, vk.Success
}

func (d *vkInstanceDriver) DestroySurface(surface vk.Surface) {
	vk.DestroySurface(d.instance, surface, nil)
}

func (d *vkInstanceDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (DeviceDriver, vk.Result) {
	var device vk.Device
	if res := vk.CreateDevice(pd, info, nil, &device); res != vk.Success {
		return nil, res
	}
	return &vkDeviceDriver{device: device}, vk.Success
}

func (d *vkInstanceDriver) CreateDebugReportCallback(flags vk.DebugReportFlags, fn vk.DebugReportCallbackFunc) (vk.DebugReportCallback, vk.Result) {
	info := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       flags,
		PfnCallback: fn,
	}
	var cb vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(d.instance, &info, nil, &cb)
	return cb, res
}

func (d *vkInstanceDriver) DestroyDebugReportCallback(cb vk.DebugReportCallback) {
	vk.DestroyDebugReportCallback(d.instance, cb, nil)
}

// vkDeviceDriver forwards device level calls for one vk.Device.
type vkDeviceDriver struct {
	device vk.Device
}

func (d *vkDeviceDriver) DestroyDevice() {
	if d.device != nil {
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
}

func (d *vkDeviceDriver) DeviceWaitIdle() vk.Result {
	return vk.DeviceWaitIdle(d.device)
}

func (d *vkDeviceDriver) GetDeviceQueue(family, index uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(d.device, family, index, &queue)
	return queue
}

func (d *vkDeviceDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDeviceDriver) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *vkDeviceDriver) QueuePresent(queue vk.Queue, wait []vk.Semaphore, swapchain vk.Swapchain, imageIndex uint32, damage []vk.RectLayer) vk.Result {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	if len(damage) > 0 {
		regions := vk.PresentRegions{
			SType:          vk.StructureTypePresentRegions,
			SwapchainCount: 1,
			PRegions: []vk.PresentRegion{{
				RectangleCount: uint32(len(damage)),
				PRectangles:    damage,
			}},
		}
		info.PNext = unsafe.Pointer(regions.Ref())
		defer regions.Free()
	}
	return vk.QueuePresent(queue, &info)
}

func (d *vkDeviceDriver) AllocateMemory(size uint64, memoryTypeIndex uint32, dedicatedBuffer vk.Buffer, dedicatedImage vk.Image) (vk.DeviceMemory, vk.Result) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	if dedicatedBuffer != nil || dedicatedImage != nil {
		dedicated := vk.MemoryDedicatedAllocateInfo{
			SType:  vk.StructureTypeMemoryDedicatedAllocateInfo,
			Buffer: dedicatedBuffer,
			Image:  dedicatedImage,
		}
		info.PNext = unsafe.Pointer(dedicated.Ref())
		defer dedicated.Free()
	}
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(d.device, &info, nil, &memory)
	return memory, res
}

func (d *vkDeviceDriver) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.device, memory, nil)
}

func (d *vkDeviceDriver) MapMemory(memory vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, vk.Result) {
	var data unsafe.Pointer
	res := vk.MapMemory(d.device, memory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &data)
	return data, res
}

func (d *vkDeviceDriver) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.device, memory)
}

func (d *vkDeviceDriver) FlushMappedMemoryRanges(ranges []vk.MappedMemoryRange) vk.Result {
	return vk.FlushMappedMemoryRanges(d.device, uint32(len(ranges)), ranges)
}

func (d *vkDeviceDriver) GetBufferMemoryRequirements(buffer vk.Buffer, queryDedicated bool) MemoryRequirements {
	if !queryDedicated {
		var reqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(d.device, buffer, &reqs)
		reqs.Deref()
		return toMemoryRequirements(reqs)
	}
	dedicated := vk.MemoryDedicatedRequirements{
		SType: vk.StructureTypeMemoryDedicatedRequirements,
	}
	defer dedicated.Free()
	reqs := vk.MemoryRequirements2{
		SType: vk.StructureTypeMemoryRequirements2,
		PNext: unsafe.Pointer(dedicated.Ref()),
	}
	info := vk.BufferMemoryRequirementsInfo2{
		SType:  vk.StructureTypeBufferMemoryRequirementsInfo2,
		Buffer: buffer,
	}
	vk.GetBufferMemoryRequirements2(d.device, &info, &reqs)
	return toDedicatedRequirements(reqs, dedicated)
}

func (d *vkDeviceDriver) GetImageMemoryRequirements(image vk.Image, queryDedicated bool) MemoryRequirements {
	if !queryDedicated {
		var reqs vk.MemoryRequirements
		vk.GetImageMemoryRequirements(d.device, image, &reqs)
		reqs.Deref()
		return toMemoryRequirements(reqs)
	}
	dedicated := vk.MemoryDedicatedRequirements{
		SType: vk.StructureTypeMemoryDedicatedRequirements,
	}
	defer dedicated.Free()
	reqs := vk.MemoryRequirements2{
		SType: vk.StructureTypeMemoryRequirements2,
		PNext: unsafe.Pointer(dedicated.Ref()),
	}
	info := vk.ImageMemoryRequirementsInfo2{
		SType: vk.StructureTypeImageMemoryRequirementsInfo2,
		Image: image,
	}
	vk.GetImageMemoryRequirements2(d.device, &info, &reqs)
	return toDedicatedRequirements(reqs, dedicated)
}

func toMemoryRequirements(reqs vk.MemoryRequirements) MemoryRequirements {
	return MemoryRequirements{
		Size:           uint64(reqs.Size),
		Alignment:      uint64(reqs.Alignment),
		MemoryTypeBits: reqs.MemoryTypeBits,
	}
}

func toDedicatedRequirements(reqs vk.MemoryRequirements2, dedicated vk.MemoryDedicatedRequirements) MemoryRequirements {
	reqs.Deref()
	reqs.MemoryRequirements.Deref()
	dedicated.Deref()
	out := toMemoryRequirements(reqs.MemoryRequirements)
	out.PrefersDedicated = dedicated.PrefersDedicatedAllocation == vk.True
	out.RequiresDedicated = dedicated.RequiresDedicatedAllocation == vk.True
	return out
}

func (d *vkDeviceDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset uint64) vk.Result {
	return vk.BindBufferMemory(d.device, buffer, memory, vk.DeviceSize(offset))
}

func (d *vkDeviceDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset uint64) vk.Result {
	return vk.BindImageMemory(d.device, image, memory, vk.DeviceSize(offset))
}

func (d *vkDeviceDriver) GetImageSubresourceLayout(image vk.Image, subresource vk.ImageSubresource) vk.SubresourceLayout {
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(d.device, image, &subresource, &layout)
	layout.Deref()
	return layout
}

func (d *vkDeviceDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(d.device, info, nil, &buffer)
	return buffer, res
}

func (d *vkDeviceDriver) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.device, buffer, nil)
}

func (d *vkDeviceDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	var image vk.Image
	res := vk.CreateImage(d.device, info, nil, &image)
	return image, res
}

func (d *vkDeviceDriver) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.device, image, nil)
}

func (d *vkDeviceDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(d.device, info, nil, &view)
	return view, res
}

func (d *vkDeviceDriver) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.device, view, nil)
}

func (d *vkDeviceDriver) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	var sampler vk.Sampler
	res := vk.CreateSampler(d.device, info, nil, &sampler)
	return sampler, res
}

func (d *vkDeviceDriver) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.device, sampler, nil)
}

func (d *vkDeviceDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	var framebuffer vk.Framebuffer
	res := vk.CreateFramebuffer(d.device, info, nil, &framebuffer)
	return framebuffer, res
}

func (d *vkDeviceDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.device, framebuffer, nil)
}

func (d *vkDeviceDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(d.device, info, nil, &renderPass)
	return renderPass, res
}

func (d *vkDeviceDriver) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.device, renderPass, nil)
}

func (d *vkDeviceDriver) CreateShaderModule(code []uint32) (vk.ShaderModule, vk.Result) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	res := vk.CreateShaderModule(d.device, &info, nil, &module)
	return module, res
}

func (d *vkDeviceDriver) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.device, module, nil)
}

func (d *vkDeviceDriver) CreateSemaphore() (vk.Semaphore, vk.Result) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(d.device, &info, nil, &semaphore)
	return semaphore, res
}

func (d *vkDeviceDriver) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.device, semaphore, nil)
}

func (d *vkDeviceDriver) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	res := vk.CreateFence(d.device, &info, nil, &fence)
	return fence, res
}

func (d *vkDeviceDriver) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.device, fence, nil)
}

func (d *vkDeviceDriver) WaitForFences(fences []vk.Fence, waitAll bool, timeout uint64) vk.Result {
	all := vk.Bool32(vk.False)
	if waitAll {
		all = vk.True
	}
	return vk.WaitForFences(d.device, uint32(len(fences)), fences, all, timeout)
}

func (d *vkDeviceDriver) ResetFences(fences []vk.Fence) vk.Result {
	return vk.ResetFences(d.device, uint32(len(fences)), fences)
}

func (d *vkDeviceDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.device, info, nil, &pool)
	return pool, res
}

func (d *vkDeviceDriver) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.device, pool, nil)
}

func (d *vkDeviceDriver) ResetCommandPool(pool vk.CommandPool, flags vk.CommandPoolResetFlags) vk.Result {
	return vk.ResetCommandPool(d.device, pool, flags)
}

func (d *vkDeviceDriver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(d.device, info, buffers)
	return buffers, res
}

func (d *vkDeviceDriver) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.device, pool, uint32(len(buffers)), buffers)
}

func (d *vkDeviceDriver) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(cmd, info)
}

func (d *vkDeviceDriver) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cmd)
}

func (d *vkDeviceDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
		0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers)
}

func (d *vkDeviceDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

func (d *vkDeviceDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (d *vkDeviceDriver) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (d *vkDeviceDriver) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (d *vkDeviceDriver) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDeviceDriver) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0,
		uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (d *vkDeviceDriver) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, 0, uint32(len(buffers)), buffers, offsets)
}

func (d *vkDeviceDriver) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset uint64, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, vk.DeviceSize(offset), indexType)
}

func (d *vkDeviceDriver) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *vkDeviceDriver) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *vkDeviceDriver) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *vkDeviceDriver) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}

func (d *vkDeviceDriver) CmdCopyImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy) {
	vk.CmdCopyImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions)
}

func (d *vkDeviceDriver) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *vkDeviceDriver) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.device, info, nil, &layout)
	return layout, res
}

func (d *vkDeviceDriver) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.device, layout, nil)
}

func (d *vkDeviceDriver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.device, info, nil, &layout)
	return layout, res
}

func (d *vkDeviceDriver) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.device, layout, nil)
}

func (d *vkDeviceDriver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.device, info, nil, &pool)
	return pool, res
}

func (d *vkDeviceDriver) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.device, pool, nil)
}

func (d *vkDeviceDriver) AllocateDescriptorSets(pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, len(layouts))
	res := vk.AllocateDescriptorSets(d.device, &info, &sets[0])
	return sets, res
}

func (d *vkDeviceDriver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
}

func (d *vkDeviceDriver) CreatePipelineCache(initialData []byte) (vk.PipelineCache, vk.Result) {
	info := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if len(initialData) > 0 {
		info.InitialDataSize = uint64(len(initialData))
		info.PInitialData = unsafe.Pointer(&initialData[0])
	}
	var cache vk.PipelineCache
	res := vk.CreatePipelineCache(d.device, &info, nil, &cache)
	return cache, res
}

func (d *vkDeviceDriver) DestroyPipelineCache(cache vk.PipelineCache) {
	vk.DestroyPipelineCache(d.device, cache, nil)
}

func (d *vkDeviceDriver) GetPipelineCacheData(cache vk.PipelineCache) ([]byte, vk.Result) {
	var size uint64
	if res := vk.GetPipelineCacheData(d.device, cache, &size, nil); res != vk.Success {
		return nil, res
	}
	if size == 0 {
		return nil, vk.Success
	}
	data := make([]byte, size)
	res := vk.GetPipelineCacheData(d.device, cache, &size, unsafe.Pointer(&data[0]))
	return data[:size], res
}

func (d *vkDeviceDriver) CreateGraphicsPipeline(cache vk.PipelineCache, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.device, cache, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines)
	return pipelines[0], res
}

func (d *vkDeviceDriver) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.device, pipeline, nil)
}

func (d *vkDeviceDriver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(d.device, info, nil, &swapchain)
	return swapchain, res
}

func (d *vkDeviceDriver) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.device, swapchain, nil)
}

func (d *vkDeviceDriver) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	var count uint32
	if res := vk.GetSwapchainImages(d.device, swapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, count)
	res := vk.GetSwapchainImages(d.device, swapchain, &count, images)
	return images[:count], res
}

func (d *vkDeviceDriver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(d.device, swapchain, timeout, semaphore, fence, &index)
	return index, res
}
