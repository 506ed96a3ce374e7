package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

// fakePhysicalDevice describes one GPU reported by fakeDriver.
type fakePhysicalDevice struct {
	handle        vk.PhysicalDevice
	props         vk.PhysicalDeviceProperties
	extensions    []string
	families      []vk.QueueFamilyProperties
	presentFamily map[uint32]bool
	linearSampled bool
}

type fakeSubmit struct {
	queue   vk.Queue
	waits   []vk.Semaphore
	signals []vk.Semaphore
	buffers []vk.CommandBuffer
	fence   vk.Fence
}

type fakePresent struct {
	queue      vk.Queue
	waits      []vk.Semaphore
	imageIndex uint32
	damage     []vk.RectLayer
}

type fakeBarrier struct {
	cmd     vk.CommandBuffer
	images  []vk.ImageMemoryBarrier
	buffers []vk.BufferMemoryBarrier
}

type fakeDraw struct {
	cmd          vk.CommandBuffer
	indexCount   uint32
	vertexOffset int32
	scissor      vk.Rect2D
}

/**
 * @brief An in-memory Vulkan implementation of both driver tables. Handles
 * are unique pointers, object lifetimes are counted per kind and every
 * submission, presentation and barrier is recorded.
 */
type fakeDriver struct {
	keep []*uint64

	instance vk.Instance
	devices  []*fakePhysicalDevice

	caps           vk.SurfaceCapabilities
	surfaceFormats []vk.SurfaceFormat
	presentModes   []vk.PresentMode
	memory         vk.PhysicalDeviceMemoryProperties
	sampleable     map[vk.Format]bool

	created   map[string]int
	destroyed map[string]int

	queues     map[uint32]vk.Queue
	allocated  map[vk.DeviceMemory][]byte
	oomTypes   map[uint32]bool
	allocTypes []uint32
	buffers    map[vk.Buffer]uint64
	images     map[vk.Image]vk.Extent3D
	fences     map[vk.Fence]bool
	// Results returned by WaitForFences for individual fences.
	waitResults map[vk.Fence]vk.Result
	bound       map[vk.Image]vk.DeviceMemory

	swapchainInfo   vk.SwapchainCreateInfo
	swapchainImages []vk.Image
	nextImage       uint32
	acquires        int
	acquireResults  []vk.Result
	presentResults  []vk.Result
	submitResult    vk.Result

	submits        []fakeSubmit
	presents       []fakePresent
	barriers       []fakeBarrier
	renderPasses   []vk.RenderPass
	draws          []fakeDraw
	bufferCopies   []vk.BufferCopy
	imageUploads   []vk.BufferImageCopy
	imageCopies    int
	flushes        [][]vk.MappedMemoryRange
	pipelines      int
	pipelineResult vk.Result
	descriptorSets int
	cacheData      []byte
	cacheInitData  []byte
	waitIdle       int

	lastScissor vk.Rect2D
}

func newFakeHandle[T any](f *fakeDriver) T {
	p := new(uint64)
	f.keep = append(f.keep, p)
	return *(*T)(unsafe.Pointer(&p))
}

// newFakeDriver returns a driver with one integrated GPU whose single queue
// family renders and presents. Memory type 0 is device local and type 1 is
// host visible and coherent.
func newFakeDriver() *fakeDriver {
	f := &fakeDriver{
		caps: vk.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           4,
			CurrentExtent:           vk.Extent2D{Width: 1280, Height: 720},
			MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          vk.Extent2D{Width: 8192, Height: 8192},
			MaxImageArrayLayers:     1,
			SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
			CurrentTransform:        vk.SurfaceTransformIdentityBit,
			SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
			SupportedUsageFlags:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		},
		surfaceFormats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		sampleable: map[vk.Format]bool{
			vk.FormatB8g8r8a8Unorm: true,
			vk.FormatR8g8b8a8Unorm: true,
		},
		created:      map[string]int{},
		destroyed:    map[string]int{},
		queues:       map[uint32]vk.Queue{},
		allocated:    map[vk.DeviceMemory][]byte{},
		oomTypes:     map[uint32]bool{},
		buffers:      map[vk.Buffer]uint64{},
		images:       map[vk.Image]vk.Extent3D{},
		fences:       map[vk.Fence]bool{},
		waitResults:  map[vk.Fence]vk.Result{},
		bound:        map[vk.Image]vk.DeviceMemory{},
		cacheData:    []byte("pipeline cache"),
		submitResult: vk.Success,
	}
	f.instance = newFakeHandle[vk.Instance](f)
	f.create("instance")
	f.memory.MemoryTypeCount = 2
	f.memory.MemoryTypes[0] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)}
	f.memory.MemoryTypes[1] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)}
	f.memory.MemoryHeapCount = 1
	f.addPhysicalDevice(vk.PhysicalDeviceTypeIntegratedGpu, 0x8086, 0x1234, "Fake Integrated GPU")
	return f
}

func (f *fakeDriver) addPhysicalDevice(deviceType vk.PhysicalDeviceType, vendor, device uint32, name string) *fakePhysicalDevice {
	pd := &fakePhysicalDevice{
		handle:     newFakeHandle[vk.PhysicalDevice](f),
		extensions: []string{swapchainExtensionName, incrementalPresentExtName},
		families: []vk.QueueFamilyProperties{{
			QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit),
			QueueCount: 1,
		}},
		presentFamily: map[uint32]bool{0: true},
		linearSampled: true,
	}
	pd.props.ApiVersion = uint32(vk.MakeVersion(1, 1, 0))
	pd.props.VendorID = vendor
	pd.props.DeviceID = device
	pd.props.DeviceType = deviceType
	copy(pd.props.DeviceName[:], name)
	pd.props.Limits.NonCoherentAtomSize = 64
	pd.props.Limits.MinUniformBufferOffsetAlignment = 256
	pd.props.Limits.MinTexelBufferOffsetAlignment = 16
	pd.props.Limits.MinStorageBufferOffsetAlignment = 16
	f.devices = append(f.devices, pd)
	return pd
}

// separatePresentFamily moves presentation of the first GPU to a second
// queue family without graphics support.
func (f *fakeDriver) separatePresentFamily() {
	pd := f.devices[0]
	pd.families = append(pd.families, vk.QueueFamilyProperties{
		QueueFlags: vk.QueueFlags(vk.QueueTransferBit),
		QueueCount: 1,
	})
	pd.presentFamily = map[uint32]bool{1: true}
}

func (f *fakeDriver) newSurface() vk.Surface {
	f.create("surface")
	return newFakeHandle[vk.Surface](f)
}

func (f *fakeDriver) physicalDevice(pd vk.PhysicalDevice) *fakePhysicalDevice {
	for _, d := range f.devices {
		if d.handle == pd {
			return d
		}
	}
	return nil
}

func (f *fakeDriver) create(kind string) {
	f.created[kind]++
}

func (f *fakeDriver) destroy(kind string) {
	f.destroyed[kind]++
}

// live is the number of objects of kind created and not yet destroyed.
func (f *fakeDriver) live(kind string) int {
	return f.created[kind] - f.destroyed[kind]
}

// leaks lists every object kind with live objects.
func (f *fakeDriver) leaks() map[string]int {
	leaks := map[string]int{}
	for kind := range f.created {
		if n := f.live(kind); n != 0 {
			leaks[kind] = n
		}
	}
	return leaks
}

// Instance level

func (f *fakeDriver) Handle() vk.Instance { return f.instance }
func (f *fakeDriver) DestroyInstance()    { f.destroy("instance") }

func (f *fakeDriver) EnumeratePhysicalDevices() ([]vk.PhysicalDevice, vk.Result) {
	handles := make([]vk.PhysicalDevice, 0, len(f.devices))
	for _, d := range f.devices {
		handles = append(handles, d.handle)
	}
	return handles, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	return f.physicalDevice(pd).props
}

func (f *fakeDriver) GetPhysicalDeviceMemoryProperties(vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	return f.memory
}

func (f *fakeDriver) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return f.physicalDevice(pd).families
}

func (f *fakeDriver) GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	if format == vk.FormatB8g8r8a8Unorm && f.physicalDevice(pd).linearSampled {
		props.LinearTilingFeatures = vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)
	}
	if f.sampleable[format] {
		props.OptimalTilingFeatures = vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)
	}
	return props
}

func (f *fakeDriver) EnumerateDeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result) {
	return f.physicalDevice(pd).extensions, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, _ vk.Surface) (bool, vk.Result) {
	return f.physicalDevice(pd).presentFamily[family], vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceCapabilities(vk.PhysicalDevice, vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	return f.caps, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceFormats(vk.PhysicalDevice, vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	return f.surfaceFormats, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfacePresentModes(vk.PhysicalDevice, vk.Surface) ([]vk.PresentMode, vk.Result) {
	return f.presentModes, vk.Success
}

func (f *fakeDriver) DestroySurface(vk.Surface) { f.destroy("surface") }

func (f *fakeDriver) CreateDevice(vk.PhysicalDevice, *vk.DeviceCreateInfo) (DeviceDriver, vk.Result) {
	f.create("device")
	return f, vk.Success
}

func (f *fakeDriver) CreateDebugReportCallback(vk.DebugReportFlags, vk.DebugReportCallbackFunc) (vk.DebugReportCallback, vk.Result) {
	f.create("debugReportCallback")
	return newFakeHandle[vk.DebugReportCallback](f), vk.Success
}

func (f *fakeDriver) DestroyDebugReportCallback(vk.DebugReportCallback) {
	f.destroy("debugReportCallback")
}

// Device level

func (f *fakeDriver) DestroyDevice() { f.destroy("device") }

func (f *fakeDriver) DeviceWaitIdle() vk.Result {
	f.waitIdle++
	return vk.Success
}

func (f *fakeDriver) GetDeviceQueue(family, _ uint32) vk.Queue {
	if q, ok := f.queues[family]; ok {
		return q
	}
	q := newFakeHandle[vk.Queue](f)
	f.queues[family] = q
	return q
}

func (f *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if f.submitResult != vk.Success {
		return f.submitResult
	}
	for _, s := range submits {
		f.submits = append(f.submits, fakeSubmit{
			queue:   queue,
			waits:   append([]vk.Semaphore(nil), s.PWaitSemaphores...),
			signals: append([]vk.Semaphore(nil), s.PSignalSemaphores...),
			buffers: append([]vk.CommandBuffer(nil), s.PCommandBuffers...),
			fence:   fence,
		})
	}
	if fence != nil {
		f.fences[fence] = true
	}
	return vk.Success
}

func (f *fakeDriver) QueueWaitIdle(vk.Queue) vk.Result { return vk.Success }

func (f *fakeDriver) QueuePresent(queue vk.Queue, wait []vk.Semaphore, _ vk.Swapchain, imageIndex uint32, damage []vk.RectLayer) vk.Result {
	res := vk.Success
	if len(f.presentResults) > 0 {
		res = f.presentResults[0]
		f.presentResults = f.presentResults[1:]
	}
	f.presents = append(f.presents, fakePresent{
		queue:      queue,
		waits:      append([]vk.Semaphore(nil), wait...),
		imageIndex: imageIndex,
		damage:     damage,
	})
	return res
}

func (f *fakeDriver) AllocateMemory(size uint64, memoryTypeIndex uint32, _ vk.Buffer, _ vk.Image) (vk.DeviceMemory, vk.Result) {
	f.allocTypes = append(f.allocTypes, memoryTypeIndex)
	if f.oomTypes[memoryTypeIndex] {
		return nil, vk.ErrorOutOfDeviceMemory
	}
	f.create("memory")
	memory := newFakeHandle[vk.DeviceMemory](f)
	f.allocated[memory] = make([]byte, max(size, 1))
	return memory, vk.Success
}

func (f *fakeDriver) FreeMemory(memory vk.DeviceMemory) {
	f.destroy("memory")
	delete(f.allocated, memory)
}

func (f *fakeDriver) MapMemory(memory vk.DeviceMemory, offset, _ uint64) (unsafe.Pointer, vk.Result) {
	data, ok := f.allocated[memory]
	if !ok {
		return nil, vk.ErrorMemoryMapFailed
	}
	return unsafe.Pointer(&data[offset]), vk.Success
}

func (f *fakeDriver) UnmapMemory(vk.DeviceMemory) {}

func (f *fakeDriver) FlushMappedMemoryRanges(ranges []vk.MappedMemoryRange) vk.Result {
	f.flushes = append(f.flushes, append([]vk.MappedMemoryRange(nil), ranges...))
	return vk.Success
}

func (f *fakeDriver) GetBufferMemoryRequirements(buffer vk.Buffer, _ bool) MemoryRequirements {
	return MemoryRequirements{
		Size:           math.Align(f.buffers[buffer], 256),
		Alignment:      256,
		MemoryTypeBits: 1<<f.memory.MemoryTypeCount - 1,
	}
}

// fakeRowPitch is the row pitch of linear images: rows are 256 byte aligned.
func fakeRowPitch(width uint32) uint64 {
	return math.Align(uint64(width)*4, 256)
}

func (f *fakeDriver) GetImageMemoryRequirements(image vk.Image, _ bool) MemoryRequirements {
	extent := f.images[image]
	return MemoryRequirements{
		Size:           fakeRowPitch(extent.Width) * uint64(extent.Height),
		Alignment:      256,
		MemoryTypeBits: 1<<f.memory.MemoryTypeCount - 1,
	}
}

func (f *fakeDriver) BindBufferMemory(vk.Buffer, vk.DeviceMemory, uint64) vk.Result {
	return vk.Success
}

func (f *fakeDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory, _ uint64) vk.Result {
	f.bound[image] = memory
	return vk.Success
}

func (f *fakeDriver) GetImageSubresourceLayout(image vk.Image, _ vk.ImageSubresource) vk.SubresourceLayout {
	extent := f.images[image]
	pitch := fakeRowPitch(extent.Width)
	return vk.SubresourceLayout{
		Offset:   0,
		Size:     vk.DeviceSize(pitch * uint64(extent.Height)),
		RowPitch: vk.DeviceSize(pitch),
	}
}

func (f *fakeDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	f.create("buffer")
	buffer := newFakeHandle[vk.Buffer](f)
	f.buffers[buffer] = uint64(info.Size)
	return buffer, vk.Success
}

func (f *fakeDriver) DestroyBuffer(buffer vk.Buffer) {
	f.destroy("buffer")
	delete(f.buffers, buffer)
}

func (f *fakeDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	f.create("image")
	image := newFakeHandle[vk.Image](f)
	f.images[image] = info.Extent
	return image, vk.Success
}

func (f *fakeDriver) DestroyImage(image vk.Image) {
	f.destroy("image")
	delete(f.images, image)
}

func (f *fakeDriver) CreateImageView(*vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	f.create("imageView")
	return newFakeHandle[vk.ImageView](f), vk.Success
}

func (f *fakeDriver) DestroyImageView(vk.ImageView) { f.destroy("imageView") }

func (f *fakeDriver) CreateSampler(*vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	f.create("sampler")
	return newFakeHandle[vk.Sampler](f), vk.Success
}

func (f *fakeDriver) DestroySampler(vk.Sampler) { f.destroy("sampler") }

func (f *fakeDriver) CreateFramebuffer(*vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	f.create("framebuffer")
	return newFakeHandle[vk.Framebuffer](f), vk.Success
}

func (f *fakeDriver) DestroyFramebuffer(vk.Framebuffer) { f.destroy("framebuffer") }

func (f *fakeDriver) CreateRenderPass(*vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	f.create("renderPass")
	return newFakeHandle[vk.RenderPass](f), vk.Success
}

func (f *fakeDriver) DestroyRenderPass(vk.RenderPass) { f.destroy("renderPass") }

func (f *fakeDriver) CreateShaderModule([]uint32) (vk.ShaderModule, vk.Result) {
	f.create("shaderModule")
	return newFakeHandle[vk.ShaderModule](f), vk.Success
}

func (f *fakeDriver) DestroyShaderModule(vk.ShaderModule) { f.destroy("shaderModule") }

func (f *fakeDriver) CreateSemaphore() (vk.Semaphore, vk.Result) {
	f.create("semaphore")
	return newFakeHandle[vk.Semaphore](f), vk.Success
}

func (f *fakeDriver) DestroySemaphore(vk.Semaphore) { f.destroy("semaphore") }

func (f *fakeDriver) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	f.create("fence")
	fence := newFakeHandle[vk.Fence](f)
	f.fences[fence] = signaled
	return fence, vk.Success
}

func (f *fakeDriver) DestroyFence(fence vk.Fence) {
	f.destroy("fence")
	delete(f.fences, fence)
}

// WaitForFences fails with a timeout when a fence was never submitted.
// Injected results take precedence.
func (f *fakeDriver) WaitForFences(fences []vk.Fence, _ bool, _ uint64) vk.Result {
	for _, fence := range fences {
		if res, ok := f.waitResults[fence]; ok {
			return res
		}
		if !f.fences[fence] {
			return vk.Timeout
		}
	}
	return vk.Success
}

func (f *fakeDriver) ResetFences(fences []vk.Fence) vk.Result {
	for _, fence := range fences {
		f.fences[fence] = false
	}
	return vk.Success
}

func (f *fakeDriver) CreateCommandPool(*vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	f.create("commandPool")
	return newFakeHandle[vk.CommandPool](f), vk.Success
}

func (f *fakeDriver) DestroyCommandPool(vk.CommandPool) { f.destroy("commandPool") }

func (f *fakeDriver) ResetCommandPool(vk.CommandPool, vk.CommandPoolResetFlags) vk.Result {
	return vk.Success
}

func (f *fakeDriver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range buffers {
		f.create("commandBuffer")
		buffers[i] = newFakeHandle[vk.CommandBuffer](f)
	}
	return buffers, vk.Success
}

func (f *fakeDriver) FreeCommandBuffers(_ vk.CommandPool, buffers []vk.CommandBuffer) {
	f.destroyed["commandBuffer"] += len(buffers)
}

func (f *fakeDriver) BeginCommandBuffer(vk.CommandBuffer, *vk.CommandBufferBeginInfo) vk.Result {
	return vk.Success
}

func (f *fakeDriver) EndCommandBuffer(vk.CommandBuffer) vk.Result { return vk.Success }

func (f *fakeDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, _, _ vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	f.barriers = append(f.barriers, fakeBarrier{
		cmd:     cmd,
		images:  append([]vk.ImageMemoryBarrier(nil), imageBarriers...),
		buffers: append([]vk.BufferMemoryBarrier(nil), bufferBarriers...),
	})
}

func (f *fakeDriver) CmdBeginRenderPass(_ vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.renderPasses = append(f.renderPasses, info.RenderPass)
}

func (f *fakeDriver) CmdEndRenderPass(vk.CommandBuffer)             {}
func (f *fakeDriver) CmdSetViewport(vk.CommandBuffer, vk.Viewport)  {}
func (f *fakeDriver) CmdBindPipeline(vk.CommandBuffer, vk.Pipeline) {}

func (f *fakeDriver) CmdSetScissor(_ vk.CommandBuffer, scissor vk.Rect2D) {
	f.lastScissor = scissor
}

func (f *fakeDriver) CmdBindDescriptorSets(vk.CommandBuffer, vk.PipelineLayout, []vk.DescriptorSet, []uint32) {
}

func (f *fakeDriver) CmdBindVertexBuffers(vk.CommandBuffer, []vk.Buffer, []vk.DeviceSize) {}

func (f *fakeDriver) CmdBindIndexBuffer(vk.CommandBuffer, vk.Buffer, uint64, vk.IndexType) {}

func (f *fakeDriver) CmdDraw(vk.CommandBuffer, uint32, uint32, uint32, uint32) {}

func (f *fakeDriver) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, _, _ uint32, vertexOffset int32, _ uint32) {
	f.draws = append(f.draws, fakeDraw{cmd: cmd, indexCount: indexCount, vertexOffset: vertexOffset, scissor: f.lastScissor})
}

func (f *fakeDriver) CmdCopyBuffer(_ vk.CommandBuffer, _, _ vk.Buffer, regions []vk.BufferCopy) {
	f.bufferCopies = append(f.bufferCopies, regions...)
}

func (f *fakeDriver) CmdCopyBufferToImage(_ vk.CommandBuffer, _ vk.Buffer, _ vk.Image, _ vk.ImageLayout, regions []vk.BufferImageCopy) {
	f.imageUploads = append(f.imageUploads, regions...)
}

func (f *fakeDriver) CmdCopyImage(vk.CommandBuffer, vk.Image, vk.ImageLayout, vk.Image, vk.ImageLayout, []vk.ImageCopy) {
	f.imageCopies++
}

func (f *fakeDriver) CmdPushConstants(vk.CommandBuffer, vk.PipelineLayout, vk.ShaderStageFlags, uint32, []byte) {
}

func (f *fakeDriver) CreateDescriptorSetLayout(*vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	f.create("descriptorSetLayout")
	return newFakeHandle[vk.DescriptorSetLayout](f), vk.Success
}

func (f *fakeDriver) DestroyDescriptorSetLayout(vk.DescriptorSetLayout) {
	f.destroy("descriptorSetLayout")
}

func (f *fakeDriver) CreatePipelineLayout(*vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	f.create("pipelineLayout")
	return newFakeHandle[vk.PipelineLayout](f), vk.Success
}

func (f *fakeDriver) DestroyPipelineLayout(vk.PipelineLayout) { f.destroy("pipelineLayout") }

func (f *fakeDriver) CreateDescriptorPool(*vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	f.create("descriptorPool")
	return newFakeHandle[vk.DescriptorPool](f), vk.Success
}

func (f *fakeDriver) DestroyDescriptorPool(vk.DescriptorPool) { f.destroy("descriptorPool") }

func (f *fakeDriver) AllocateDescriptorSets(_ vk.DescriptorPool, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, vk.Result) {
	sets := make([]vk.DescriptorSet, len(layouts))
	for i := range sets {
		f.descriptorSets++
		sets[i] = newFakeHandle[vk.DescriptorSet](f)
	}
	return sets, vk.Success
}

func (f *fakeDriver) UpdateDescriptorSets([]vk.WriteDescriptorSet) {}

func (f *fakeDriver) CreatePipelineCache(initialData []byte) (vk.PipelineCache, vk.Result) {
	f.create("pipelineCache")
	f.cacheInitData = append([]byte(nil), initialData...)
	return newFakeHandle[vk.PipelineCache](f), vk.Success
}

func (f *fakeDriver) DestroyPipelineCache(vk.PipelineCache) { f.destroy("pipelineCache") }

func (f *fakeDriver) GetPipelineCacheData(vk.PipelineCache) ([]byte, vk.Result) {
	return f.cacheData, vk.Success
}

func (f *fakeDriver) CreateGraphicsPipeline(vk.PipelineCache, *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	if f.pipelineResult != vk.Success {
		return nil, f.pipelineResult
	}
	f.create("pipeline")
	f.pipelines++
	return newFakeHandle[vk.Pipeline](f), vk.Success
}

func (f *fakeDriver) DestroyPipeline(vk.Pipeline) { f.destroy("pipeline") }

func (f *fakeDriver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	f.create("swapchain")
	f.swapchainInfo = *info
	return newFakeHandle[vk.Swapchain](f), vk.Success
}

func (f *fakeDriver) DestroySwapchain(vk.Swapchain) { f.destroy("swapchain") }

func (f *fakeDriver) GetSwapchainImages(vk.Swapchain) ([]vk.Image, vk.Result) {
	f.swapchainImages = make([]vk.Image, f.swapchainInfo.MinImageCount)
	for i := range f.swapchainImages {
		f.swapchainImages[i] = newFakeHandle[vk.Image](f)
	}
	f.nextImage = 0
	return f.swapchainImages, vk.Success
}

// AcquireNextImage hands out the images round robin. Queued results are
// returned first.
func (f *fakeDriver) AcquireNextImage(_ vk.Swapchain, _ uint64, _ vk.Semaphore, fence vk.Fence) (uint32, vk.Result) {
	f.acquires++
	res := vk.Success
	if len(f.acquireResults) > 0 {
		res = f.acquireResults[0]
		f.acquireResults = f.acquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			return 0, res
		}
	}
	index := f.nextImage
	f.nextImage = (f.nextImage + 1) % uint32(len(f.swapchainImages))
	if fence != nil {
		f.fences[fence] = true
	}
	return index, res
}

// submitsOn returns the submissions on the queue of family.
func (f *fakeDriver) submitsOn(family uint32) []fakeSubmit {
	var out []fakeSubmit
	for _, s := range f.submits {
		if s.queue == f.queues[family] {
			out = append(out, s)
		}
	}
	return out
}

// fakeBackend is a fixed size output without an overlay window.
type fakeBackend struct {
	width, height uint32
	shown         int
	geometry      [][2]uint32
}

func (b *fakeBackend) GetInstanceProcAddress() unsafe.Pointer        { return nil }
func (b *fakeBackend) PlatformSurfaceExtensions() []string           { return nil }
func (b *fakeBackend) CreateSurface(vk.Instance) (vk.Surface, error) { return nil, nil }
func (b *fakeBackend) PresentationSupport(vk.PhysicalDevice, uint32) bool {
	return true
}
func (b *fakeBackend) ScreenSize() (uint32, uint32) { return b.width, b.height }
func (b *fakeBackend) ScreenGeometryChanged(width, height uint32) {
	b.geometry = append(b.geometry, [2]uint32{width, height})
}
func (b *fakeBackend) UsesOverlayWindow() bool { return false }
func (b *fakeBackend) OverlayWindow() uintptr  { return 0 }
func (b *fakeBackend) ShowOverlay()            { b.shown++ }

// fakeShaders returns a one word module for every name.
type fakeShaders struct {
	requested []string
	missing   string
}

func (s *fakeShaders) SPIRV(name string) ([]uint32, error) {
	s.requested = append(s.requested, name)
	if name == s.missing {
		return nil, errors.Newf("shader %s not found", name)
	}
	return []uint32{0x07230203}, nil
}

type fakeListener struct {
	deviceLost int
	failures   []error
}

func (l *fakeListener) DeviceLost()                 { l.deviceLost++ }
func (l *fakeListener) CompositingFailed(err error) { l.failures = append(l.failures, err) }

// paintFunc adapts a function to renderer.ScreenPainter.
type paintFunc func(canvas renderer.Canvas, damage, repaint math.Region) (math.Region, math.Region)

func (f paintFunc) PaintScreen(canvas renderer.Canvas, damage, repaint math.Region) (math.Region, math.Region) {
	return f(canvas, damage, repaint)
}
