package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
)

// SharedObject is a GPU resource that may be kept alive by more than one
// owner. A paint pass holds a reference to every object its command buffers
// touch until the pass fence has signaled.
type SharedObject interface {
	Ref()
	Unref()
}

// deviceObject owns exactly one device level handle. The zero value is the
// null state.
type deviceObject[T comparable] struct {
	device  *VulkanDevice
	handle  T
	destroy func(DeviceDriver, T)
}

func newDeviceObject[T comparable](device *VulkanDevice, handle T, destroy func(DeviceDriver, T)) deviceObject[T] {
	device.liveObjects.Add(1)
	return deviceObject[T]{device: device, handle: handle, destroy: destroy}
}

func (o *deviceObject[T]) Handle() T {
	return o.handle
}

func (o *deviceObject[T]) IsValid() bool {
	var null T
	return o != nil && o.handle != null
}

// Close destroys the handle. Calling it on a null or moved-from object is a no-op.
func (o *deviceObject[T]) Close() {
	if !o.IsValid() {
		return
	}
	var null T
	o.destroy(o.device.Driver, o.handle)
	o.device.liveObjects.Add(-1)
	o.handle = null
}

// take transfers ownership out of o and leaves it in the null state.
func (o *deviceObject[T]) take() deviceObject[T] {
	moved := *o
	var null T
	o.handle = null
	return moved
}

// sharedObject is a reference counted deviceObject. It starts with one
// reference held by its creator; the handle is destroyed when the last
// reference is dropped.
type sharedObject[T comparable] struct {
	deviceObject[T]
	refs atomic.Int32
}

func (s *sharedObject[T]) init(object deviceObject[T]) {
	s.deviceObject = object
	s.refs.Store(1)
}

func (s *sharedObject[T]) Ref() {
	s.refs.Add(1)
}

func (s *sharedObject[T]) Unref() {
	if !s.IsValid() {
		return
	}
	if s.refs.Add(-1) == 0 {
		s.deviceObject.Close()
	}
}

// Close drops the creator's reference.
func (s *sharedObject[T]) Close() {
	s.Unref()
}

// RefCount reports the number of outstanding references.
func (s *sharedObject[T]) RefCount() int32 {
	return s.refs.Load()
}

/**
 * @brief Unique wrappers. Move transfers the handle into a new wrapper and
 * nulls the receiver.
 */

type VulkanSampler struct{ deviceObject[vk.Sampler] }

func NewVulkanSampler(device *VulkanDevice, info *vk.SamplerCreateInfo) (*VulkanSampler, vk.Result) {
	handle, res := device.Driver.CreateSampler(info)
	if res != vk.Success {
		return &VulkanSampler{}, res
	}
	return &VulkanSampler{newDeviceObject(device, handle, DeviceDriver.DestroySampler)}, res
}

func (s *VulkanSampler) Move() *VulkanSampler { return &VulkanSampler{s.take()} }

type VulkanRenderPass struct{ deviceObject[vk.RenderPass] }

func NewVulkanRenderPass(device *VulkanDevice, info *vk.RenderPassCreateInfo) (*VulkanRenderPass, vk.Result) {
	handle, res := device.Driver.CreateRenderPass(info)
	if res != vk.Success {
		return &VulkanRenderPass{}, res
	}
	return &VulkanRenderPass{newDeviceObject(device, handle, DeviceDriver.DestroyRenderPass)}, res
}

func (r *VulkanRenderPass) Move() *VulkanRenderPass { return &VulkanRenderPass{r.take()} }

type VulkanShaderModule struct{ deviceObject[vk.ShaderModule] }

func NewVulkanShaderModule(device *VulkanDevice, code []uint32) (*VulkanShaderModule, vk.Result) {
	handle, res := device.Driver.CreateShaderModule(code)
	if res != vk.Success {
		return &VulkanShaderModule{}, res
	}
	return &VulkanShaderModule{newDeviceObject(device, handle, DeviceDriver.DestroyShaderModule)}, res
}

func (m *VulkanShaderModule) Move() *VulkanShaderModule { return &VulkanShaderModule{m.take()} }

type VulkanPipelineLayout struct {
	deviceObject[vk.PipelineLayout]
}

func NewVulkanPipelineLayout(device *VulkanDevice, info *vk.PipelineLayoutCreateInfo) (*VulkanPipelineLayout, vk.Result) {
	handle, res := device.Driver.CreatePipelineLayout(info)
	if res != vk.Success {
		return &VulkanPipelineLayout{}, res
	}
	return &VulkanPipelineLayout{newDeviceObject(device, handle, DeviceDriver.DestroyPipelineLayout)}, res
}

func (l *VulkanPipelineLayout) Move() *VulkanPipelineLayout { return &VulkanPipelineLayout{l.take()} }

type VulkanDescriptorSetLayout struct {
	deviceObject[vk.DescriptorSetLayout]
}

func NewVulkanDescriptorSetLayout(device *VulkanDevice, info *vk.DescriptorSetLayoutCreateInfo) (*VulkanDescriptorSetLayout, vk.Result) {
	handle, res := device.Driver.CreateDescriptorSetLayout(info)
	if res != vk.Success {
		return &VulkanDescriptorSetLayout{}, res
	}
	return &VulkanDescriptorSetLayout{newDeviceObject(device, handle, DeviceDriver.DestroyDescriptorSetLayout)}, res
}

func (l *VulkanDescriptorSetLayout) Move() *VulkanDescriptorSetLayout {
	return &VulkanDescriptorSetLayout{l.take()}
}

type VulkanDescriptorPool struct {
	deviceObject[vk.DescriptorPool]
}

func NewVulkanDescriptorPool(device *VulkanDevice, info *vk.DescriptorPoolCreateInfo) (*VulkanDescriptorPool, vk.Result) {
	handle, res := device.Driver.CreateDescriptorPool(info)
	if res != vk.Success {
		return &VulkanDescriptorPool{}, res
	}
	return &VulkanDescriptorPool{newDeviceObject(device, handle, DeviceDriver.DestroyDescriptorPool)}, res
}

func (p *VulkanDescriptorPool) Move() *VulkanDescriptorPool { return &VulkanDescriptorPool{p.take()} }

type VulkanCommandPool struct {
	deviceObject[vk.CommandPool]
	QueueFamilyIndex uint32
}

func NewVulkanCommandPool(device *VulkanDevice, flags vk.CommandPoolCreateFlags, queueFamilyIndex uint32) (*VulkanCommandPool, vk.Result) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            flags,
		QueueFamilyIndex: queueFamilyIndex,
	}
	handle, res := device.Driver.CreateCommandPool(&info)
	if res != vk.Success {
		return &VulkanCommandPool{}, res
	}
	return &VulkanCommandPool{
		deviceObject:     newDeviceObject(device, handle, DeviceDriver.DestroyCommandPool),
		QueueFamilyIndex: queueFamilyIndex,
	}, res
}

func (p *VulkanCommandPool) Reset() vk.Result {
	return p.device.Driver.ResetCommandPool(p.handle, 0)
}

func (p *VulkanCommandPool) Move() *VulkanCommandPool {
	return &VulkanCommandPool{deviceObject: p.take(), QueueFamilyIndex: p.QueueFamilyIndex}
}

/**
 * @brief Shared wrappers. These are the resources a submitted command buffer
 * may still reference after the CPU side is done with them.
 */

type VulkanBuffer struct {
	sharedObject[vk.Buffer]
	size  uint64
	usage vk.BufferUsageFlags
}

func NewVulkanBuffer(device *VulkanDevice, info *vk.BufferCreateInfo) (*VulkanBuffer, vk.Result) {
	buffer := &VulkanBuffer{size: uint64(info.Size), usage: info.Usage}
	handle, res := device.Driver.CreateBuffer(info)
	if res != vk.Success {
		return buffer, res
	}
	buffer.init(newDeviceObject(device, handle, DeviceDriver.DestroyBuffer))
	return buffer, res
}

func (b *VulkanBuffer) Size() uint64               { return b.size }
func (b *VulkanBuffer) Usage() vk.BufferUsageFlags { return b.usage }

type VulkanSemaphore struct{ sharedObject[vk.Semaphore] }

func NewVulkanSemaphore(device *VulkanDevice) (*VulkanSemaphore, vk.Result) {
	semaphore := &VulkanSemaphore{}
	handle, res := device.Driver.CreateSemaphore()
	if res != vk.Success {
		return semaphore, res
	}
	semaphore.init(newDeviceObject(device, handle, DeviceDriver.DestroySemaphore))
	return semaphore, res
}

// BusyObjects is the set of references a paint pass holds on behalf of its
// command buffers. Adding the same object twice takes one reference.
type BusyObjects struct {
	objects []SharedObject
	seen    map[SharedObject]struct{}
}

func (b *BusyObjects) Add(object SharedObject) {
	if object == nil {
		return
	}
	if b.seen == nil {
		b.seen = make(map[SharedObject]struct{})
	}
	if _, ok := b.seen[object]; ok {
		return
	}
	object.Ref()
	b.seen[object] = struct{}{}
	b.objects = append(b.objects, object)
}

// Release drops every held reference in insertion order.
func (b *BusyObjects) Release() {
	for _, object := range b.objects {
		object.Unref()
	}
	clear(b.seen)
	b.objects = b.objects[:0]
}

func (b *BusyObjects) Len() int {
	return len(b.objects)
}
