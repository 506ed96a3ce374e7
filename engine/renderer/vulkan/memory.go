package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

// VulkanDeviceMemory is one device memory allocation.
type VulkanDeviceMemory struct {
	sharedObject[vk.DeviceMemory]
	size      uint64
	flags     vk.MemoryPropertyFlags
	typeIndex uint32
	dedicated bool
	mapped    unsafe.Pointer
}

func (m *VulkanDeviceMemory) Size() uint64                  { return m.size }
func (m *VulkanDeviceMemory) Flags() vk.MemoryPropertyFlags { return m.flags }
func (m *VulkanDeviceMemory) TypeIndex() uint32             { return m.typeIndex }
func (m *VulkanDeviceMemory) IsDedicated() bool             { return m.dedicated }

func (m *VulkanDeviceMemory) IsHostVisible() bool {
	return m.flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

func (m *VulkanDeviceMemory) IsHostCoherent() bool {
	return m.flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0
}

func (m *VulkanDeviceMemory) IsDeviceLocal() bool {
	return m.flags&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) != 0
}

// Map maps the whole allocation and returns a host view starting at offset.
// The mapping stays valid until the memory is freed.
func (m *VulkanDeviceMemory) Map(offset uint64) ([]byte, error) {
	if !m.IsValid() {
		return nil, errors.New("mapping invalid device memory")
	}
	if offset > m.size {
		return nil, errors.Newf("map offset %d beyond allocation size %d", offset, m.size)
	}
	if m.mapped == nil {
		ptr, res := m.device.Driver.MapMemory(m.handle, 0, m.size)
		if res != vk.Success {
			return nil, resultError(res, "vkMapMemory")
		}
		m.mapped = ptr
	}
	return unsafe.Slice((*byte)(unsafe.Add(m.mapped, offset)), m.size-offset), nil
}

func (m *VulkanDeviceMemory) Unmap() {
	if m.mapped != nil && m.IsValid() {
		m.device.Driver.UnmapMemory(m.handle)
		m.mapped = nil
	}
}

// VulkanDeviceMemoryAllocator picks memory types and allocates device memory.
type VulkanDeviceMemoryAllocator struct {
	device           *VulkanDevice
	memoryProperties vk.PhysicalDeviceMemoryProperties

	haveDedicatedAllocation    bool
	haveGetMemoryRequirements2 bool
}

func NewVulkanDeviceMemoryAllocator(device *VulkanDevice) *VulkanDeviceMemoryAllocator {
	return &VulkanDeviceMemoryAllocator{
		device:                     device,
		memoryProperties:           device.MemoryProperties,
		haveDedicatedAllocation:    device.HasExtension(dedicatedAllocationExtName),
		haveGetMemoryRequirements2: device.HasExtension(getMemoryRequirements2ExtName),
	}
}

// FindMemoryType returns the first memory type allowed by memoryTypeBits whose
// property flags include mask, or -1.
func (a *VulkanDeviceMemoryAllocator) FindMemoryType(memoryTypeBits uint32, mask vk.MemoryPropertyFlags) int {
	for i := uint32(0); i < a.memoryProperties.MemoryTypeCount; i++ {
		if memoryTypeBits&(1<<i) != 0 && a.memoryProperties.MemoryTypes[i].PropertyFlags&mask == mask {
			return int(i)
		}
	}
	return -1
}

// AllocateMemory allocates size bytes from a type with the optimal flags, or
// failing that the required flags. A type that runs out of device memory is
// excluded and the search repeats.
func (a *VulkanDeviceMemoryAllocator) AllocateMemory(size uint64, memoryTypeBits uint32, optimal, required vk.MemoryPropertyFlags) (*VulkanDeviceMemory, error) {
	return a.allocate(size, memoryTypeBits, optimal, required, nil, nil)
}

// AllocateBufferMemory allocates memory for buffer and binds it at offset 0.
func (a *VulkanDeviceMemoryAllocator) AllocateBufferMemory(buffer *VulkanBuffer, optimal, required vk.MemoryPropertyFlags) (*VulkanDeviceMemory, error) {
	queryDedicated := a.haveGetMemoryRequirements2 && a.haveDedicatedAllocation
	reqs := a.device.Driver.GetBufferMemoryRequirements(buffer.Handle(), queryDedicated)

	var dedicated vk.Buffer
	if reqs.PrefersDedicated || reqs.RequiresDedicated {
		dedicated = buffer.Handle()
	}

	memory, err := a.allocate(reqs.Size, reqs.MemoryTypeBits, optimal, required, dedicated, nil)
	if err != nil {
		return nil, err
	}
	if res := a.device.Driver.BindBufferMemory(buffer.Handle(), memory.Handle(), 0); res != vk.Success {
		memory.Close()
		return nil, resultError(res, "vkBindBufferMemory")
	}
	return memory, nil
}

// AllocateImageMemory allocates memory for image and binds it at offset 0.
func (a *VulkanDeviceMemoryAllocator) AllocateImageMemory(image *VulkanImage, optimal, required vk.MemoryPropertyFlags) (*VulkanDeviceMemory, error) {
	queryDedicated := a.haveGetMemoryRequirements2 && a.haveDedicatedAllocation
	reqs := a.device.Driver.GetImageMemoryRequirements(image.Handle(), queryDedicated)

	var dedicated vk.Image
	if reqs.PrefersDedicated || reqs.RequiresDedicated {
		dedicated = image.Handle()
	}

	memory, err := a.allocate(reqs.Size, reqs.MemoryTypeBits, optimal, required, nil, dedicated)
	if err != nil {
		return nil, err
	}
	if res := a.device.Driver.BindImageMemory(image.Handle(), memory.Handle(), 0); res != vk.Success {
		memory.Close()
		return nil, resultError(res, "vkBindImageMemory")
	}
	return memory, nil
}

func (a *VulkanDeviceMemoryAllocator) allocate(size uint64, memoryTypeBits uint32, optimal, required vk.MemoryPropertyFlags, dedicatedBuffer vk.Buffer, dedicatedImage vk.Image) (*VulkanDeviceMemory, error) {
	var handle vk.DeviceMemory
	index := -1

	for handle == nil {
		index = a.FindMemoryType(memoryTypeBits, optimal)
		if index == -1 {
			index = a.FindMemoryType(memoryTypeBits, required)
		}
		if index == -1 {
			break
		}

		var res vk.Result
		handle, res = a.device.Driver.AllocateMemory(size, uint32(index), dedicatedBuffer, dedicatedImage)
		if res != vk.Success {
			handle = nil
			if res == vk.ErrorOutOfDeviceMemory {
				// Try the next type
				memoryTypeBits &^= 1 << uint32(index)
				continue
			}
			break
		}
	}

	if handle == nil {
		err := errors.Newf("failed to allocate %d bytes of device memory", size)
		core.LogError(err.Error())
		return nil, err
	}

	memory := &VulkanDeviceMemory{
		size:      size,
		flags:     a.memoryProperties.MemoryTypes[index].PropertyFlags,
		typeIndex: uint32(index),
		dedicated: dedicatedBuffer != nil || dedicatedImage != nil,
	}
	memory.init(newDeviceObject(a.device, handle, DeviceDriver.FreeMemory))
	return memory, nil
}
