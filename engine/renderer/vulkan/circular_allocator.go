package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/math"
)

// circularBuffer is one ring of host visible memory. head and tail are
// monotonic byte cursors; the byte offset in the ring is cursor & (size-1).
// The ring size is always a power of two.
type circularBuffer struct {
	buffer *VulkanBuffer // nil for staging image rings
	memory *VulkanDeviceMemory
	data   []byte
	size   uint32

	head                 uint64
	tail                 uint64
	nextWrapAroundOffset uint64
	lastBusyOffset       uint64
	flushedOffset        uint64

	// Outstanding busy offsets, oldest first.
	busy []*busyOffset

	refs atomic.Int32
}

func newCircularBuffer(buffer *VulkanBuffer, memory *VulkanDeviceMemory, data []byte, size uint32) *circularBuffer {
	cb := &circularBuffer{
		buffer: buffer,
		memory: memory,
		data:   data,
		size:   size,
	}
	cb.nextWrapAroundOffset = uint64(size)
	cb.refs.Store(1)
	return cb
}

func (cb *circularBuffer) ref() {
	cb.refs.Add(1)
}

func (cb *circularBuffer) unref() {
	if cb.refs.Add(-1) != 0 {
		return
	}
	if cb.buffer != nil {
		cb.buffer.Unref()
	}
	if cb.memory != nil {
		cb.memory.Unref()
	}
	cb.data = nil
}

// allocate reserves size bytes aligned to alignment and returns the ring
// offset. It fails when the free space between head and tail is too small.
func (cb *circularBuffer) allocate(size uint64, alignment uint32) (uint32, bool) {
	if size > uint64(cb.size) {
		return 0, false
	}
	if alignment == 0 {
		alignment = 1
	}
	ringSize := uint64(cb.size)

	// Offsets are aligned relative to the start of the current lap so that
	// alignments which are not a power of two hold within the ring too.
	lap := cb.nextWrapAroundOffset - ringSize
	a := uint64(alignment)
	offset := lap + (cb.head-lap+a-1)/a*a

	// An allocation never straddles the end of the ring.
	wrapAroundOffset := cb.nextWrapAroundOffset
	if offset+size > wrapAroundOffset {
		offset = wrapAroundOffset
		wrapAroundOffset += ringSize
	}

	if offset+size > cb.tail+ringSize {
		return 0, false
	}

	cb.head = offset + size
	cb.nextWrapAroundOffset = wrapAroundOffset
	return uint32(offset & (ringSize - 1)), true
}

// isBusy reports whether there are allocations not yet covered by a frame
// boundary.
func (cb *circularBuffer) isBusy() bool {
	return cb.head != cb.lastBusyOffset
}

// markBusy returns a busy offset covering everything allocated so far, or nil
// when nothing was allocated since the previous one.
func (cb *circularBuffer) markBusy() *busyOffset {
	if cb.lastBusyOffset == cb.head {
		return nil
	}
	cb.lastBusyOffset = cb.head
	b := &busyOffset{ring: cb, offset: cb.head}
	cb.busy = append(cb.busy, b)
	cb.ref()
	return b
}

// retire advances the tail past every released busy offset at the front of
// the queue. The tail never passes an offset that is still alive.
func (cb *circularBuffer) retire() {
	n := 0
	for n < len(cb.busy) && cb.busy[n].released {
		cb.tail = cb.busy[n].offset
		n++
	}
	if n > 0 {
		clear(cb.busy[:n])
		cb.busy = cb.busy[n:]
	}
}

func (cb *circularBuffer) nonCoherentAllocatedRanges(ranges []vk.MappedMemoryRange, atomSize uint32) []vk.MappedMemoryRange {
	if cb.memory == nil || cb.memory.IsHostCoherent() {
		return ranges
	}
	if cb.flushedOffset == cb.head {
		return ranges
	}
	if atomSize == 0 {
		atomSize = 1
	}

	start := math.AlignDown(cb.flushedOffset, uint64(atomSize))
	end := math.Align(cb.head, uint64(atomSize))
	memory := cb.memory.Handle()
	ringSize := uint64(cb.size)

	if end-start >= ringSize {
		ranges = append(ranges, vk.MappedMemoryRange{
			SType:  vk.StructureTypeMappedMemoryRange,
			Memory: memory,
			Offset: 0,
			Size:   vk.DeviceSize(cb.memory.Size()),
		})
	} else {
		mask := ringSize - 1
		start &= mask
		end &= mask
		if end == 0 {
			end = ringSize
		}

		if start < end {
			ranges = append(ranges, vk.MappedMemoryRange{
				SType:  vk.StructureTypeMappedMemoryRange,
				Memory: memory,
				Offset: vk.DeviceSize(start),
				Size:   vk.DeviceSize(end - start),
			})
		} else {
			// Dirty ranges at both ends of the ring
			ranges = append(ranges,
				vk.MappedMemoryRange{
					SType:  vk.StructureTypeMappedMemoryRange,
					Memory: memory,
					Offset: 0,
					Size:   vk.DeviceSize(end),
				},
				vk.MappedMemoryRange{
					SType:  vk.StructureTypeMappedMemoryRange,
					Memory: memory,
					Offset: vk.DeviceSize(start),
					Size:   vk.DeviceSize(cb.memory.Size() - start),
				})
		}
	}

	cb.flushedOffset = cb.head
	return ranges
}

type busyOffset struct {
	ring     *circularBuffer
	offset   uint64
	released bool
}

func (b *busyOffset) release() {
	if b.released {
		return
	}
	b.released = true
	b.ring.retire()
	b.ring.unref()
}

// FrameBoundary marks the end of the data a paint pass uploaded. Dropping the
// last reference lets the ring reuse that data and frees superseded rings.
type FrameBoundary struct {
	offset   *busyOffset
	orphans  []*circularBuffer
	refs     atomic.Int32
	released bool
}

func (f *FrameBoundary) Ref() {
	f.refs.Add(1)
}

func (f *FrameBoundary) Unref() {
	if f.refs.Add(-1) != 0 || f.released {
		return
	}
	f.released = true
	if f.offset != nil {
		f.offset.release()
	}
	for _, orphan := range f.orphans {
		orphan.unref()
	}
	f.orphans = nil
}

func (f *FrameBoundary) Close() {
	f.Unref()
}

// circularAllocator is the shared state of the upload manager and the
// staging image allocator.
type circularAllocator struct {
	device              *VulkanDevice
	allocator           *VulkanDeviceMemoryAllocator
	nonCoherentAtomSize uint32
	initialSize         uint32
	optimalFlags        vk.MemoryPropertyFlags

	current *circularBuffer
	orphans []*circularBuffer
}

func (a *circularAllocator) nextSize(minimumSize uint64) uint32 {
	size := uint64(a.initialSize)
	if a.current != nil && a.current.size > 0 {
		size = uint64(a.current.size) * 2
	}
	for size < minimumSize {
		size *= 2
	}
	if a.nonCoherentAtomSize > 1 {
		size = math.Align(size, uint64(a.nonCoherentAtomSize))
	}
	return uint32(size)
}

// orphanCurrent moves the active ring to the orphan list while it still has
// data no frame boundary covers.
func (a *circularAllocator) orphanCurrent() {
	if a.current == nil {
		return
	}
	if a.current.isBusy() {
		a.orphans = append(a.orphans, a.current)
	} else {
		a.current.unref()
	}
	a.current = nil
}

// NonCoherentAllocatedRanges returns the ranges written since the last call
// that must be flushed before the GPU reads them.
func (a *circularAllocator) NonCoherentAllocatedRanges() []vk.MappedMemoryRange {
	var ranges []vk.MappedMemoryRange
	for _, orphan := range a.orphans {
		ranges = orphan.nonCoherentAllocatedRanges(ranges, a.nonCoherentAtomSize)
	}
	if a.current != nil {
		ranges = a.current.nonCoherentAllocatedRanges(ranges, a.nonCoherentAtomSize)
	}
	return ranges
}

// CreateFrameBoundary returns a marker covering everything allocated so far.
// The orphaned rings are handed over to it.
func (a *circularAllocator) CreateFrameBoundary() *FrameBoundary {
	boundary := &FrameBoundary{orphans: a.orphans}
	if a.current != nil {
		boundary.offset = a.current.markBusy()
	}
	boundary.refs.Store(1)
	a.orphans = nil
	return boundary
}

func (a *circularAllocator) Close() {
	for _, orphan := range a.orphans {
		orphan.unref()
	}
	a.orphans = nil
	if a.current != nil {
		a.current.unref()
		a.current = nil
	}
}

// VulkanBufferRange is a slice of a ring buffer.
type VulkanBufferRange struct {
	Buffer *VulkanBuffer
	Offset uint64
	Size   uint64
	Data   []byte
}

func (r VulkanBufferRange) IsValid() bool {
	return r.Buffer != nil && r.Buffer.IsValid()
}

// VulkanUploadManager streams transient data through a growable ring buffer.
type VulkanUploadManager struct {
	circularAllocator
	usage vk.BufferUsageFlags

	minTexelBufferOffsetAlignment   uint32
	minUniformBufferOffsetAlignment uint32
	minStorageBufferOffsetAlignment uint32
}

func NewVulkanUploadManager(device *VulkanDevice, allocator *VulkanDeviceMemoryAllocator, initialSize uint32, usage vk.BufferUsageFlags, optimalFlags vk.MemoryPropertyFlags) *VulkanUploadManager {
	if !math.IsPowerOfTwo(initialSize) {
		initialSize = math.NextPowerOfTwo(initialSize)
	}
	limits := device.Limits
	return &VulkanUploadManager{
		circularAllocator: circularAllocator{
			device:              device,
			allocator:           allocator,
			nonCoherentAtomSize: uint32(limits.NonCoherentAtomSize),
			initialSize:         initialSize,
			optimalFlags:        optimalFlags,
		},
		usage:                           usage,
		minTexelBufferOffsetAlignment:   uint32(limits.MinTexelBufferOffsetAlignment),
		minUniformBufferOffsetAlignment: uint32(limits.MinUniformBufferOffsetAlignment),
		minStorageBufferOffsetAlignment: uint32(limits.MinStorageBufferOffsetAlignment),
	}
}

func (m *VulkanUploadManager) MinTexelBufferOffsetAlignment() uint32 {
	return max(m.minTexelBufferOffsetAlignment, 1)
}

func (m *VulkanUploadManager) MinUniformBufferOffsetAlignment() uint32 {
	return max(m.minUniformBufferOffsetAlignment, 1)
}

func (m *VulkanUploadManager) MinStorageBufferOffsetAlignment() uint32 {
	return max(m.minStorageBufferOffsetAlignment, 1)
}

// Allocate returns size bytes aligned to alignment. The returned range is
// invalid only when device memory is exhausted.
func (m *VulkanUploadManager) Allocate(size uint64, alignment uint32) VulkanBufferRange {
	offset, ok := uint32(0), false
	if m.current != nil {
		offset, ok = m.current.allocate(size, alignment)
	}
	if !ok {
		m.reallocate(size)
		if m.current == nil {
			return VulkanBufferRange{}
		}
		if offset, ok = m.current.allocate(size, alignment); !ok {
			return VulkanBufferRange{}
		}
	}
	return VulkanBufferRange{
		Buffer: m.current.buffer,
		Offset: uint64(offset),
		Size:   size,
		Data:   m.current.data[offset : uint64(offset)+size],
	}
}

func (m *VulkanUploadManager) reallocate(minimumSize uint64) {
	newSize := m.nextSize(minimumSize)
	m.orphanCurrent()

	buffer, res := NewVulkanBuffer(m.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(newSize),
		Usage:       m.usage,
		SharingMode: vk.SharingModeExclusive,
	})
	if res != vk.Success || !buffer.IsValid() {
		resultError(res, "vkCreateBuffer")
		return
	}

	memory, err := m.allocator.AllocateBufferMemory(buffer, m.optimalFlags, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		buffer.Close()
		return
	}
	data, err := memory.Map(0)
	if err != nil {
		memory.Close()
		buffer.Close()
		return
	}
	m.current = newCircularBuffer(buffer, memory, data, newSize)
}

// VulkanStagingImageAllocator suballocates linear images from a ring of host
// visible memory so the CPU can write pixels into them directly.
type VulkanStagingImageAllocator struct {
	circularAllocator
}

func NewVulkanStagingImageAllocator(device *VulkanDevice, allocator *VulkanDeviceMemoryAllocator, initialSize uint32, optimalFlags vk.MemoryPropertyFlags) *VulkanStagingImageAllocator {
	if !math.IsPowerOfTwo(initialSize) {
		initialSize = math.NextPowerOfTwo(initialSize)
	}
	return &VulkanStagingImageAllocator{
		circularAllocator: circularAllocator{
			device:              device,
			allocator:           allocator,
			nonCoherentAtomSize: uint32(device.Limits.NonCoherentAtomSize),
			initialSize:         initialSize,
			optimalFlags:        optimalFlags,
		},
	}
}

// CreateImage creates a linear image bound to ring memory. The image must be
// created with VK_IMAGE_TILING_LINEAR.
func (a *VulkanStagingImageAllocator) CreateImage(info *vk.ImageCreateInfo) *VulkanStagingImage {
	image := &VulkanStagingImage{}
	handle, res := a.device.Driver.CreateImage(info)
	if res != vk.Success {
		resultError(res, "vkCreateImage")
		return nil
	}
	image.extent = info.Extent
	image.format = info.Format
	image.mipLevels = info.MipLevels
	image.arrayLayers = info.ArrayLayers
	image.init(newDeviceObject(a.device, handle, DeviceDriver.DestroyImage))

	reqs := a.device.Driver.GetImageMemoryRequirements(handle, false)

	offset, ok := uint32(0), false
	if a.current != nil && a.current.acceptsMemoryTypes(reqs.MemoryTypeBits) {
		offset, ok = a.current.allocate(reqs.Size, uint32(reqs.Alignment))
	}
	if !ok {
		a.reallocate(reqs.Size, reqs.MemoryTypeBits)
		if a.current == nil {
			image.Close()
			return nil
		}
		if offset, ok = a.current.allocate(reqs.Size, uint32(reqs.Alignment)); !ok {
			image.Close()
			return nil
		}
	}

	if res := a.device.Driver.BindImageMemory(handle, a.current.memory.Handle(), uint64(offset)); res != vk.Success {
		resultError(res, "vkBindImageMemory")
		image.Close()
		return nil
	}

	image.data = a.current.data[offset : uint64(offset)+reqs.Size]
	image.layout = a.device.Driver.GetImageSubresourceLayout(handle, vk.ImageSubresource{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	return image
}

// acceptsMemoryTypes reports whether the ring memory type is allowed by bits.
func (cb *circularBuffer) acceptsMemoryTypes(bits uint32) bool {
	return cb.memory != nil && bits&(1<<cb.memory.TypeIndex()) != 0
}

func (a *VulkanStagingImageAllocator) reallocate(minimumSize uint64, memoryTypeBits uint32) {
	newSize := a.nextSize(minimumSize)
	a.orphanCurrent()

	memory, err := a.allocator.AllocateMemory(uint64(newSize), memoryTypeBits, a.optimalFlags, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		return
	}
	data, err := memory.Map(0)
	if err != nil {
		memory.Close()
		return
	}
	a.current = newCircularBuffer(nil, memory, data, newSize)
}
