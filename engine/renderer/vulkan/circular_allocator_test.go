package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

var uploadUsage = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageUniformBufferBit)

func newTestUploadManager(t *testing.T, f *fakeDriver, size uint32) (*VulkanUploadManager, *VulkanDevice) {
	t.Helper()
	device := newTestDevice(t, f)
	allocator := NewVulkanDeviceMemoryAllocator(device)
	return NewVulkanUploadManager(device, allocator, size, uploadUsage, hostVisible), device
}

func TestUploadManagerAlignment(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	defer m.Close()

	tests := []struct {
		size      uint64
		alignment uint32
		want      uint64
	}{
		{100, 16, 0},
		{64, 256, 256},
		// Twelve is the row alignment of three byte texel uploads.
		{10, 12, 324},
		{8, 0, 334},
	}
	var buffer *VulkanBuffer
	for _, tt := range tests {
		r := m.Allocate(tt.size, tt.alignment)
		if !r.IsValid() {
			t.Fatalf("allocating %d bytes failed", tt.size)
		}
		if r.Offset != tt.want {
			t.Fatalf("expected offset %d, got %d", tt.want, r.Offset)
		}
		if uint64(len(r.Data)) != tt.size {
			t.Fatalf("expected %d bytes, got %d", tt.size, len(r.Data))
		}
		if buffer != nil && r.Buffer != buffer {
			t.Fatal("allocations that fit must share the ring")
		}
		buffer = r.Buffer
	}
	if f.live("buffer") != 1 {
		t.Fatalf("expected one ring buffer, got %d", f.live("buffer"))
	}
}

func TestUploadManagerReusesRetiredSpace(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	defer m.Close()

	first := m.Allocate(512, 1)
	frame1 := m.CreateFrameBoundary()
	m.Allocate(512, 1)
	frame2 := m.CreateFrameBoundary()
	defer frame2.Close()

	frame1.Close()
	r := m.Allocate(256, 1)
	if r.Buffer != first.Buffer || r.Offset != 0 {
		t.Fatalf("the retired frame should be reused, got offset %d", r.Offset)
	}

	// The second frame is still in flight.
	r = m.Allocate(512, 1)
	if r.Buffer == first.Buffer {
		t.Fatal("data in flight must not be overwritten")
	}
	if r.Buffer.Size() != 2048 {
		t.Fatalf("the ring should double, got %d bytes", r.Buffer.Size())
	}
}

func TestUploadManagerRetiresInOrder(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	defer m.Close()

	first := m.Allocate(512, 1)
	frame1 := m.CreateFrameBoundary()
	m.Allocate(512, 1)
	frame2 := m.CreateFrameBoundary()

	frame2.Close()
	r := m.Allocate(256, 1)
	if r.Buffer == first.Buffer {
		t.Fatal("the tail must not pass a frame still in flight")
	}
	if f.live("buffer") != 2 {
		t.Fatalf("the superseded ring must stay alive, got %d buffers", f.live("buffer"))
	}

	frame1.Close()
	if f.live("buffer") != 1 {
		t.Fatal("the superseded ring must be freed with its last frame")
	}
}

func TestUploadManagerOrphansBusyRing(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()

	m.Allocate(1000, 1)
	grown := m.Allocate(1000, 1)
	if grown.Buffer.Size() != 2048 {
		t.Fatalf("expected a 2048 byte ring, got %d", grown.Buffer.Size())
	}

	// The first ring is not covered by a boundary yet and is handed to the
	// next one.
	boundary := m.CreateFrameBoundary()
	if f.live("buffer") != 2 {
		t.Fatal("the orphaned ring must survive until its frame completes")
	}
	boundary.Close()
	if f.live("buffer") != 1 {
		t.Fatal("releasing the boundary must free the orphaned ring")
	}

	m.Close()
	if f.live("buffer") != 0 || f.live("memory") != 0 {
		t.Fatalf("objects leaked: %v", f.leaks())
	}
}

func TestUploadManagerNonCoherentRanges(t *testing.T) {
	f := newFakeDriver()
	f.memory.MemoryTypes[1].PropertyFlags = hostVisible
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	defer m.Close()

	memory := func() vk.DeviceMemory { return m.current.memory.Handle() }
	check := func(ranges []vk.MappedMemoryRange, want ...[2]vk.DeviceSize) {
		t.Helper()
		if len(ranges) != len(want) {
			t.Fatalf("expected %d ranges, got %v", len(want), ranges)
		}
		for i, r := range ranges {
			if r.Memory != memory() || r.Offset != want[i][0] || r.Size != want[i][1] {
				t.Fatalf("range %d: expected %v, got offset %d size %d", i, want[i], r.Offset, r.Size)
			}
		}
	}

	m.Allocate(100, 1)
	check(m.NonCoherentAllocatedRanges(), [2]vk.DeviceSize{0, 128})
	check(m.NonCoherentAllocatedRanges())

	m.Allocate(800, 1)
	check(m.NonCoherentAllocatedRanges(), [2]vk.DeviceSize{64, 896})
	m.CreateFrameBoundary().Close()

	// Wrapping leaves dirty bytes at both ends of the ring.
	r := m.Allocate(200, 1)
	if r.Offset != 0 {
		t.Fatalf("expected the allocation to wrap, got offset %d", r.Offset)
	}
	check(m.NonCoherentAllocatedRanges(), [2]vk.DeviceSize{0, 256}, [2]vk.DeviceSize{896, 128})
}

func TestUploadManagerCoherentMemoryNeedsNoFlush(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	defer m.Close()

	m.Allocate(100, 1)
	if ranges := m.NonCoherentAllocatedRanges(); len(ranges) != 0 {
		t.Fatalf("coherent memory needs no flush, got %v", ranges)
	}
}

func TestStagingImageAllocator(t *testing.T) {
	f := newFakeDriver()
	device := newTestDevice(t, f)
	defer device.Close()
	a := NewVulkanStagingImageAllocator(device, NewVulkanDeviceMemoryAllocator(device), 8192, hostVisible)

	info := &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.FormatR8g8b8a8Unorm,
		Extent:        vk.Extent3D{Width: 16, Height: 16, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingLinear,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		InitialLayout: vk.ImageLayoutPreinitialized,
	}

	first := a.CreateImage(info)
	second := a.CreateImage(info)
	if first == nil || second == nil {
		t.Fatal("staging image creation failed")
	}
	if len(first.Data()) != 4096 || first.Layout().RowPitch != 256 {
		t.Fatalf("unexpected staging layout: %d bytes, pitch %d", len(first.Data()), first.Layout().RowPitch)
	}
	if f.bound[first.Handle()] != f.bound[second.Handle()] {
		t.Fatal("images that fit must share the ring memory")
	}
	if f.live("memory") != 1 {
		t.Fatalf("expected one ring allocation, got %d", f.live("memory"))
	}

	third := a.CreateImage(info)
	if f.bound[third.Handle()] == f.bound[first.Handle()] {
		t.Fatal("a full ring must be replaced")
	}

	for _, img := range []*VulkanStagingImage{first, second, third} {
		img.Close()
	}
	a.CreateFrameBoundary().Close()
	a.Close()
	if f.live("image") != 0 || f.live("memory") != 0 {
		t.Fatalf("objects leaked: %v", f.leaks())
	}
}
