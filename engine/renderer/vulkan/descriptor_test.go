package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

func newTestDescriptorPool(f *fakeDriver, device *VulkanDevice, maxSets uint32) *SceneDescriptorPool {
	return NewSceneDescriptorPool(device, newFakeHandle[vk.DescriptorSetLayout](f), maxSets, []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeUniformBufferDynamic,
		DescriptorCount: maxSets,
	}})
}

func TestSceneDescriptorPoolGrows(t *testing.T) {
	f := newFakeDriver()
	device := newTestDevice(t, f)
	defer device.Close()
	pool := newTestDescriptorPool(f, device, 2)

	var sets []*ColorDescriptorSet
	for i := 0; i < 3; i++ {
		set := NewColorDescriptorSet(pool)
		if !set.IsValid() {
			t.Fatalf("allocation %d failed", i)
		}
		sets = append(sets, set)
	}
	if pool.PoolCount() != 2 || f.live("descriptorPool") != 2 {
		t.Fatalf("an exhausted pool must be followed by a new one, got %d", pool.PoolCount())
	}

	for _, set := range sets {
		set.Close()
	}
	pool.Close()
	if f.live("descriptorPool") != 0 {
		t.Fatal("closing the scene pool must destroy every driver pool")
	}
}

func TestSceneDescriptorPoolRecyclesSets(t *testing.T) {
	f := newFakeDriver()
	device := newTestDevice(t, f)
	defer device.Close()
	pool := newTestDescriptorPool(f, device, 8)
	defer pool.Close()

	first := NewColorDescriptorSet(pool)
	second := NewColorDescriptorSet(pool)
	h1, h2 := first.Handle(), second.Handle()
	first.Close()
	second.Close()

	// Freed sets come back last in, first out.
	if got := NewColorDescriptorSet(pool).Handle(); got != h2 {
		t.Fatal("the most recently freed set should be reused first")
	}
	if got := NewColorDescriptorSet(pool).Handle(); got != h1 {
		t.Fatal("the remaining freed set should be reused next")
	}
	if f.descriptorSets != 2 {
		t.Fatalf("recycling must not allocate from the driver, got %d allocations", f.descriptorSets)
	}
}

func TestDescriptorSetKeepsResourcesAlive(t *testing.T) {
	f := newFakeDriver()
	m, device := newTestUploadManager(t, f, 1024)
	defer device.Close()
	pool := newTestDescriptorPool(f, device, 8)
	defer pool.Close()

	uniform := m.Allocate(uint64(unsafe.Sizeof(ColorUniformData{})), m.MinUniformBufferOffsetAlignment())
	set := NewColorDescriptorSet(pool)
	set.Update(uniform)
	if set.UniformBuffer() != uniform.Buffer || uniform.Buffer.RefCount() != 2 {
		t.Fatal("the set must hold a reference on its uniform buffer")
	}

	// A paint pass reference outlives the owner.
	var busy BusyObjects
	busy.Add(set.descriptorSet)
	handle := set.Handle()
	set.Close()
	if !set.IsValid() {
		t.Fatal("a set in flight must stay allocated")
	}

	m.Close()
	if f.live("buffer") != 1 {
		t.Fatal("the uniform buffer must outlive the upload manager while bound")
	}

	busy.Release()
	if set.IsValid() || f.live("buffer") != 0 {
		t.Fatal("releasing the last reference must free the set and its buffer")
	}
	if got := NewColorDescriptorSet(pool).Handle(); got != handle {
		t.Fatal("the freed set should be recycled")
	}
}

func TestDescriptorSetMove(t *testing.T) {
	f := newFakeDriver()
	device := newTestDevice(t, f)
	defer device.Close()
	pool := newTestDescriptorPool(f, device, 8)
	defer pool.Close()

	set := NewTextureDescriptorSet(pool)
	handle := set.Handle()
	moved := set.Move()

	if set.IsValid() || set.Handle() != nil {
		t.Fatal("the moved-from set must be null")
	}
	set.Close()
	if moved.Handle() != handle || !moved.IsValid() {
		t.Fatal("the handle must move to the new wrapper")
	}
	moved.Close()
	if moved.IsValid() {
		t.Fatal("closing the moved set must free it")
	}
}
