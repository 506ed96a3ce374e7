package vulkan

import (
	"sync/atomic"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

/**
 * @brief A growable set of descriptor pools that hands out descriptor sets of
 * one layout. Freed sets go onto a free list and are handed out again last in,
 * first out, without a driver call. Sets are never returned to the driver.
 */
type SceneDescriptorPool struct {
	device    *VulkanDevice
	layout    vk.DescriptorSetLayout
	maxSets   uint32
	poolSizes []vk.DescriptorPoolSize

	pools     []*VulkanDescriptorPool
	remaining uint32
	freeList  []vk.DescriptorSet
}

func NewSceneDescriptorPool(device *VulkanDevice, layout vk.DescriptorSetLayout, maxSets uint32, poolSizes []vk.DescriptorPoolSize) *SceneDescriptorPool {
	return &SceneDescriptorPool{
		device:    device,
		layout:    layout,
		maxSets:   maxSets,
		poolSizes: poolSizes,
	}
}

func (p *SceneDescriptorPool) Layout() vk.DescriptorSetLayout {
	return p.layout
}

func (p *SceneDescriptorPool) newPool() bool {
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       p.maxSets,
		PoolSizeCount: uint32(len(p.poolSizes)),
		PPoolSizes:    p.poolSizes,
	}
	pool, res := NewVulkanDescriptorPool(p.device, &info)
	if res != vk.Success {
		resultError(res, "vkCreateDescriptorPool")
		return false
	}
	p.pools = append(p.pools, pool)
	p.remaining = p.maxSets
	return true
}

// AllocateDescriptorSet returns a recycled set when one is available, and
// otherwise allocates from the newest pool, creating one when it is full.
func (p *SceneDescriptorPool) AllocateDescriptorSet() vk.DescriptorSet {
	var set vk.DescriptorSet
	p.device.Locks.SafeCall(DescriptorManagement, func() error {
		if n := len(p.freeList); n > 0 {
			set = p.freeList[n-1]
			p.freeList = p.freeList[:n-1]
			return nil
		}

		if p.remaining == 0 && !p.newPool() {
			return nil
		}

		pool := p.pools[len(p.pools)-1]
		sets, res := p.device.Driver.AllocateDescriptorSets(pool.Handle(), []vk.DescriptorSetLayout{p.layout})
		if res != vk.Success || len(sets) == 0 {
			resultError(res, "vkAllocateDescriptorSets")
			return nil
		}
		p.remaining--
		set = sets[0]
		return nil
	})
	return set
}

func (p *SceneDescriptorPool) FreeDescriptorSet(set vk.DescriptorSet) {
	if set == nil {
		return
	}
	p.device.Locks.SafeCall(DescriptorManagement, func() error {
		p.freeList = append(p.freeList, set)
		return nil
	})
}

// PoolCount is the number of driver pools created so far.
func (p *SceneDescriptorPool) PoolCount() int {
	return len(p.pools)
}

func (p *SceneDescriptorPool) Close() {
	for _, pool := range p.pools {
		pool.Close()
	}
	p.pools = nil
	p.freeList = nil
	p.remaining = 0
}

// descriptorSet is a reference counted descriptor set that keeps the image
// views and uniform buffer it was last updated with alive. The set returns to
// its pool when the last reference is dropped. Typed wrappers share one
// descriptorSet; Move hands it to a new wrapper, and paint passes hold
// references on the descriptorSet itself.
type descriptorSet struct {
	pool   *SceneDescriptorPool
	handle vk.DescriptorSet
	views  [2]*VulkanImageView
	buffer *VulkanBuffer
	refs   atomic.Int32
}

func (s *descriptorSet) init(pool *SceneDescriptorPool) {
	s.pool = pool
	s.handle = pool.AllocateDescriptorSet()
	if s.handle == nil {
		core.LogError("Failed to allocate a descriptor set")
		return
	}
	s.refs.Store(1)
}

func (s *descriptorSet) Handle() vk.DescriptorSet {
	if s == nil {
		return nil
	}
	return s.handle
}

func (s *descriptorSet) IsValid() bool {
	return s != nil && s.handle != nil
}

func (s *descriptorSet) Ref() {
	s.refs.Add(1)
}

func (s *descriptorSet) Unref() {
	if !s.IsValid() {
		return
	}
	if s.refs.Add(-1) == 0 {
		s.setResources(nil, nil, nil)
		s.pool.FreeDescriptorSet(s.handle)
		s.handle = nil
	}
}

// Close drops the creator's reference.
func (s *descriptorSet) Close() {
	s.Unref()
}

func (s *descriptorSet) RefCount() int32 {
	if s == nil {
		return 0
	}
	return s.refs.Load()
}

// UniformBuffer is the buffer the uniform binding points at.
func (s *descriptorSet) UniformBuffer() *VulkanBuffer {
	if s == nil {
		return nil
	}
	return s.buffer
}

func (s *descriptorSet) setResources(view1, view2 *VulkanImageView, buffer *VulkanBuffer) {
	for _, view := range []*VulkanImageView{view1, view2} {
		if view != nil {
			view.Ref()
		}
	}
	if buffer != nil {
		buffer.Ref()
	}
	for _, view := range s.views {
		if view != nil {
			view.Unref()
		}
	}
	if s.buffer != nil {
		s.buffer.Unref()
	}
	s.views = [2]*VulkanImageView{view1, view2}
	s.buffer = buffer
}

func uniformBufferWrite(set vk.DescriptorSet, binding uint32, uniform VulkanBufferRange, size uint64, descriptorType vk.DescriptorType) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: uniform.Buffer.Handle(),
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
}

/**
 * @brief Binds a combined image sampler and a dynamic uniform buffer holding
 * TextureUniformData.
 */
type TextureDescriptorSet struct {
	*descriptorSet
}

func NewTextureDescriptorSet(pool *SceneDescriptorPool) *TextureDescriptorSet {
	s := &TextureDescriptorSet{&descriptorSet{}}
	s.init(pool)
	return s
}

func (s *TextureDescriptorSet) Update(sampler vk.Sampler, view *VulkanImageView, layout vk.ImageLayout, uniform VulkanBufferRange) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     sampler,
				ImageView:   view.Handle(),
				ImageLayout: layout,
			}},
		},
		uniformBufferWrite(s.handle, 1, uniform, uint64(unsafe.Sizeof(TextureUniformData{})), vk.DescriptorTypeUniformBufferDynamic),
	}
	s.pool.device.Driver.UpdateDescriptorSets(writes)
	s.setResources(view, nil, uniform.Buffer)
}

func (s *TextureDescriptorSet) Move() *TextureDescriptorSet {
	moved := &TextureDescriptorSet{s.descriptorSet}
	s.descriptorSet = nil
	return moved
}

/**
 * @brief Binds two sampled images, a sampler and a dynamic uniform buffer
 * holding TextureUniformData.
 */
type CrossFadeDescriptorSet struct {
	*descriptorSet
}

func NewCrossFadeDescriptorSet(pool *SceneDescriptorPool) *CrossFadeDescriptorSet {
	s := &CrossFadeDescriptorSet{&descriptorSet{}}
	s.init(pool)
	return s
}

func (s *CrossFadeDescriptorSet) Update(sampler vk.Sampler, view1, view2 *VulkanImageView, layout vk.ImageLayout, uniform VulkanBufferRange) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      0,
			DescriptorCount: 2,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo: []vk.DescriptorImageInfo{
				{ImageView: view1.Handle(), ImageLayout: layout},
				{ImageView: view2.Handle(), ImageLayout: layout},
			},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sampler}},
		},
		uniformBufferWrite(s.handle, 2, uniform, uint64(unsafe.Sizeof(TextureUniformData{})), vk.DescriptorTypeUniformBufferDynamic),
	}
	s.pool.device.Driver.UpdateDescriptorSets(writes)
	s.setResources(view1, view2, uniform.Buffer)
}

func (s *CrossFadeDescriptorSet) ImageViews() (*VulkanImageView, *VulkanImageView) {
	if s.descriptorSet == nil {
		return nil, nil
	}
	return s.views[0], s.views[1]
}

func (s *CrossFadeDescriptorSet) Move() *CrossFadeDescriptorSet {
	moved := &CrossFadeDescriptorSet{s.descriptorSet}
	s.descriptorSet = nil
	return moved
}

/**
 * @brief Binds one dynamic uniform buffer holding ColorUniformData.
 */
type ColorDescriptorSet struct {
	*descriptorSet
}

func NewColorDescriptorSet(pool *SceneDescriptorPool) *ColorDescriptorSet {
	s := &ColorDescriptorSet{&descriptorSet{}}
	s.init(pool)
	return s
}

func (s *ColorDescriptorSet) Update(uniform VulkanBufferRange) {
	writes := []vk.WriteDescriptorSet{
		uniformBufferWrite(s.handle, 0, uniform, uint64(unsafe.Sizeof(ColorUniformData{})), vk.DescriptorTypeUniformBufferDynamic),
	}
	s.pool.device.Driver.UpdateDescriptorSets(writes)
	s.setResources(nil, nil, uniform.Buffer)
}

func (s *ColorDescriptorSet) Move() *ColorDescriptorSet {
	moved := &ColorDescriptorSet{s.descriptorSet}
	s.descriptorSet = nil
	return moved
}
