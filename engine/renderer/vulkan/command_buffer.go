package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandBuffer is a command buffer allocated from a VulkanCommandPool.
// Resetting the pool returns every buffer allocated from it to the ready state.
type VulkanCommandBuffer struct {
	device *VulkanDevice
	pool   *VulkanCommandPool
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(device *VulkanDevice, pool *VulkanCommandPool, isPrimary bool) (*VulkanCommandBuffer, vk.Result) {
	cb := &VulkanCommandBuffer{
		device: device,
		pool:   pool,
		State:  COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle(),
		Level:              level,
		CommandBufferCount: 1,
	}

	handles, res := device.Driver.AllocateCommandBuffers(&allocateInfo)
	if res != vk.Success || len(handles) == 0 {
		resultError(res, "vkAllocateCommandBuffers")
		return cb, res
	}
	cb.Handle = handles[0]
	cb.State = COMMAND_BUFFER_STATE_READY
	device.liveObjects.Add(1)
	return cb, res
}

func (v *VulkanCommandBuffer) IsValid() bool {
	return v != nil && v.Handle != nil
}

// Close frees the command buffer back to its pool.
func (v *VulkanCommandBuffer) Close() {
	if !v.IsValid() {
		return
	}
	if v.pool.IsValid() {
		v.device.Driver.FreeCommandBuffers(v.pool.Handle(), []vk.CommandBuffer{v.Handle})
	}
	v.device.liveObjects.Add(-1)
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// IsActive reports whether the buffer is recording.
func (v *VulkanCommandBuffer) IsActive() bool {
	return v.State == COMMAND_BUFFER_STATE_RECORDING || v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) IsRenderPassActive() bool {
	return v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) Begin(flags vk.CommandBufferUsageFlags) vk.Result {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	res := v.device.Driver.BeginCommandBuffer(v.Handle, &beginInfo)
	if res != vk.Success {
		resultError(res, "vkBeginCommandBuffer")
		return res
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return res
}

func (v *VulkanCommandBuffer) End() vk.Result {
	res := v.device.Driver.EndCommandBuffer(v.Handle)
	if res != vk.Success {
		resultError(res, "vkEndCommandBuffer")
		return res
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return res
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset marks the buffer ready after its pool has been reset.
func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

func (v *VulkanCommandBuffer) BeginRenderPass(info *vk.RenderPassBeginInfo) {
	v.device.Driver.CmdBeginRenderPass(v.Handle, info)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	v.device.Driver.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	v.device.Driver.CmdPipelineBarrier(v.Handle, srcStage, dstStage, imageBarriers, bufferBarriers)
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline vk.Pipeline) {
	v.device.Driver.CmdBindPipeline(v.Handle, pipeline)
}

func (v *VulkanCommandBuffer) BindDescriptorSets(layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	v.device.Driver.CmdBindDescriptorSets(v.Handle, layout, sets, dynamicOffsets)
}

func (v *VulkanCommandBuffer) BindVertexBuffer(buffer vk.Buffer, offset uint64) {
	v.device.Driver.CmdBindVertexBuffers(v.Handle, []vk.Buffer{buffer}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer vk.Buffer, offset uint64, indexType vk.IndexType) {
	v.device.Driver.CmdBindIndexBuffer(v.Handle, buffer, offset, indexType)
}

func (v *VulkanCommandBuffer) SetViewport(viewport vk.Viewport) {
	v.device.Driver.CmdSetViewport(v.Handle, viewport)
}

func (v *VulkanCommandBuffer) SetScissor(scissor vk.Rect2D) {
	v.device.Driver.CmdSetScissor(v.Handle, scissor)
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	v.device.Driver.CmdDraw(v.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	v.device.Driver.CmdDrawIndexed(v.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (v *VulkanCommandBuffer) CopyBuffer(src, dst vk.Buffer, regions []vk.BufferCopy) {
	v.device.Driver.CmdCopyBuffer(v.Handle, src, dst, regions)
}

func (v *VulkanCommandBuffer) CopyBufferToImage(src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	v.device.Driver.CmdCopyBufferToImage(v.Handle, src, dst, layout, regions)
}

func (v *VulkanCommandBuffer) CopyImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy) {
	v.device.Driver.CmdCopyImage(v.Handle, src, srcLayout, dst, dstLayout, regions)
}

// PushConstants copies the raw bytes of value into the push constant range.
func PushConstants[T any](v *VulkanCommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, value *T) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(value)), unsafe.Sizeof(*value))
	v.device.Driver.CmdPushConstants(v.Handle, layout, stages, offset, data)
}

/**
 * @brief Records one draw per rectangle of a clip list, setting the scissor
 * to the rectangle before each draw.
 */
func (v *VulkanCommandBuffer) DrawIndexedClipped(scissors []vk.Rect2D, indexCount, firstIndex uint32, vertexOffset int32) {
	for _, scissor := range scissors {
		v.SetScissor(scissor)
		v.DrawIndexed(indexCount, 1, firstIndex, vertexOffset, 0)
	}
}
