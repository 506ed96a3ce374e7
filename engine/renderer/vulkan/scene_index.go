package vulkan

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	kmath "github.com/spaghettifunk/vkcompositor/engine/math"
)

// quadIndexPattern is the two triangles of quad 0; quad i adds 4*i.
var quadIndexPattern = [indicesPerQuad]uint16{1, 0, 3, 3, 2, 1}

// indexBufferQuadCapacity returns the number of quads an index buffer built
// for quadCount quads holds. It never exceeds maxQuadsPerDraw.
func indexBufferQuadCapacity(quadCount uint32) uint32 {
	quadCount = min(quadCount, maxQuadsPerDraw)
	size := max(kmath.Align(quadCount*indexBytesPerQuad, 4096), minIndexBufferSize)
	return min(size/indexBytesPerQuad, maxQuadsPerDraw)
}

func writeQuadIndices(data []byte, quadCount uint32) {
	offset := 0
	for i := uint32(0); i < quadCount; i++ {
		base := uint16(4 * i)
		for _, index := range quadIndexPattern {
			binary.LittleEndian.PutUint16(data[offset:], base+index)
			offset += 2
		}
	}
}

/**
 * @brief Returns the shared index buffer, grown so it holds at least
 * quadCount quads, up to maxQuadsPerDraw. The buffer only grows. Each paint
 * pass takes a busy reference on the buffer it draws with exactly once.
 */
func (s *VulkanScene) indexBufferForQuadCount(quadCount uint32) *VulkanBuffer {
	quadCount = min(quadCount, maxQuadsPerDraw)
	if s.indexBuffer != nil && s.indexBufferQuadCount >= quadCount {
		if !s.usedIndexBuffer {
			s.addBusyReference(s.indexBuffer)
			s.addBusyReference(s.indexBufferMemory)
			s.usedIndexBuffer = true
		}
		return s.indexBuffer
	}

	quads := indexBufferQuadCapacity(quadCount)
	size := uint64(quads) * indexBytesPerQuad

	buffer, res := NewVulkanBuffer(s.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	})
	if res != vk.Success {
		resultError(res, "vkCreateBuffer")
		return nil
	}

	memory, err := s.allocator.AllocateBufferMemory(buffer, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		core.LogError("Failed to allocate index buffer memory: %s", err)
		buffer.Close()
		return nil
	}

	if memory.IsHostVisible() {
		data, err := memory.Map(0)
		if err != nil {
			core.LogError("Failed to map the index buffer: %s", err)
			memory.Close()
			buffer.Close()
			return nil
		}
		writeQuadIndices(data, quads)
		if !memory.IsHostCoherent() {
			s.device.Driver.FlushMappedMemoryRanges([]vk.MappedMemoryRange{{
				SType:  vk.StructureTypeMappedMemoryRange,
				Memory: memory.Handle(),
				Offset: 0,
				Size:   vk.DeviceSize(vk.WholeSize),
			}})
		}
		memory.Unmap()
	} else {
		staging := s.uploadManager.Allocate(size, 4)
		if !staging.IsValid() {
			core.LogError("Failed to allocate %d bytes of index buffer staging memory", size)
			memory.Close()
			buffer.Close()
			return nil
		}
		writeQuadIndices(staging.Data, quads)

		cmd := s.setupCommandBuffer()
		cmd.CopyBuffer(staging.Buffer.Handle(), buffer.Handle(), []vk.BufferCopy{{
			SrcOffset: vk.DeviceSize(staging.Offset),
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		}})
		cmd.PipelineBarrier(stages(vk.PipelineStageTransferBit), stages(vk.PipelineStageVertexInputBit), nil,
			[]vk.BufferMemoryBarrier{{
				SType:               vk.StructureTypeBufferMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccessMask:       vk.AccessFlags(vk.AccessIndexReadBit),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Buffer:              buffer.Handle(),
				Offset:              0,
				Size:                vk.DeviceSize(size),
			}})
		s.addBusyReference(staging.Buffer)
	}

	s.addBusyReference(buffer)
	s.addBusyReference(memory)

	// Passes still drawing with the old buffer hold their own references.
	s.releaseIndexBuffer()
	s.indexBuffer = buffer
	s.indexBufferMemory = memory
	s.indexBufferQuadCount = quads
	s.usedIndexBuffer = true

	core.LogDebug("Index buffer grown to %d quads", quads)
	return buffer
}

// drawQuads draws quadCount quads from the bound vertex buffer, at most
// maxQuadsPerDraw per draw call.
func drawQuads(cmd *VulkanCommandBuffer, quadCount uint32) {
	for first := uint32(0); first < quadCount; first += maxQuadsPerDraw {
		n := min(quadCount-first, maxQuadsPerDraw)
		cmd.DrawIndexed(n*indicesPerQuad, 1, 0, int32(4*first), 0)
	}
}

func (s *VulkanScene) releaseIndexBuffer() {
	if s.indexBuffer != nil {
		s.indexBuffer.Close()
		s.indexBuffer = nil
	}
	if s.indexBufferMemory != nil {
		s.indexBufferMemory.Close()
		s.indexBufferMemory = nil
	}
	s.indexBufferQuadCount = 0
}
