package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	kmath "github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

var colorSubresourceRange = vk.ImageSubresourceRange{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

func imageBarrier(image vk.Image, srcAccess, dstAccess vk.AccessFlagBits, oldLayout, newLayout vk.ImageLayout, srcFamily, dstFamily uint32) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: srcFamily,
		DstQueueFamilyIndex: dstFamily,
		Image:               image,
		SubresourceRange:    colorSubresourceRange,
	}
}

func stages(flags vk.PipelineStageFlagBits) vk.PipelineStageFlags {
	return vk.PipelineStageFlags(flags)
}

/**
 * @brief Runs one paint cycle: acquires an image when none is held, lets the
 * painter record its draw calls, submits them and presents the update.
 * @return The time spent in nanoseconds, or 0 when the frame was aborted.
 */
func (s *VulkanScene) Paint(damage kmath.Region, painter renderer.ScreenPainter) int64 {
	if !s.valid || s.failed {
		return 0
	}
	clock := core.NewClock()
	clock.Start()

	if !s.swapchain.IsValid() {
		width, height := s.backend.ScreenSize()
		if !s.checkResult(s.swapchain.Create(width, height), "vkCreateSwapchainKHR") {
			return 0
		}
		s.imageAcquired = false
	}

	if s.fullRepaintPending {
		s.fullRepaintPending = false
		damage = s.outputRegion()
	}

	frame := &s.frames[s.frameIndex]

	if !s.imageAcquired {
		if frame.acquisitionFenceSubmitted {
			if !s.checkResult(frame.acquisitionFence.Wait(waitForever), "vkWaitForFences") {
				return 0
			}
			frame.acquisitionFence.Reset()
			frame.acquisitionFenceSubmitted = false
		}

		_, res := s.swapchain.AcquireNextImage(waitForever, frame.acquisitionSemaphore, frame.acquisitionFence)
		switch res {
		case vk.Success:
		case vk.Suboptimal:
			s.swapchain.Invalidate()
			s.addRepaintFull()
		case vk.ErrorOutOfDate:
			s.addRepaintFull()
			return 0
		case vk.ErrorDeviceLost:
			s.handleDeviceLostError()
			return 0
		default:
			s.checkResult(res, "vkAcquireNextImageKHR")
			return 0
		}

		s.addWaitSemaphore(frame.acquisitionSemaphore)
		frame.acquisitionFenceSubmitted = true

		s.bufferAge = s.swapchain.BufferAge()
		if s.bufferAge == 0 {
			s.surfaceLayout = vk.ImageLayoutUndefined
		} else {
			s.surfaceLayout = vk.ImageLayoutPresentSrc
		}
		s.needQueueOwnershipTransfer = false
		s.imageAcquired = true
	}

	repaint := s.swapchain.AccumulatedDamageHistory(s.bufferAge)

	width, height := s.Size()
	s.projection = kmath.ScreenProjection(width, height)
	s.renderPassStarted = false
	s.clearPending = false
	s.usedIndexBuffer = false

	pass := s.currentPaintPass()
	if pass.fenceSubmitted && !s.retirePaintPass(pass) {
		return 0
	}

	update, _ := painter.PaintScreen(s, damage, repaint)
	if s.failed {
		return 0
	}
	update = update.IntersectedRect(s.swapchain.Rect())

	var presentSemaphore *VulkanSemaphore
	submitted := false

	if s.commandBuffersPending || s.clearPending {
		separate := s.device.SeparatePresentQueue()
		buffer := s.swapchain.CurrentBuffer()

		if s.needQueueOwnershipTransfer {
			if !s.submitOwnershipRelease(frame, buffer) {
				return 0
			}
		}

		if s.clearPending && !s.renderPassStarted {
			s.beginRenderPass(pass.mainCommandBuffer)
		}

		mainCmd := pass.mainCommandBuffer
		if mainCmd.IsRenderPassActive() {
			mainCmd.EndRenderPass()
		}
		s.renderPassStarted = false

		if !update.IsEmpty() && s.surfaceLayout != vk.ImageLayoutPresentSrc {
			barrier := imageBarrier(buffer.Image,
				vk.AccessColorAttachmentWriteBit, vk.AccessMemoryReadBit,
				s.surfaceLayout, vk.ImageLayoutPresentSrc,
				vk.QueueFamilyIgnored, vk.QueueFamilyIgnored)
			if separate {
				barrier.DstAccessMask = 0
				barrier.SrcQueueFamilyIndex = s.device.GraphicsQueue.FamilyIndex
				barrier.DstQueueFamilyIndex = s.device.PresentQueue.FamilyIndex
			}
			mainCmd.PipelineBarrier(stages(vk.PipelineStageColorAttachmentOutputBit), stages(vk.PipelineStageBottomOfPipeBit),
				[]vk.ImageMemoryBarrier{barrier}, nil)
			s.surfaceLayout = vk.ImageLayoutPresentSrc
		}

		s.flushUploads()

		var commandBuffers []*VulkanCommandBuffer
		for _, cmd := range []*VulkanCommandBuffer{pass.setupCommandBuffer, pass.mainCommandBuffer} {
			if cmd.IsActive() {
				cmd.End()
				commandBuffers = append(commandBuffers, cmd)
			}
		}

		handles := make([]vk.CommandBuffer, 0, len(commandBuffers))
		for _, cmd := range commandBuffers {
			handles = append(handles, cmd.Handle)
		}
		waitSemaphores := s.waitSemaphoreHandles()
		waitStages := make([]vk.PipelineStageFlags, len(waitSemaphores))
		for i := range waitStages {
			waitStages[i] = stages(vk.PipelineStageColorAttachmentOutputBit)
		}
		submit := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount: uint32(len(waitSemaphores)),
			PWaitSemaphores:    waitSemaphores,
			PWaitDstStageMask:  waitStages,
			CommandBufferCount: uint32(len(handles)),
			PCommandBuffers:    handles,
		}
		if !update.IsEmpty() {
			submit.SignalSemaphoreCount = 1
			submit.PSignalSemaphores = []vk.Semaphore{pass.semaphore.Handle()}
			presentSemaphore = pass.semaphore
		}

		res := s.device.GraphicsQueue.Submit([]vk.SubmitInfo{submit}, pass.fence.Handle())
		s.commandBuffersPending = false
		if !s.checkResult(res, "vkQueueSubmit") {
			return 0
		}
		for _, cmd := range commandBuffers {
			cmd.UpdateSubmitted()
		}

		if separate && !update.IsEmpty() {
			if !s.submitOwnershipAcquire(frame, pass, buffer) {
				return 0
			}
			presentSemaphore = frame.acquireOwnershipSemaphore
		}

		pass.fenceSubmitted = true
		submitted = true
		s.waitSemaphores = s.waitSemaphores[:0]
		s.paintPassIndex = (s.paintPassIndex + 1) % FramesInFlight
	}

	if !update.IsEmpty() {
		s.backend.ShowOverlay()

		var wait []vk.Semaphore
		if presentSemaphore != nil {
			wait = []vk.Semaphore{presentSemaphore.Handle()}
		} else {
			wait = s.waitSemaphoreHandles()
		}

		res := s.swapchain.Present(wait, update)
		s.imageAcquired = false
		switch res {
		case vk.Success:
		case vk.Suboptimal:
			s.swapchain.Invalidate()
			s.addRepaintFull()
		case vk.ErrorOutOfDate:
			s.addRepaintFull()
			// The semaphore stays signaled and must be waited on by the
			// next submission.
			if presentSemaphore != nil {
				s.addWaitSemaphore(presentSemaphore)
			}
			return 0
		case vk.ErrorDeviceLost:
			s.handleDeviceLostError()
			return 0
		default:
			s.checkResult(res, "vkQueuePresentKHR")
			return 0
		}

		if presentSemaphore == nil {
			s.waitSemaphores = s.waitSemaphores[:0]
		}
		s.swapchain.AddToDamageHistory(update)
		s.frameIndex = (s.frameIndex + 1) % FramesInFlight
	} else if submitted {
		// The back buffer diverged from the front buffer.
		s.bufferAge = 1
	}

	clock.Update()
	clock.Stop()
	return clock.Elapsed().Nanoseconds()
}

// retirePaintPass waits for the pass to complete and makes its command
// buffers and busy objects reusable. A failed wait is reported to the
// listener and leaves the pass untouched.
func (s *VulkanScene) retirePaintPass(pass *paintPassData) bool {
	if !s.checkResult(pass.fence.Wait(waitForever), "vkWaitForFences") {
		return false
	}
	pass.commandPool.Reset()
	pass.setupCommandBuffer.Reset()
	pass.mainCommandBuffer.Reset()
	pass.busy.Release()
	pass.fence.Reset()
	pass.fenceSubmitted = false
	return true
}

// flushUploads flushes the host writes of the pass and hands the upload rings
// a frame boundary the pass keeps until it completes.
func (s *VulkanScene) flushUploads() {
	var ranges []vk.MappedMemoryRange
	ranges = append(ranges, s.uploadManager.NonCoherentAllocatedRanges()...)
	ranges = append(ranges, s.imageUploadManager.NonCoherentAllocatedRanges()...)
	ranges = append(ranges, s.stagingImageAllocator.NonCoherentAllocatedRanges()...)
	if len(ranges) > 0 {
		if res := s.device.Driver.FlushMappedMemoryRanges(ranges); res != vk.Success {
			resultError(res, "vkFlushMappedMemoryRanges")
		}
	}

	for _, boundary := range []*FrameBoundary{
		s.uploadManager.CreateFrameBoundary(),
		s.imageUploadManager.CreateFrameBoundary(),
		s.stagingImageAllocator.CreateFrameBoundary(),
	} {
		s.addBusyReference(boundary)
		boundary.Close()
	}
}

func (s *VulkanScene) presentCommandBuffer() *VulkanCommandBuffer {
	cmd, res := NewVulkanCommandBuffer(s.device, s.presentCommandPool, true)
	if res != vk.Success {
		return nil
	}
	return cmd
}

/**
 * @brief Releases the presented image from the present queue family so the
 * graphics queue can render into it. The command buffer is recorded once per
 * swapchain image.
 */
func (s *VulkanScene) submitOwnershipRelease(frame *frameData, buffer *VulkanSwapchainBuffer) bool {
	if buffer.ReleaseCommandBuffer == nil {
		cmd := s.presentCommandBuffer()
		if cmd == nil {
			s.handleFatalError(NewVulkanError(vk.ErrorOutOfHostMemory, "vkAllocateCommandBuffers"))
			return false
		}
		cmd.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit))
		cmd.PipelineBarrier(stages(vk.PipelineStageTopOfPipeBit), stages(vk.PipelineStageBottomOfPipeBit),
			[]vk.ImageMemoryBarrier{imageBarrier(buffer.Image,
				vk.AccessMemoryReadBit, 0,
				vk.ImageLayoutPresentSrc, vk.ImageLayoutColorAttachmentOptimal,
				s.device.PresentQueue.FamilyIndex, s.device.GraphicsQueue.FamilyIndex)}, nil)
		cmd.End()
		buffer.ReleaseCommandBuffer = cmd
	}

	waitSemaphores := s.waitSemaphoreHandles()
	waitStages := make([]vk.PipelineStageFlags, len(waitSemaphores))
	for i := range waitStages {
		waitStages[i] = stages(vk.PipelineStageAllCommandsBit)
	}
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.ReleaseCommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.releaseOwnershipSemaphore.Handle()},
	}
	if !s.checkResult(s.device.PresentQueue.Submit([]vk.SubmitInfo{submit}, nil), "vkQueueSubmit") {
		return false
	}

	s.waitSemaphores = append(s.waitSemaphores[:0], frame.releaseOwnershipSemaphore)
	s.needQueueOwnershipTransfer = false
	return true
}

/**
 * @brief Acquires the rendered image on the present queue family. Waits on
 * the paint pass semaphore and signals the frame's ownership semaphore that
 * the present waits on.
 */
func (s *VulkanScene) submitOwnershipAcquire(frame *frameData, pass *paintPassData, buffer *VulkanSwapchainBuffer) bool {
	if buffer.AcquireCommandBuffer == nil {
		cmd := s.presentCommandBuffer()
		if cmd == nil {
			s.handleFatalError(NewVulkanError(vk.ErrorOutOfHostMemory, "vkAllocateCommandBuffers"))
			return false
		}
		cmd.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit))
		cmd.PipelineBarrier(stages(vk.PipelineStageTopOfPipeBit), stages(vk.PipelineStageBottomOfPipeBit),
			[]vk.ImageMemoryBarrier{imageBarrier(buffer.Image,
				0, 0,
				vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc,
				s.device.GraphicsQueue.FamilyIndex, s.device.PresentQueue.FamilyIndex)}, nil)
		cmd.End()
		buffer.AcquireCommandBuffer = cmd
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{pass.semaphore.Handle()},
		PWaitDstStageMask:    []vk.PipelineStageFlags{stages(vk.PipelineStageAllCommandsBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.AcquireCommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.acquireOwnershipSemaphore.Handle()},
	}
	return s.checkResult(s.device.PresentQueue.Submit([]vk.SubmitInfo{submit}, nil), "vkQueueSubmit")
}

/**
 * @brief Begins cmd and the render pass variant matching the current image
 * layout. A pending clear or undefined contents select the clear pass; an
 * image coming back from a separate present queue is acquired with a barrier
 * before the load pass.
 */
func (s *VulkanScene) beginRenderPass(cmd *VulkanCommandBuffer) {
	variant := RenderPassLoad
	switch {
	case s.clearPending || s.surfaceLayout == vk.ImageLayoutUndefined:
		variant = RenderPassClear
		s.clearPending = false
	case s.surfaceLayout == vk.ImageLayoutPresentSrc:
		if s.device.SeparatePresentQueue() {
			s.needQueueOwnershipTransfer = true
		} else {
			variant = RenderPassTransition
		}
	}

	buffer := s.swapchain.CurrentBuffer()
	extent := s.swapchain.Extent()

	cmd.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))

	if s.needQueueOwnershipTransfer {
		cmd.PipelineBarrier(stages(vk.PipelineStageColorAttachmentOutputBit), stages(vk.PipelineStageColorAttachmentOutputBit),
			[]vk.ImageMemoryBarrier{imageBarrier(buffer.Image,
				0, vk.AccessColorAttachmentReadBit|vk.AccessColorAttachmentWriteBit,
				vk.ImageLayoutPresentSrc, vk.ImageLayoutColorAttachmentOptimal,
				s.device.PresentQueue.FamilyIndex, s.device.GraphicsQueue.FamilyIndex)}, nil)
	}

	var clearValue vk.ClearValue
	clearValue.SetColor([]float32{0, 0, 0, 1})
	cmd.BeginRenderPass(&vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  s.renderPasses.Get(variant).Handle(),
		Framebuffer: buffer.Framebuffer.Handle(),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearValue},
	})
	cmd.SetViewport(vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})

	s.surfaceLayout = vk.ImageLayoutColorAttachmentOptimal
	s.renderPassStarted = true
}

// mainCommandBuffer returns the render pass command buffer of the current
// paint pass, beginning it on first use.
func (s *VulkanScene) mainCommandBuffer() *VulkanCommandBuffer {
	cmd := s.currentPaintPass().mainCommandBuffer
	if !cmd.IsActive() {
		s.beginRenderPass(cmd)
		s.commandBuffersPending = true
	}
	return cmd
}

// setupCommandBuffer returns the command buffer that runs before the render
// pass, for uploads and layout transitions.
func (s *VulkanScene) setupCommandBuffer() *VulkanCommandBuffer {
	pass := s.currentPaintPass()
	cmd := pass.setupCommandBuffer
	if !cmd.IsActive() {
		if pass.fenceSubmitted {
			s.retirePaintPass(pass)
		}
		cmd.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
		s.commandBuffersPending = true
	}
	return cmd
}
