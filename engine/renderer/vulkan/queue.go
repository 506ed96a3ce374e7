package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanQueue is one queue of a family. Submission and presentation on the
// same family are serialized through the device lock pool.
type VulkanQueue struct {
	device      *VulkanDevice
	Handle      vk.Queue
	FamilyIndex uint32
}

func newVulkanQueue(device *VulkanDevice, family uint32) *VulkanQueue {
	device.Locks.SetQueueFamily(family)
	return &VulkanQueue{
		device:      device,
		Handle:      device.Driver.GetDeviceQueue(family, 0),
		FamilyIndex: family,
	}
}

func (q *VulkanQueue) Submit(submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	var res vk.Result
	q.device.Locks.SafeQueueCall(q.FamilyIndex, func() error {
		res = q.device.Driver.QueueSubmit(q.Handle, submits, fence)
		return nil
	})
	return res
}

func (q *VulkanQueue) Present(wait []vk.Semaphore, swapchain vk.Swapchain, imageIndex uint32, damage []vk.RectLayer) vk.Result {
	var res vk.Result
	q.device.Locks.SafeQueueCall(q.FamilyIndex, func() error {
		res = q.device.Driver.QueuePresent(q.Handle, wait, swapchain, imageIndex, damage)
		return nil
	})
	return res
}

func (q *VulkanQueue) WaitIdle() vk.Result {
	var res vk.Result
	q.device.Locks.SafeQueueCall(q.FamilyIndex, func() error {
		res = q.device.Driver.QueueWaitIdle(q.Handle)
		return nil
	})
	return res
}
