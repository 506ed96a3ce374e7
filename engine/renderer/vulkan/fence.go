package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

type VulkanFence struct {
	deviceObject[vk.Fence]
}

func NewVulkanFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, vk.Result) {
	handle, res := device.Driver.CreateFence(createSignaled)
	if res != vk.Success {
		resultError(res, "vkCreateFence")
		return &VulkanFence{}, res
	}
	return &VulkanFence{newDeviceObject(device, handle, DeviceDriver.DestroyFence)}, res
}

func (vf *VulkanFence) Move() *VulkanFence { return &VulkanFence{vf.take()} }

// Wait blocks until the fence is signaled or the timeout expires.
func (vf *VulkanFence) Wait(timeoutNs uint64) vk.Result {
	if !vf.IsValid() {
		return vk.Success
	}
	result := vf.device.Driver.WaitForFences([]vk.Fence{vf.handle}, true, timeoutNs)
	switch result {
	case vk.Success:
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return result
}

func (vf *VulkanFence) Reset() vk.Result {
	if !vf.IsValid() {
		return vk.Success
	}
	res := vf.device.Driver.ResetFences([]vk.Fence{vf.handle})
	if res != vk.Success {
		resultError(res, "vkResetFences")
	}
	return res
}
