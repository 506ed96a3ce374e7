package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	deviceObject[vk.Framebuffer]
	Width  uint32
	Height uint32
}

func NewVulkanFramebuffer(device *VulkanDevice, info *vk.FramebufferCreateInfo) (*VulkanFramebuffer, vk.Result) {
	handle, res := device.Driver.CreateFramebuffer(info)
	if res != vk.Success {
		return &VulkanFramebuffer{}, res
	}
	return &VulkanFramebuffer{
		deviceObject: newDeviceObject(device, handle, DeviceDriver.DestroyFramebuffer),
		Width:        info.Width,
		Height:       info.Height,
	}, res
}

func (f *VulkanFramebuffer) Move() *VulkanFramebuffer {
	return &VulkanFramebuffer{deviceObject: f.take(), Width: f.Width, Height: f.Height}
}
