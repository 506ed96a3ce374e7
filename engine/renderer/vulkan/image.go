package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanImage struct {
	sharedObject[vk.Image]
	extent      vk.Extent3D
	format      vk.Format
	mipLevels   uint32
	arrayLayers uint32
}

func NewVulkanImage(device *VulkanDevice, info *vk.ImageCreateInfo) (*VulkanImage, vk.Result) {
	image := &VulkanImage{
		extent:      info.Extent,
		format:      info.Format,
		mipLevels:   info.MipLevels,
		arrayLayers: info.ArrayLayers,
	}
	handle, res := device.Driver.CreateImage(info)
	if res != vk.Success {
		return image, res
	}
	image.init(newDeviceObject(device, handle, DeviceDriver.DestroyImage))
	return image, res
}

func (i *VulkanImage) Extent() vk.Extent3D { return i.extent }
func (i *VulkanImage) Format() vk.Format   { return i.format }
func (i *VulkanImage) Width() uint32       { return i.extent.Width }
func (i *VulkanImage) Height() uint32      { return i.extent.Height }

// VulkanStagingImage is a linear image bound to host visible memory that the
// CPU writes pixels into directly.
type VulkanStagingImage struct {
	VulkanImage
	data   []byte
	layout vk.SubresourceLayout
}

func (i *VulkanStagingImage) Data() []byte                 { return i.data }
func (i *VulkanStagingImage) Layout() vk.SubresourceLayout { return i.layout }

type VulkanImageView struct {
	sharedObject[vk.ImageView]
	format vk.Format
}

func NewVulkanImageView(device *VulkanDevice, info *vk.ImageViewCreateInfo) (*VulkanImageView, vk.Result) {
	view := &VulkanImageView{format: info.Format}
	handle, res := device.Driver.CreateImageView(info)
	if res != vk.Success {
		return view, res
	}
	view.init(newDeviceObject(device, handle, DeviceDriver.DestroyImageView))
	return view, res
}

func (v *VulkanImageView) Format() vk.Format { return v.format }

/**
 * @brief A device local sampled image with its memory and view. Implements
 * renderer.Texture. Paint passes that sample it hold references on all three.
 */
type VulkanTexture struct {
	image    *VulkanImage
	memory   *VulkanDeviceMemory
	view     *VulkanImageView
	format   ShmFormatInfo
	hasAlpha bool
}

func (t *VulkanTexture) Image() *VulkanImage         { return t.image }
func (t *VulkanTexture) Memory() *VulkanDeviceMemory { return t.memory }
func (t *VulkanTexture) View() *VulkanImageView      { return t.view }
func (t *VulkanTexture) Width() uint32               { return t.image.Width() }
func (t *VulkanTexture) Height() uint32              { return t.image.Height() }
func (t *VulkanTexture) HasAlpha() bool              { return t.hasAlpha }

func (t *VulkanTexture) IsValid() bool {
	return t != nil && t.image != nil && t.view != nil && t.image.IsValid() && t.view.IsValid()
}

// matches reports whether the texture can receive pixels of the given size
// and layout without being recreated.
func (t *VulkanTexture) matches(width, height uint32, info ShmFormatInfo) bool {
	return t.IsValid() && t.Width() == width && t.Height() == height &&
		t.format.Format == info.Format && t.format.Swizzle == info.Swizzle
}

// Close drops the owner's references.
func (t *VulkanTexture) Close() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Unref()
		t.view = nil
	}
	if t.image != nil {
		t.image.Unref()
		t.image = nil
	}
	if t.memory != nil {
		t.memory.Unref()
		t.memory = nil
	}
}
