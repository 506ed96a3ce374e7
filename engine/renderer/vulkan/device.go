package vulkan

import (
	"slices"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

const swapchainExtensionName = "VK_KHR_swapchain"

const (
	maintenance1ExtName               = "VK_KHR_maintenance1"
	externalMemoryCapabilitiesExtName = "VK_KHR_external_memory_capabilities"
	externalMemoryExtName             = "VK_KHR_external_memory"
	externalMemoryFdExtName           = "VK_KHR_external_memory_fd"
	pushDescriptorExtName             = "VK_KHR_push_descriptor"
	incrementalPresentExtName         = "VK_KHR_incremental_present"
	descriptorUpdateTemplateExtName   = "VK_KHR_descriptor_update_template"
	maintenance2ExtName               = "VK_KHR_maintenance2"
	dedicatedAllocationExtName        = "VK_KHR_dedicated_allocation"
	getMemoryRequirements2ExtName     = "VK_KHR_get_memory_requirements2"
	bindMemory2ExtName                = "VK_KHR_bind_memory2"
	discardRectanglesExtName          = "VK_EXT_discard_rectangles"
	externalMemoryDmaBufExtName       = "VK_EXT_external_memory_dma_buf"
)

var requiredDeviceExtensions = []string{swapchainExtensionName}

var optionalDeviceExtensions = []string{
	maintenance1ExtName,
	externalMemoryCapabilitiesExtName,
	externalMemoryExtName,
	externalMemoryFdExtName,
	pushDescriptorExtName,
	incrementalPresentExtName,
	descriptorUpdateTemplateExtName,
	maintenance2ExtName,
	dedicatedAllocationExtName,
	getMemoryRequirements2ExtName,
	bindMemory2ExtName,
	discardRectanglesExtName,
	externalMemoryDmaBufExtName,
}

// DeviceOverride forces the device at Index when its vendor and device ids
// also match.
type DeviceOverride struct {
	Enabled  bool
	Index    uint32
	VendorID uint32
	DeviceID uint32
}

func (o DeviceOverride) matches(index int, props *vk.PhysicalDeviceProperties) bool {
	return o.Enabled && uint32(index) == o.Index && props.VendorID == o.VendorID && props.DeviceID == o.DeviceID
}

// PresentationSupportFunc reports platform specific presentation support for
// a queue family, on top of the surface support query.
type PresentationSupportFunc func(pd vk.PhysicalDevice, queueFamily uint32) bool

type VulkanPhysicalDeviceInfo struct {
	Index          int
	Handle         vk.PhysicalDevice
	Properties     vk.PhysicalDeviceProperties
	Extensions     []string
	GraphicsFamily uint32
	PresentFamily  uint32
	Score          int
}

func (info *VulkanPhysicalDeviceInfo) Name() string {
	return vk.ToString(info.Properties.DeviceName[:])
}

func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 400
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 300
	case vk.PhysicalDeviceTypeCpu:
		return 200
	default:
		return 100
	}
}

const noQueueFamily = ^uint32(0)

// evaluatePhysicalDevice checks the hard requirements and returns nil when the
// device cannot drive the surface.
func evaluatePhysicalDevice(driver InstanceDriver, index int, pd vk.PhysicalDevice, surface vk.Surface, presentSupport PresentationSupportFunc) *VulkanPhysicalDeviceInfo {
	extensions, res := driver.EnumerateDeviceExtensions(pd)
	if res != vk.Success {
		return nil
	}
	for _, required := range requiredDeviceExtensions {
		if !slices.Contains(extensions, required) {
			return nil
		}
	}

	// Decoration textures are uploaded as linear B8G8R8A8 images.
	formatProps := driver.GetPhysicalDeviceFormatProperties(pd, vk.FormatB8g8r8a8Unorm)
	if formatProps.LinearTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit) == 0 {
		return nil
	}

	caps, res := driver.GetPhysicalDeviceSurfaceCapabilities(pd, surface)
	if res != vk.Success || caps.SupportedUsageFlags&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) == 0 {
		return nil
	}

	graphics, present := noQueueFamily, noQueueFamily
	for i, family := range driver.GetPhysicalDeviceQueueFamilyProperties(pd) {
		if family.QueueCount < 1 {
			continue
		}
		idx := uint32(i)
		if graphics == noQueueFamily && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = idx
		}
		if present == noQueueFamily {
			supported, res := driver.GetPhysicalDeviceSurfaceSupport(pd, idx, surface)
			if res == vk.Success && supported && (presentSupport == nil || presentSupport(pd, idx)) {
				present = idx
			}
		}
	}
	if graphics == noQueueFamily || present == noQueueFamily {
		return nil
	}

	return &VulkanPhysicalDeviceInfo{
		Index:          index,
		Handle:         pd,
		Properties:     driver.GetPhysicalDeviceProperties(pd),
		Extensions:     extensions,
		GraphicsFamily: graphics,
		PresentFamily:  present,
	}
}

// SelectPhysicalDevice scores every usable device by type and returns the
// best one. The first device wins a tie. A matching override always wins.
func SelectPhysicalDevice(driver InstanceDriver, surface vk.Surface, presentSupport PresentationSupportFunc, override DeviceOverride) (*VulkanPhysicalDeviceInfo, error) {
	devices, res := driver.EnumeratePhysicalDevices()
	if res != vk.Success {
		return nil, resultError(res, "vkEnumeratePhysicalDevices")
	}

	var best *VulkanPhysicalDeviceInfo
	for index, pd := range devices {
		info := evaluatePhysicalDevice(driver, index, pd, surface, presentSupport)
		if info == nil {
			continue
		}
		info.Score = deviceTypeScore(info.Properties.DeviceType)
		if override.matches(index, &info.Properties) {
			info.Score = 1000
		}
		if best == nil || info.Score > best.Score {
			best = info
		}
	}

	if best == nil {
		core.LogError("Failed to find a usable GPU")
		return nil, errors.WithStack(core.ErrNoSuitableDevice)
	}

	props := &best.Properties
	core.LogInfo("Vulkan API version: %s", apiVersionString(props.ApiVersion))
	core.LogInfo("Driver version: %s", driverVersionString(props.VendorID, props.DriverVersion))
	core.LogInfo("Vendor ID: %s", vendorName(props.VendorID))
	core.LogInfo("Device ID: %#x", props.DeviceID)
	core.LogInfo("Device name: %s", best.Name())
	core.LogInfo("Device type: %s", PhysicalDeviceTypeString(props.DeviceType))
	return best, nil
}

// VulkanDevice is the logical device and everything queried about its
// physical device. All device level wrappers keep a back pointer to it and
// must be closed before it.
type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	Driver           DeviceDriver
	Properties       vk.PhysicalDeviceProperties
	Limits           vk.PhysicalDeviceLimits
	MemoryProperties vk.PhysicalDeviceMemoryProperties

	EnabledExtensions []string

	GraphicsQueue *VulkanQueue
	PresentQueue  *VulkanQueue

	SupportsPushDescriptors     bool
	SupportsIncrementalPresent  bool
	SupportsDedicatedAllocation bool
	HaveMaintenance1            bool

	Locks *VulkanLockPool

	liveObjects atomic.Int64
}

// enabledDeviceExtensions returns the required extensions followed by every
// optional extension the device reports.
func enabledDeviceExtensions(supported []string) []string {
	enabled := slices.Clone(requiredDeviceExtensions)
	for _, name := range optionalDeviceExtensions {
		if slices.Contains(supported, name) {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

func NewVulkanDevice(instance *VulkanInstance, info *VulkanPhysicalDeviceInfo) (*VulkanDevice, error) {
	core.LogInfo("Creating logical device...")

	extensions := enabledDeviceExtensions(info.Extensions)
	separatePresent := info.GraphicsFamily != info.PresentFamily

	priorities := []float32{1.0}
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: info.GraphicsFamily,
		QueueCount:       1,
		PQueuePriorities: priorities,
	}}
	if separatePresent {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: info.PresentFamily,
			QueueCount:       1,
			PQueuePriorities: priorities,
		})
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(slices.Clone(extensions)),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}

	driver, res := instance.Driver.CreateDevice(info.Handle, &createInfo)
	if res != vk.Success {
		return nil, errors.Mark(resultError(res, "vkCreateDevice"), core.ErrInitFailed)
	}

	device := newVulkanDeviceFromDriver(driver, info, extensions, instance.Driver.GetPhysicalDeviceMemoryProperties(info.Handle))

	core.LogInfo("Enabled device extensions:")
	for _, ext := range extensions {
		core.LogInfo("    %s", ext)
	}
	core.LogInfo("Logical device created.")
	return device, nil
}

func newVulkanDeviceFromDriver(driver DeviceDriver, info *VulkanPhysicalDeviceInfo, extensions []string, memory vk.PhysicalDeviceMemoryProperties) *VulkanDevice {
	device := &VulkanDevice{
		PhysicalDevice:    info.Handle,
		Driver:            driver,
		Properties:        info.Properties,
		Limits:            info.Properties.Limits,
		MemoryProperties:  memory,
		EnabledExtensions: extensions,
		Locks:             NewVulkanLockPool(),
	}
	device.SupportsPushDescriptors = device.HasExtension(pushDescriptorExtName)
	device.SupportsIncrementalPresent = device.HasExtension(incrementalPresentExtName)
	device.SupportsDedicatedAllocation = device.HasExtension(dedicatedAllocationExtName) &&
		device.HasExtension(getMemoryRequirements2ExtName)
	device.HaveMaintenance1 = device.HasExtension(maintenance1ExtName)

	device.GraphicsQueue = newVulkanQueue(device, info.GraphicsFamily)
	if info.GraphicsFamily != info.PresentFamily {
		device.PresentQueue = newVulkanQueue(device, info.PresentFamily)
	} else {
		device.PresentQueue = device.GraphicsQueue
	}
	return device
}

func (d *VulkanDevice) HasExtension(name string) bool {
	return slices.Contains(d.EnabledExtensions, name)
}

// SeparatePresentQueue reports whether swapchain images change queue family
// ownership between rendering and presentation.
func (d *VulkanDevice) SeparatePresentQueue() bool {
	return d.GraphicsQueue.FamilyIndex != d.PresentQueue.FamilyIndex
}

func (d *VulkanDevice) WaitIdle() vk.Result {
	return d.Driver.DeviceWaitIdle()
}

// LiveObjects is the number of device level wrappers not yet closed.
func (d *VulkanDevice) LiveObjects() int64 {
	return d.liveObjects.Load()
}

func (d *VulkanDevice) Close() {
	if d.Driver == nil {
		return
	}
	if n := d.liveObjects.Load(); n != 0 {
		core.LogWarn("Destroying logical device with %d live objects", n)
	}
	core.LogInfo("Destroying logical device...")
	d.Driver.DestroyDevice()
	d.Driver = nil
	d.GraphicsQueue = nil
	d.PresentQueue = nil
}
