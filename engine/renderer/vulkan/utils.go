package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

func VulkanResultString(result vk.Result, getExtended bool) string {
	// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
	// Success Codes
	switch result {
	default:
		return fmt.Sprintf("VkResult(%d)", int32(result))
	case vk.Success:
		return ConditionalOperator(!getExtended, "VK_SUCCESS", "VK_SUCCESS Command successfully completed")
	case vk.NotReady:
		return ConditionalOperator(!getExtended, "VK_NOT_READY", "VK_NOT_READY A fence or query has not yet completed")
	case vk.Timeout:
		return ConditionalOperator(!getExtended, "VK_TIMEOUT", "VK_TIMEOUT A wait operation has not completed in the specified time")
	case vk.EventSet:
		return ConditionalOperator(!getExtended, "VK_EVENT_SET", "VK_EVENT_SET An event is signaled")
	case vk.EventReset:
		return ConditionalOperator(!getExtended, "VK_EVENT_RESET", "VK_EVENT_RESET An event is unsignaled")
	case vk.Incomplete:
		return ConditionalOperator(!getExtended, "VK_INCOMPLETE", "VK_INCOMPLETE A return array was too small for the result")
	case vk.Suboptimal:
		return ConditionalOperator(!getExtended, "VK_SUBOPTIMAL_KHR", "VK_SUBOPTIMAL_KHR A swapchain no longer matches the surface properties exactly, but can still be used to present to the surface successfully.")
	case vk.ThreadIdle:
		return ConditionalOperator(!getExtended, "VK_THREAD_IDLE_KHR", "VK_THREAD_IDLE_KHR A deferred operation is not complete but there is currently no work for this thread to do at the time of this call.")
	case vk.ThreadDone:
		return ConditionalOperator(!getExtended, "VK_THREAD_DONE_KHR", "VK_THREAD_DONE_KHR A deferred operation is not complete but there is no work remaining to assign to additional threads.")
	case vk.OperationDeferred:
		return ConditionalOperator(!getExtended, "VK_OPERATION_DEFERRED_KHR", "VK_OPERATION_DEFERRED_KHR A deferred operation was requested and at least some of the work was deferred.")
	case vk.OperationNotDeferred:
		return ConditionalOperator(!getExtended, "VK_OPERATION_NOT_DEFERRED_KHR", "VK_OPERATION_NOT_DEFERRED_KHR A deferred operation was requested and no operations were deferred.")
	case vk.PipelineCompileRequired:
		return ConditionalOperator(!getExtended, "VK_PIPELINE_COMPILE_REQUIRED_EXT", "VK_PIPELINE_COMPILE_REQUIRED_EXT A requested pipeline creation would have required compilation, but the application requested compilation to not be performed.")

	// Error codes
	case vk.ErrorOutOfHostMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_HOST_MEMORY", "VK_ERROR_OUT_OF_HOST_MEMORY A host memory allocation has failed.")
	case vk.ErrorOutOfDeviceMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_DEVICE_MEMORY", "VK_ERROR_OUT_OF_DEVICE_MEMORY A device memory allocation has failed.")
	case vk.ErrorInitializationFailed:
		return ConditionalOperator(!getExtended, "VK_ERROR_INITIALIZATION_FAILED", "VK_ERROR_INITIALIZATION_FAILED Initialization of an object could not be completed for implementation-specific reasons.")
	case vk.ErrorDeviceLost:
		return ConditionalOperator(!getExtended, "VK_ERROR_DEVICE_LOST", "VK_ERROR_DEVICE_LOST The logical or physical device has been lost. See Lost Device")
	case vk.ErrorMemoryMapFailed:
		return ConditionalOperator(!getExtended, "VK_ERROR_MEMORY_MAP_FAILED", "VK_ERROR_MEMORY_MAP_FAILED Mapping of a memory object has failed.")
	case vk.ErrorLayerNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_LAYER_NOT_PRESENT", "VK_ERROR_LAYER_NOT_PRESENT A requested layer is not present or could not be loaded.")
	case vk.ErrorExtensionNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_EXTENSION_NOT_PRESENT", "VK_ERROR_EXTENSION_NOT_PRESENT A requested extension is not supported.")
	case vk.ErrorFeatureNotPresent:
		return ConditionalOperator(!getExtended, "VK_ERROR_FEATURE_NOT_PRESENT", "VK_ERROR_FEATURE_NOT_PRESENT A requested feature is not supported.")
	case vk.ErrorIncompatibleDriver:
		return ConditionalOperator(!getExtended, "VK_ERROR_INCOMPATIBLE_DRIVER", "VK_ERROR_INCOMPATIBLE_DRIVER The requested version of Vulkan is not supported by the driver or is otherwise incompatible for implementation-specific reasons.")
	case vk.ErrorTooManyObjects:
		return ConditionalOperator(!getExtended, "VK_ERROR_TOO_MANY_OBJECTS", "VK_ERROR_TOO_MANY_OBJECTS Too many objects of the type have already been created.")
	case vk.ErrorFormatNotSupported:
		return ConditionalOperator(!getExtended, "VK_ERROR_FORMAT_NOT_SUPPORTED", "VK_ERROR_FORMAT_NOT_SUPPORTED A requested format is not supported on this device.")
	case vk.ErrorFragmentedPool:
		return ConditionalOperator(!getExtended, "VK_ERROR_FRAGMENTED_POOL", "VK_ERROR_FRAGMENTED_POOL A pool allocation has failed due to fragmentation of the pool’s memory. This must only be returned if no attempt to allocate host or device memory was made to accommodate the new allocation. This should be returned in preference to VK_ERROR_OUT_OF_POOL_MEMORY, but only if the implementation is certain that the pool allocation failure was due to fragmentation.")
	case vk.ErrorSurfaceLost:
		return ConditionalOperator(!getExtended, "VK_ERROR_SURFACE_LOST_KHR", "VK_ERROR_SURFACE_LOST_KHR A surface is no longer available.")
	case vk.ErrorNativeWindowInUse:
		return ConditionalOperator(!getExtended, "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR The requested window is already in use by Vulkan or another API in a manner which prevents it from being used again.")
	case vk.ErrorOutOfDate:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_DATE_KHR", "VK_ERROR_OUT_OF_DATE_KHR A surface has changed in such a way that it is no longer compatible with the swapchain, and further presentation requests using the swapchain will fail. Applications must query the new surface properties and recreate their swapchain if they wish to continue presenting to the surface.")
	case vk.ErrorIncompatibleDisplay:
		return ConditionalOperator(!getExtended, "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR The display used by a swapchain does not use the same presentable image layout, or is incompatible in a way that prevents sharing an image.")
	case vk.ErrorInvalidShaderNv:
		return ConditionalOperator(!getExtended, "VK_ERROR_INVALID_SHADER_NV", "VK_ERROR_INVALID_SHADER_NV One or more shaders failed to compile or link. More details are reported back to the application via VK_EXT_debug_report if enabled.")
	case vk.ErrorOutOfPoolMemory:
		return ConditionalOperator(!getExtended, "VK_ERROR_OUT_OF_POOL_MEMORY", "VK_ERROR_OUT_OF_POOL_MEMORY A pool memory allocation has failed. This must only be returned if no attempt to allocate host or device memory was made to accommodate the new allocation. If the failure was definitely due to fragmentation of the pool, VK_ERROR_FRAGMENTED_POOL should be returned instead.")
	case vk.ErrorInvalidExternalHandle:
		return ConditionalOperator(!getExtended, "VK_ERROR_INVALID_EXTERNAL_HANDLE", "VK_ERROR_INVALID_EXTERNAL_HANDLE An external handle is not a valid handle of the specified type.")
	case vk.ErrorFragmentation:
		return ConditionalOperator(!getExtended, "VK_ERROR_FRAGMENTATION", "VK_ERROR_FRAGMENTATION A descriptor pool creation has failed due to fragmentation.")
	case vk.ErrorInvalidDeviceAddress:
		return ConditionalOperator(!getExtended, "VK_ERROR_INVALID_DEVICE_ADDRESS_EXT", "VK_ERROR_INVALID_DEVICE_ADDRESS_EXT A buffer creation failed because the requested address is not available.")
	// NOTE: Same as above
	//case VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS:
	//    return conditionalOperator(!getExtended, "VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS" ,"VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS A buffer creation or memory allocation failed because the requested address is not available. A shader group handle assignment failed because the requested shader group handle information is no longer valid.")
	case vk.ErrorFullScreenExclusiveModeLost:
		return ConditionalOperator(!getExtended, "VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT", "VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT An operation on a swapchain created with VK_FULL_SCREEN_EXCLUSIVE_APPLICATION_CONTROLLED_EXT failed as it did not have exlusive full-screen access. This may occur due to implementation-dependent reasons, outside of the application’s control.")
	case vk.ErrorUnknown:
		return ConditionalOperator(!getExtended, "VK_ERROR_UNKNOWN", "VK_ERROR_UNKNOWN An unknown error has occurred; either the application has provided invalid input, or an implementation failure has occurred.")
	}
}

func ConditionalOperator(condition bool, res1, res2 string) string {
	if condition {
		return res1
	} else {
		return res2
	}
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

// VulkanError is a failed driver call.
type VulkanError struct {
	Result    vk.Result
	Operation string
}

func NewVulkanError(result vk.Result, operation string) *VulkanError {
	return &VulkanError{Result: result, Operation: operation}
}

func (e *VulkanError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, VulkanResultString(e.Result, false))
}

// Is lets errors.Is classify driver failures against the core sentinels.
func (e *VulkanError) Is(target error) bool {
	switch e.Result {
	case vk.ErrorDeviceLost:
		return target == core.ErrDeviceLost
	case vk.ErrorSurfaceLost:
		return target == core.ErrSurfaceLost
	case vk.ErrorOutOfDate:
		return target == core.ErrOutOfDate
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return target == core.ErrFatal
	}
	return false
}

// resultError returns nil for vk.Success and a logged VulkanError otherwise.
func resultError(res vk.Result, operation string) error {
	if res == vk.Success {
		return nil
	}
	err := NewVulkanError(res, operation)
	core.LogError(err.Error())
	return errors.WithStack(err)
}

func vendorName(vendorID uint32) string {
	switch vendorID {
	case 0x1002:
		return "0x1002 (Advanced Micro Devices, Inc.)"
	case 0x1010:
		return "0x1010 (Imagination Technologies)"
	case 0x10de:
		return "0x10de (NVIDIA Corporation)"
	case 0x13b5:
		return "0x13b5 (ARM Limited)"
	case 0x14e4:
		return "0x14e4 (Broadcom Corporation)"
	case 0x5143:
		return "0x5143 (Qualcomm Technologies, Inc.)"
	case 0x8086:
		return "0x8086 (Intel)"
	case 0x10001:
		return "0x10001 (Vivante Corporation)"
	case 0x10002:
		return "0x10002 (VeriSilicon Holdings Co., Ltd.)"
	default:
		return fmt.Sprintf("0x%x", vendorID)
	}
}

func versionMajor(v uint32) uint32 { return v >> 22 }
func versionMinor(v uint32) uint32 { return (v >> 12) & 0x3ff }
func versionPatch(v uint32) uint32 { return v & 0xfff }

func apiVersionString(version uint32) string {
	return fmt.Sprintf("%d.%d.%d", versionMajor(version), versionMinor(version), versionPatch(version))
}

// driverVersionString decodes the vendor specific driver version packing.
func driverVersionString(vendorID, version uint32) string {
	switch vendorID {
	case 0x1002, 0x8086:
		return fmt.Sprintf("%d.%d.%d (%#x)", versionMajor(version), versionMinor(version), versionPatch(version), version)
	case 0x10de:
		return fmt.Sprintf("%d.%d.%d.%d (%#x)", version>>22, (version>>14)&0xff, (version>>6)&0xff, version&0x3f, version)
	default:
		return fmt.Sprintf("%d (%#x)", version, version)
	}
}

func PhysicalDeviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeOther:
		return "VK_PHYSICAL_DEVICE_TYPE_OTHER"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "VK_PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU"
	case vk.PhysicalDeviceTypeCpu:
		return "VK_PHYSICAL_DEVICE_TYPE_CPU"
	default:
		return fmt.Sprintf("VkPhysicalDeviceType(%d)", int32(t))
	}
}

func PresentModeString(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "VK_PRESENT_MODE_IMMEDIATE_KHR"
	case vk.PresentModeMailbox:
		return "VK_PRESENT_MODE_MAILBOX_KHR"
	case vk.PresentModeFifo:
		return "VK_PRESENT_MODE_FIFO_KHR"
	case vk.PresentModeFifoRelaxed:
		return "VK_PRESENT_MODE_FIFO_RELAXED_KHR"
	default:
		return fmt.Sprintf("VkPresentModeKHR(%d)", int32(mode))
	}
}

var formatNames = map[vk.Format]string{
	vk.FormatUndefined:              "VK_FORMAT_UNDEFINED",
	vk.FormatR8Unorm:                "VK_FORMAT_R8_UNORM",
	vk.FormatR8g8Unorm:              "VK_FORMAT_R8G8_UNORM",
	vk.FormatR5g6b5UnormPack16:      "VK_FORMAT_R5G6B5_UNORM_PACK16",
	vk.FormatB5g6r5UnormPack16:      "VK_FORMAT_B5G6R5_UNORM_PACK16",
	vk.FormatR4g4b4a4UnormPack16:    "VK_FORMAT_R4G4B4A4_UNORM_PACK16",
	vk.FormatB4g4r4a4UnormPack16:    "VK_FORMAT_B4G4R4A4_UNORM_PACK16",
	vk.FormatR5g5b5a1UnormPack16:    "VK_FORMAT_R5G5B5A1_UNORM_PACK16",
	vk.FormatB5g5r5a1UnormPack16:    "VK_FORMAT_B5G5R5A1_UNORM_PACK16",
	vk.FormatA1r5g5b5UnormPack16:    "VK_FORMAT_A1R5G5B5_UNORM_PACK16",
	vk.FormatR8g8b8Unorm:            "VK_FORMAT_R8G8B8_UNORM",
	vk.FormatR8g8b8Srgb:             "VK_FORMAT_R8G8B8_SRGB",
	vk.FormatB8g8r8Unorm:            "VK_FORMAT_B8G8R8_UNORM",
	vk.FormatB8g8r8Srgb:             "VK_FORMAT_B8G8R8_SRGB",
	vk.FormatR8g8b8a8Unorm:          "VK_FORMAT_R8G8B8A8_UNORM",
	vk.FormatR8g8b8a8Srgb:           "VK_FORMAT_R8G8B8A8_SRGB",
	vk.FormatB8g8r8a8Unorm:          "VK_FORMAT_B8G8R8A8_UNORM",
	vk.FormatB8g8r8a8Srgb:           "VK_FORMAT_B8G8R8A8_SRGB",
	vk.FormatA8b8g8r8UnormPack32:    "VK_FORMAT_A8B8G8R8_UNORM_PACK32",
	vk.FormatA8b8g8r8SrgbPack32:     "VK_FORMAT_A8B8G8R8_SRGB_PACK32",
	vk.FormatA2r10g10b10UnormPack32: "VK_FORMAT_A2R10G10B10_UNORM_PACK32",
	vk.FormatA2b10g10r10UnormPack32: "VK_FORMAT_A2B10G10R10_UNORM_PACK32",
}

func FormatString(format vk.Format) string {
	if name, ok := formatNames[format]; ok {
		return name
	}
	return fmt.Sprintf("VkFormat(%d)", int32(format))
}
