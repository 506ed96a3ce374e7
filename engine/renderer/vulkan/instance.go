package vulkan

import (
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

// Validation layers are enabled when the loader reports them. The LunarG
// standard validation meta layer loads the others in the right order on old
// SDKs; the loader drops duplicates.
var validationLayers = []string{
	"VK_LAYER_LUNARG_standard_validation",
	"VK_LAYER_GOOGLE_threading",
	"VK_LAYER_LUNARG_parameter_validation",
	"VK_LAYER_LUNARG_object_tracker",
	"VK_LAYER_LUNARG_core_validation",
	"VK_LAYER_GOOGLE_unique_objects",
	"VK_LAYER_KHRONOS_validation",
}

const (
	surfaceExtensionName             = "VK_KHR_surface"
	physicalDeviceProperties2ExtName = "VK_KHR_get_physical_device_properties2"
	debugReportExtensionName         = "VK_EXT_debug_report"
)

type VulkanInstanceOptions struct {
	ApplicationName    string
	Validation         bool
	PlatformExtensions []string
}

type VulkanInstance struct {
	Driver InstanceDriver

	EnabledLayers     []string
	EnabledExtensions []string

	HaveGetPhysicalDeviceProperties2 bool
	HaveDebugReport                  bool

	debugCallback vk.DebugReportCallback
}

// selectLayers returns the validation layers to enable, in request order.
func selectLayers(supported []string, validation bool) []string {
	if !validation {
		return nil
	}
	enabled := make([]string, 0, len(validationLayers))
	for _, layer := range validationLayers {
		if slices.Contains(supported, layer) {
			enabled = append(enabled, layer)
		}
	}
	return enabled
}

func selectInstanceExtensions(supported, platform []string) (enabled []string, haveProps2, haveDebugReport bool, err error) {
	required := append([]string{surfaceExtensionName}, platform...)
	for _, ext := range required {
		if !slices.Contains(supported, ext) {
			return nil, false, false, errors.Wrapf(core.ErrMissingExtension, "required instance extension %s is not supported", ext)
		}
		if !slices.Contains(enabled, ext) {
			enabled = append(enabled, ext)
		}
	}
	if slices.Contains(supported, physicalDeviceProperties2ExtName) {
		haveProps2 = true
		enabled = append(enabled, physicalDeviceProperties2ExtName)
	}
	if slices.Contains(supported, debugReportExtensionName) {
		haveDebugReport = true
		enabled = append(enabled, debugReportExtensionName)
	}
	return enabled, haveProps2, haveDebugReport, nil
}

func supportedInstanceLayers() []string {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return nil
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].LayerName[:]))
	}
	return names
}

func supportedInstanceExtensions() []string {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success || count == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, props); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names
}

// NewVulkanInstance creates the instance through the loader. The loader entry
// point must already be installed with vk.SetGetInstanceProcAddr and vk.Init.
func NewVulkanInstance(opts VulkanInstanceOptions) (*VulkanInstance, error) {
	layers := selectLayers(supportedInstanceLayers(), opts.Validation)

	extensions, haveProps2, haveDebugReport, err := selectInstanceExtensions(supportedInstanceExtensions(), opts.PlatformExtensions)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(opts.ApplicationName),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		EngineVersion:      uint32(vk.MakeVersion(0, 0, 0)),
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var handle vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &handle); res != vk.Success {
		err := NewVulkanError(res, "vkCreateInstance")
		core.LogError(err.Error())
		return nil, errors.Mark(err, core.ErrInitFailed)
	}
	if err := vk.InitInstance(handle); err != nil {
		core.LogError(err.Error())
		vk.DestroyInstance(handle, nil)
		return nil, errors.Mark(err, core.ErrInitFailed)
	}

	instance := &VulkanInstance{
		Driver:                           newInstanceDriver(handle),
		EnabledLayers:                    layers,
		EnabledExtensions:                extensions,
		HaveGetPhysicalDeviceProperties2: haveProps2,
		HaveDebugReport:                  haveDebugReport,
	}

	core.LogInfo("Enabled instance layers:")
	for _, layer := range layers {
		core.LogInfo("    %s", layer)
	}
	core.LogInfo("Enabled instance extensions:")
	for _, ext := range extensions {
		core.LogInfo("    %s", ext)
	}

	if instance.HaveDebugReport && opts.Validation {
		instance.InstallDebugCallback()
	}
	return instance, nil
}

func (i *VulkanInstance) InstallDebugCallback() {
	if i.debugCallback != nil {
		return
	}
	flags := vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit)
	cb, res := i.Driver.CreateDebugReportCallback(flags, dbgCallbackFunc)
	if res != vk.Success {
		core.LogWarn("vkCreateDebugReportCallbackEXT failed: %s", VulkanResultString(res, false))
		return
	}
	i.debugCallback = cb
	core.LogDebug("Vulkan debug report callback installed.")
}

func (i *VulkanInstance) Handle() vk.Instance {
	return i.Driver.Handle()
}

func (i *VulkanInstance) Close() {
	if i.debugCallback != nil {
		i.Driver.DestroyDebugReportCallback(i.debugCallback)
		i.debugCallback = nil
	}
	i.Driver.DestroyInstance()
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
