package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

// ShaderSource hands out precompiled SPIR-V by shader file name, for example
// "texture.vert".
type ShaderSource interface {
	SPIRV(name string) ([]uint32, error)
}

var shaderFileNames = []string{
	"color.vert",
	"texture.vert",
	"crossfade.vert",
	"updatedecoration.vert",
	"color.frag",
	"texture.frag",
	"modulate.frag",
	"desaturate.frag",
	"crossfade.frag",
	"updatedecoration.frag",
}

/**
 * @brief Creates a shader module from the SPIR-V the source returns for name.
 */
func loadShaderModule(device *VulkanDevice, source ShaderSource, name string) (*VulkanShaderModule, error) {
	code, err := source.SPIRV(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read shader module %s", name)
	}
	if len(code) == 0 {
		return nil, errors.Newf("shader module %s is empty", name)
	}
	module, res := NewVulkanShaderModule(device, code)
	if res != vk.Success {
		return nil, errors.Wrapf(resultError(res, "vkCreateShaderModule"), "shader module %s", name)
	}
	core.LogDebug("Loaded shader module %s", name)
	return module, nil
}

func shaderStage(stage vk.ShaderStageFlagBits, module *VulkanShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module.Handle(),
		PName:  VulkanSafeString("main"),
	}
}
