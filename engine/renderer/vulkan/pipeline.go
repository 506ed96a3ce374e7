package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

type Material int

const (
	MaterialFlatColor Material = iota
	MaterialTexture
	MaterialTwoTextures
	MaterialDecorationStagingImages
	materialCount
)

type Traits uint32

const (
	TraitNone                    Traits = 0
	TraitPreMultipliedAlphaBlend Traits = 1 << 0
	TraitModulate                Traits = 1 << 1
	TraitDesaturate              Traits = 1 << 2
	TraitCrossFade               Traits = 1 << 3
)

type DescriptorType int

const (
	DescriptorTypeSet DescriptorType = iota
	DescriptorTypePush
)

type RenderPassType int

const (
	RenderPassSwapchain RenderPassType = iota
	RenderPassOffscreen
	renderPassTypeCount
)

// PipelineKey identifies one graphics pipeline.
type PipelineKey struct {
	Material       Material
	Traits         Traits
	DescriptorType DescriptorType
	Topology       vk.PrimitiveTopology
	RenderPassType RenderPassType
}

type VulkanPipeline struct{ deviceObject[vk.Pipeline] }

func (p *VulkanPipeline) Move() *VulkanPipeline { return &VulkanPipeline{p.take()} }

// VulkanPipelineCache wraps a driver pipeline cache. It can be seeded from a
// blob returned by Data in an earlier run.
type VulkanPipelineCache struct{ deviceObject[vk.PipelineCache] }

func NewVulkanPipelineCache(device *VulkanDevice, initialData []byte) (*VulkanPipelineCache, vk.Result) {
	handle, res := device.Driver.CreatePipelineCache(initialData)
	if res != vk.Success && len(initialData) > 0 {
		core.LogWarn("Discarding the saved pipeline cache: %s", VulkanResultString(res, false))
		handle, res = device.Driver.CreatePipelineCache(nil)
	}
	if res != vk.Success {
		resultError(res, "vkCreatePipelineCache")
		return &VulkanPipelineCache{}, res
	}
	return &VulkanPipelineCache{newDeviceObject(device, handle, DeviceDriver.DestroyPipelineCache)}, res
}

// Data returns the opaque driver blob.
func (c *VulkanPipelineCache) Data() ([]byte, error) {
	if !c.IsValid() {
		return nil, errors.New("pipeline cache is not valid")
	}
	data, res := c.device.Driver.GetPipelineCacheData(c.handle)
	if res != vk.Success {
		return nil, resultError(res, "vkGetPipelineCacheData")
	}
	return data, nil
}

/**
 * @brief Builds graphics pipelines on demand and keeps them for its lifetime.
 * Descriptor set layouts, pipeline layouts and shader modules are created up
 * front.
 */
type VulkanPipelineManager struct {
	device      *VulkanDevice
	cache       *VulkanPipelineCache
	renderPass  [renderPassTypeCount]vk.RenderPass
	havePushSet bool
	valid       bool

	shaderModules map[string]*VulkanShaderModule

	descriptorSetLayouts     [materialCount]*VulkanDescriptorSetLayout
	pushDescriptorSetLayouts [materialCount]*VulkanDescriptorSetLayout
	pipelineLayouts          [materialCount]*VulkanPipelineLayout
	pushPipelineLayouts      [materialCount]*VulkanPipelineLayout

	pipelines map[PipelineKey]*VulkanPipeline
}

type VulkanPipelineManagerConfig struct {
	Shaders             ShaderSource
	Cache               *VulkanPipelineCache
	NearestSampler      *VulkanSampler
	LinearSampler       *VulkanSampler
	SwapchainRenderPass vk.RenderPass
	OffscreenRenderPass vk.RenderPass
	PushDescriptors     bool
}

func NewVulkanPipelineManager(device *VulkanDevice, config VulkanPipelineManagerConfig) (*VulkanPipelineManager, error) {
	m := &VulkanPipelineManager{
		device:        device,
		cache:         config.Cache,
		havePushSet:   config.PushDescriptors,
		shaderModules: make(map[string]*VulkanShaderModule),
		pipelines:     make(map[PipelineKey]*VulkanPipeline),
	}
	m.renderPass[RenderPassSwapchain] = config.SwapchainRenderPass
	m.renderPass[RenderPassOffscreen] = config.OffscreenRenderPass

	for _, name := range shaderFileNames {
		module, err := loadShaderModule(device, config.Shaders, name)
		if err != nil {
			m.Close()
			return nil, errors.Mark(err, core.ErrInitFailed)
		}
		m.shaderModules[name] = module
	}

	if err := m.createDescriptorSetLayouts(config.NearestSampler); err != nil {
		m.Close()
		return nil, errors.Mark(err, core.ErrInitFailed)
	}
	if err := m.createPipelineLayouts(); err != nil {
		m.Close()
		return nil, errors.Mark(err, core.ErrInitFailed)
	}

	m.valid = true
	return m, nil
}

func setLayoutBinding(binding uint32, descriptorType vk.DescriptorType, count uint32, stages vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: count,
		StageFlags:      vk.ShaderStageFlags(stages),
	}
}

// setLayoutBindings returns the bindings of a material. Push descriptor
// layouts cannot contain dynamic uniform buffers.
func setLayoutBindings(material Material, push bool, nearest vk.Sampler) []vk.DescriptorSetLayoutBinding {
	uniform := vk.DescriptorTypeUniformBufferDynamic
	if push {
		uniform = vk.DescriptorTypeUniformBuffer
	}
	vsfs := vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit

	switch material {
	case MaterialFlatColor:
		return []vk.DescriptorSetLayoutBinding{
			setLayoutBinding(0, uniform, 1, vsfs),
		}
	case MaterialTexture:
		return []vk.DescriptorSetLayoutBinding{
			setLayoutBinding(0, vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFragmentBit),
			setLayoutBinding(1, uniform, 1, vsfs),
		}
	case MaterialTwoTextures:
		return []vk.DescriptorSetLayoutBinding{
			setLayoutBinding(0, vk.DescriptorTypeSampledImage, 2, vk.ShaderStageFragmentBit),
			setLayoutBinding(1, vk.DescriptorTypeSampler, 1, vk.ShaderStageFragmentBit),
			setLayoutBinding(2, uniform, 1, vsfs),
		}
	case MaterialDecorationStagingImages:
		sampler := setLayoutBinding(1, vk.DescriptorTypeSampler, 1, vk.ShaderStageFragmentBit)
		sampler.PImmutableSamplers = []vk.Sampler{nearest}
		return []vk.DescriptorSetLayoutBinding{
			setLayoutBinding(0, vk.DescriptorTypeSampledImage, 4, vk.ShaderStageFragmentBit),
			sampler,
		}
	}
	return nil
}

func (m *VulkanPipelineManager) createDescriptorSetLayouts(nearest *VulkanSampler) error {
	var nearestHandle vk.Sampler
	if nearest != nil {
		nearestHandle = nearest.Handle()
	}

	create := func(material Material, push bool) (*VulkanDescriptorSetLayout, error) {
		bindings := setLayoutBindings(material, push, nearestHandle)
		info := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		if push {
			info.Flags = vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreatePushDescriptorBit)
		}
		layout, res := NewVulkanDescriptorSetLayout(m.device, &info)
		if res != vk.Success {
			return nil, errors.Wrapf(resultError(res, "vkCreateDescriptorSetLayout"), "material %d", material)
		}
		return layout, nil
	}

	for material := Material(0); material < materialCount; material++ {
		layout, err := create(material, false)
		if err != nil {
			return err
		}
		m.descriptorSetLayouts[material] = layout

		// The decoration material is only drawn with descriptor sets
		if m.havePushSet && material != MaterialDecorationStagingImages {
			layout, err := create(material, true)
			if err != nil {
				return err
			}
			m.pushDescriptorSetLayouts[material] = layout
		}
	}
	return nil
}

func (m *VulkanPipelineManager) createPipelineLayouts() error {
	create := func(setLayout *VulkanDescriptorSetLayout, material Material) (*VulkanPipelineLayout, error) {
		info := vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: 1,
			PSetLayouts:    []vk.DescriptorSetLayout{setLayout.Handle()},
		}
		if material == MaterialDecorationStagingImages {
			info.PushConstantRangeCount = 1
			info.PPushConstantRanges = []vk.PushConstantRange{{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				Offset:     0,
				Size:       4,
			}}
		}
		layout, res := NewVulkanPipelineLayout(m.device, &info)
		if res != vk.Success {
			return nil, errors.Wrapf(resultError(res, "vkCreatePipelineLayout"), "material %d", material)
		}
		return layout, nil
	}

	for material := Material(0); material < materialCount; material++ {
		layout, err := create(m.descriptorSetLayouts[material], material)
		if err != nil {
			return err
		}
		m.pipelineLayouts[material] = layout

		if push := m.pushDescriptorSetLayouts[material]; push != nil {
			layout, err := create(push, material)
			if err != nil {
				return err
			}
			m.pushPipelineLayouts[material] = layout
		}
	}
	return nil
}

func (m *VulkanPipelineManager) IsValid() bool {
	return m != nil && m.valid
}

// DescriptorSetLayout returns the layout descriptor sets of material must be
// allocated with.
func (m *VulkanPipelineManager) DescriptorSetLayout(material Material) vk.DescriptorSetLayout {
	return m.descriptorSetLayouts[material].Handle()
}

func (m *VulkanPipelineManager) PushDescriptorSetLayout(material Material) vk.DescriptorSetLayout {
	if layout := m.pushDescriptorSetLayouts[material]; layout != nil {
		return layout.Handle()
	}
	return nil
}

func (m *VulkanPipelineManager) pipelineLayout(material Material, descriptorType DescriptorType) *VulkanPipelineLayout {
	if descriptorType == DescriptorTypePush {
		return m.pushPipelineLayouts[material]
	}
	return m.pipelineLayouts[material]
}

/**
 * @brief Returns the pipeline and pipeline layout for key, creating the
 * pipeline the first time the key is requested. A failed creation marks the
 * whole manager invalid.
 */
func (m *VulkanPipelineManager) Pipeline(key PipelineKey) (vk.Pipeline, vk.PipelineLayout) {
	if !m.IsValid() {
		return nil, nil
	}
	layout := m.pipelineLayout(key.Material, key.DescriptorType)
	if layout == nil {
		core.LogError("No pipeline layout for material %d with descriptor type %d", key.Material, key.DescriptorType)
		return nil, nil
	}

	var pipeline *VulkanPipeline
	m.device.Locks.SafeCall(PipelineManagement, func() error {
		if cached, ok := m.pipelines[key]; ok {
			pipeline = cached
			return nil
		}
		created, err := m.createPipeline(key, layout)
		if err != nil {
			m.valid = false
			return err
		}
		m.pipelines[key] = created
		pipeline = created
		return nil
	})
	if pipeline == nil {
		return nil, nil
	}
	return pipeline.Handle(), layout.Handle()
}

func (m *VulkanPipelineManager) shaderStages(key PipelineKey) []vk.PipelineShaderStageCreateInfo {
	var vert, frag string
	switch key.Material {
	case MaterialFlatColor:
		vert, frag = "color.vert", "color.frag"
	case MaterialTexture:
		vert = "texture.vert"
		switch {
		case key.Traits&TraitDesaturate != 0:
			frag = "desaturate.frag"
		case key.Traits&TraitModulate != 0:
			frag = "modulate.frag"
		default:
			frag = "texture.frag"
		}
	case MaterialTwoTextures:
		vert, frag = "crossfade.vert", "crossfade.frag"
	case MaterialDecorationStagingImages:
		vert, frag = "updatedecoration.vert", "updatedecoration.frag"
	}
	return []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, m.shaderModules[vert]),
		shaderStage(vk.ShaderStageFragmentBit, m.shaderModules[frag]),
	}
}

func blendAttachmentState(traits Traits) vk.PipelineColorBlendAttachmentState {
	state := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if traits&TraitPreMultipliedAlphaBlend != 0 {
		state.BlendEnable = vk.True
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
	}
	return state
}

func (m *VulkanPipelineManager) createPipeline(key PipelineKey, layout *VulkanPipelineLayout) (*VulkanPipeline, error) {
	stride, attributes := vertexInputFor(key.Material)

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if stride > 0 {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputInfo.PVertexAttributeDescriptions = attributes
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               key.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{{Extent: vk.Extent2D{Width: 1, Height: 1}}},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachmentState(key.Traits)},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	stages := m.shaderStages(key)
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout.Handle(),
		RenderPass:          m.renderPass[key.RenderPassType],
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	var cache vk.PipelineCache
	if m.cache != nil && m.cache.IsValid() {
		cache = m.cache.Handle()
	}
	handle, res := m.device.Driver.CreateGraphicsPipeline(cache, &pipelineCreateInfo)
	if res != vk.Success {
		return nil, resultError(res, "vkCreateGraphicsPipelines")
	}
	core.LogDebug("Graphics pipeline created: material=%d traits=%#x topology=%d", key.Material, key.Traits, key.Topology)
	return &VulkanPipeline{newDeviceObject(m.device, handle, DeviceDriver.DestroyPipeline)}, nil
}

// Close destroys every pipeline, layout and shader module.
func (m *VulkanPipelineManager) Close() {
	for key, pipeline := range m.pipelines {
		pipeline.Close()
		delete(m.pipelines, key)
	}
	for i := range m.pipelineLayouts {
		if m.pipelineLayouts[i] != nil {
			m.pipelineLayouts[i].Close()
		}
		if m.pushPipelineLayouts[i] != nil {
			m.pushPipelineLayouts[i].Close()
		}
		if m.descriptorSetLayouts[i] != nil {
			m.descriptorSetLayouts[i].Close()
		}
		if m.pushDescriptorSetLayouts[i] != nil {
			m.pushDescriptorSetLayouts[i].Close()
		}
	}
	for name, module := range m.shaderModules {
		module.Close()
		delete(m.shaderModules, name)
	}
	m.valid = false
}
