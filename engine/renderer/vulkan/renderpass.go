package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// RenderPassVariant selects how the color attachment contents are loaded.
type RenderPassVariant int

const (
	// Clears the attachment. Initial layout undefined.
	RenderPassClear RenderPassVariant = iota
	// Loads the attachment and transitions it from PRESENT_SRC.
	RenderPassTransition
	// Loads an attachment already in COLOR_ATTACHMENT_OPTIMAL.
	RenderPassLoad
	renderPassVariantCount
)

func (v RenderPassVariant) String() string {
	switch v {
	case RenderPassClear:
		return "clear"
	case RenderPassTransition:
		return "transition"
	case RenderPassLoad:
		return "load"
	}
	return "unknown"
}

func renderPassCreateInfo(format vk.Format, variant RenderPassVariant) vk.RenderPassCreateInfo {
	// Color attachment
	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}

	dstAccess := vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	switch variant {
	case RenderPassClear:
		colorAttachment.LoadOp = vk.AttachmentLoadOpClear
		colorAttachment.InitialLayout = vk.ImageLayoutUndefined
		dstAccess = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case RenderPassTransition:
		colorAttachment.InitialLayout = vk.ImageLayoutPresentSrc
	default:
		colorAttachment.InitialLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	colorAttachmentReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentReference},
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstAccessMask: dstAccess,
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask: 0,
		},
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
}

// VulkanRenderPasses holds the three compatible swapchain render passes.
type VulkanRenderPasses [renderPassVariantCount]*VulkanRenderPass

func NewVulkanRenderPasses(device *VulkanDevice, format vk.Format) (VulkanRenderPasses, error) {
	var passes VulkanRenderPasses
	for variant := RenderPassVariant(0); variant < renderPassVariantCount; variant++ {
		info := renderPassCreateInfo(format, variant)
		pass, res := NewVulkanRenderPass(device, &info)
		if res != vk.Success {
			passes.Close()
			return passes, errors.Wrapf(resultError(res, "vkCreateRenderPass"), "%s render pass", variant)
		}
		passes[variant] = pass
	}
	return passes, nil
}

func (p *VulkanRenderPasses) Get(variant RenderPassVariant) *VulkanRenderPass {
	return p[variant]
}

func (p *VulkanRenderPasses) Close() {
	for i, pass := range p {
		if pass != nil {
			pass.Close()
			p[i] = nil
		}
	}
}
