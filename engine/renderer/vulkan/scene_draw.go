package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	kmath "github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

func scissorRect(r kmath.Rect) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: uint32(r.Width), Height: uint32(r.Height)},
	}
}

// quadCorners returns the corners of r in index pattern order: top left, top
// right, bottom right, bottom left.
func quadCorners(r kmath.Rect) [4]mgl32.Vec2 {
	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := float32(r.Right()), float32(r.Bottom())
	return [4]mgl32.Vec2{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

/**
 * @brief Fills region with opaque black. When region covers the whole output
 * before anything was drawn the render pass clear is used instead.
 */
func (s *VulkanScene) PaintBackground(region kmath.Region) {
	region = region.IntersectedRect(s.swapchain.Rect())
	if region.IsEmpty() {
		return
	}
	if region.Equal(s.outputRegion()) && !s.renderPassStarted {
		s.clearPending = true
		return
	}

	rects := region.Rects()
	vertices := make([]Vertex2D, 0, 4*len(rects))
	for _, r := range rects {
		for _, corner := range quadCorners(r) {
			vertices = append(vertices, Vertex2D{Position: corner})
		}
	}

	vbo := EmplaceVertices(s.uploadManager, vertices)
	ubo := EmplaceUniform(s.uploadManager, ColorUniformData{
		Matrix: s.projection,
		Color:  mgl32.Vec4{0, 0, 0, 1},
	})
	if !vbo.IsValid() || !ubo.IsValid() {
		core.LogError("Out of upload memory painting the background")
		return
	}

	pipeline, layout := s.pipelineManager.Pipeline(PipelineKey{
		Material:       MaterialFlatColor,
		Traits:         TraitNone,
		DescriptorType: DescriptorTypeSet,
		Topology:       vk.PrimitiveTopologyTriangleList,
		RenderPassType: RenderPassSwapchain,
	})
	if pipeline == nil {
		return
	}

	// A set still referenced by a pass in flight must not be rewritten.
	if s.clearDescriptorSet == nil || s.clearDescriptorSet.UniformBuffer() != ubo.Buffer {
		if s.clearDescriptorSet == nil || s.clearDescriptorSet.RefCount() > 1 {
			if s.clearDescriptorSet != nil {
				s.clearDescriptorSet.Close()
			}
			s.clearDescriptorSet = NewColorDescriptorSet(s.colorDescriptorPool)
		}
		if !s.clearDescriptorSet.IsValid() {
			return
		}
		s.clearDescriptorSet.Update(ubo)
	}

	indexBuffer := s.indexBufferForQuadCount(uint32(len(rects)))
	if indexBuffer == nil {
		return
	}

	cmd := s.mainCommandBuffer()
	cmd.BindPipeline(pipeline)
	cmd.BindDescriptorSets(layout, []vk.DescriptorSet{s.clearDescriptorSet.Handle()}, []uint32{uint32(ubo.Offset)})
	cmd.BindVertexBuffer(vbo.Buffer.Handle(), vbo.Offset)
	cmd.BindIndexBuffer(indexBuffer.Handle(), 0, vk.IndexTypeUint16)
	cmd.SetScissor(scissorRect(region.BoundingRect()))
	drawQuads(cmd, uint32(len(rects)))

	s.addBusyReference(s.clearDescriptorSet.descriptorSet)
}

// quadTraits derives the pipeline traits of a quad batch.
func quadTraits(q renderer.Quads, hasAlpha, crossFade bool) Traits {
	traits := TraitNone
	if q.Blend || hasAlpha || q.Opacity < 1 {
		traits |= TraitPreMultipliedAlphaBlend
	}
	if q.Opacity != 1 || q.Brightness != 1 {
		traits |= TraitModulate
	}
	if q.Saturation != 1 {
		traits |= TraitDesaturate
	}
	if crossFade {
		traits |= TraitCrossFade
	}
	return traits
}

func textureOf(t renderer.Texture) *VulkanTexture {
	texture, ok := t.(*VulkanTexture)
	if !ok || !texture.IsValid() {
		return nil
	}
	return texture
}

func (s *VulkanScene) addTextureBusyReferences(texture *VulkanTexture) {
	s.addBusyReference(texture.view)
	s.addBusyReference(texture.image)
	s.addBusyReference(texture.memory)
}

/**
 * @brief Draws one textured quad per rectangle. Texture coordinates are in
 * texels, relative to the quad origin. With a previous texture the two are
 * cross-faded by CrossFadeProgress.
 */
func (s *VulkanScene) DrawQuads(q renderer.Quads) {
	texture := textureOf(q.Texture)
	if texture == nil {
		core.LogWarn("Skipping quads without a valid texture")
		return
	}
	previous := textureOf(q.Previous)

	output := s.swapchain.Rect()
	var rects []kmath.Rect
	for _, r := range q.Rects {
		if r = r.Intersected(output); !r.IsEmpty() {
			rects = append(rects, r)
		}
	}
	if len(rects) == 0 {
		return
	}

	var vbo VulkanBufferRange
	material := MaterialTexture
	if previous != nil {
		material = MaterialTwoTextures
		scaleX := float32(previous.Width()) / float32(texture.Width())
		scaleY := float32(previous.Height()) / float32(texture.Height())
		vertices := make([]CrossFadeVertex2D, 0, 4*len(rects))
		for _, r := range rects {
			for _, corner := range quadCorners(r) {
				u := corner.X() - float32(q.OriginX)
				v := corner.Y() - float32(q.OriginY)
				vertices = append(vertices, CrossFadeVertex2D{
					Position:  corner,
					TexCoord1: mgl32.Vec2{u * scaleX, v * scaleY},
					TexCoord2: mgl32.Vec2{u, v},
				})
			}
		}
		vbo = EmplaceVertices(s.uploadManager, vertices)
	} else {
		vertices := make([]TexturedVertex2D, 0, 4*len(rects))
		for _, r := range rects {
			for _, corner := range quadCorners(r) {
				vertices = append(vertices, TexturedVertex2D{
					Position: corner,
					TexCoord: mgl32.Vec2{corner.X() - float32(q.OriginX), corner.Y() - float32(q.OriginY)},
				})
			}
		}
		vbo = EmplaceVertices(s.uploadManager, vertices)
	}

	ubo := EmplaceUniform(s.uploadManager, NewTextureUniformData(s.projection, q.Opacity, q.Brightness, q.Saturation, q.CrossFadeProgress))
	if !vbo.IsValid() || !ubo.IsValid() {
		core.LogError("Out of upload memory drawing %d quads", len(rects))
		return
	}

	traits := quadTraits(q, texture.HasAlpha(), previous != nil)
	pipeline, layout := s.pipelineManager.Pipeline(PipelineKey{
		Material:       material,
		Traits:         traits,
		DescriptorType: DescriptorTypeSet,
		Topology:       vk.PrimitiveTopologyTriangleList,
		RenderPassType: RenderPassSwapchain,
	})
	if pipeline == nil {
		return
	}

	sampler := s.NearestSampler()
	if q.Smooth {
		sampler = s.LinearSampler()
	}

	var set *descriptorSet
	if previous != nil {
		crossFade := NewCrossFadeDescriptorSet(s.crossFadeDescriptorPool)
		if !crossFade.IsValid() {
			return
		}
		crossFade.Update(sampler, previous.View(), texture.View(), vk.ImageLayoutShaderReadOnlyOptimal, ubo)
		set = crossFade.descriptorSet
	} else {
		single := NewTextureDescriptorSet(s.textureDescriptorPool)
		if !single.IsValid() {
			return
		}
		single.Update(sampler, texture.View(), vk.ImageLayoutShaderReadOnlyOptimal, ubo)
		set = single.descriptorSet
	}
	// The pass reference keeps the set alive until the pass has completed.
	defer set.Close()

	indexBuffer := s.indexBufferForQuadCount(uint32(len(rects)))
	if indexBuffer == nil {
		return
	}

	cmd := s.mainCommandBuffer()
	cmd.BindPipeline(pipeline)
	cmd.BindDescriptorSets(layout, []vk.DescriptorSet{set.Handle()}, []uint32{uint32(ubo.Offset)})
	cmd.BindVertexBuffer(vbo.Buffer.Handle(), vbo.Offset)
	cmd.BindIndexBuffer(indexBuffer.Handle(), 0, vk.IndexTypeUint16)
	cmd.SetScissor(scissorRect(output))
	drawQuads(cmd, uint32(len(rects)))

	s.addBusyReference(set)
	s.addTextureBusyReferences(texture)
	if previous != nil {
		s.addTextureBusyReferences(previous)
	}
}
