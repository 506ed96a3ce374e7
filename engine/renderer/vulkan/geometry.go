package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

/**
 * @brief A 2D position. Used by the flat color pipeline.
 */
type Vertex2D struct {
	Position mgl32.Vec2
}

/**
 * @brief A 2D position with one texture coordinate.
 */
type TexturedVertex2D struct {
	Position mgl32.Vec2
	TexCoord mgl32.Vec2
}

/**
 * @brief A 2D position with the texture coordinates of the two textures
 * being cross-faded.
 */
type CrossFadeVertex2D struct {
	Position  mgl32.Vec2
	TexCoord1 mgl32.Vec2
	TexCoord2 mgl32.Vec2
}

const (
	vertex2DStride          = uint32(unsafe.Sizeof(Vertex2D{}))
	texturedVertex2DStride  = uint32(unsafe.Sizeof(TexturedVertex2D{}))
	crossFadeVertex2DStride = uint32(unsafe.Sizeof(CrossFadeVertex2D{}))
)

func vec2Attribute(location, offset uint32) vk.VertexInputAttributeDescription {
	return vk.VertexInputAttributeDescription{
		Location: location,
		Binding:  0,
		Format:   vk.FormatR32g32Sfloat,
		Offset:   offset,
	}
}

// vertexInputFor returns the binding stride and attributes of the vertex type
// a material consumes.
func vertexInputFor(material Material) (uint32, []vk.VertexInputAttributeDescription) {
	switch material {
	case MaterialTexture:
		return texturedVertex2DStride, []vk.VertexInputAttributeDescription{
			vec2Attribute(0, uint32(unsafe.Offsetof(TexturedVertex2D{}.Position))),
			vec2Attribute(1, uint32(unsafe.Offsetof(TexturedVertex2D{}.TexCoord))),
		}
	case MaterialTwoTextures:
		return crossFadeVertex2DStride, []vk.VertexInputAttributeDescription{
			vec2Attribute(0, uint32(unsafe.Offsetof(CrossFadeVertex2D{}.Position))),
			vec2Attribute(1, uint32(unsafe.Offsetof(CrossFadeVertex2D{}.TexCoord1))),
			vec2Attribute(2, uint32(unsafe.Offsetof(CrossFadeVertex2D{}.TexCoord2))),
		}
	case MaterialDecorationStagingImages:
		return 0, nil
	default:
		return vertex2DStride, []vk.VertexInputAttributeDescription{
			vec2Attribute(0, uint32(unsafe.Offsetof(Vertex2D{}.Position))),
		}
	}
}

// ColorUniformData is the uniform block of the flat color shaders.
type ColorUniformData struct {
	Matrix mgl32.Mat4
	Color  mgl32.Vec4
}

// TextureUniformData is the uniform block of the texture and cross-fade
// shaders.
type TextureUniformData struct {
	Matrix            mgl32.Mat4
	Modulation        mgl32.Vec4
	Saturation        float32
	CrossFadeProgress float32
	_                 [2]float32
}

// NewTextureUniformData premultiplies the modulation color by opacity.
func NewTextureUniformData(matrix mgl32.Mat4, opacity, brightness, saturation, crossFadeProgress float32) TextureUniformData {
	rgb := brightness * opacity
	return TextureUniformData{
		Matrix:            matrix,
		Modulation:        mgl32.Vec4{rgb, rgb, rgb, opacity},
		Saturation:        saturation,
		CrossFadeProgress: crossFadeProgress,
	}
}

// EmplaceUniform copies value into a uniform aligned range of the upload
// manager.
func EmplaceUniform[T any](m *VulkanUploadManager, value T) VulkanBufferRange {
	size := uint64(unsafe.Sizeof(value))
	r := m.Allocate(size, m.MinUniformBufferOffsetAlignment())
	if !r.IsValid() {
		return r
	}
	copy(r.Data, unsafe.Slice((*byte)(unsafe.Pointer(&value)), size))
	return r
}

// EmplaceVertices copies vertices into the upload manager at vertex alignment.
func EmplaceVertices[T any](m *VulkanUploadManager, vertices []T) VulkanBufferRange {
	if len(vertices) == 0 {
		return VulkanBufferRange{}
	}
	var zero T
	size := uint64(unsafe.Sizeof(zero)) * uint64(len(vertices))
	r := m.Allocate(size, 4)
	if !r.IsValid() {
		return r
	}
	copy(r.Data, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))
	return r
}
