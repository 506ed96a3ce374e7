package renderer

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkcompositor/engine/math"
)

type CompositingType uint8

const (
	NoCompositing CompositingType = iota
	VulkanCompositing
)

func (t CompositingType) String() string {
	switch t {
	case VulkanCompositing:
		return "vulkan"
	default:
		return "none"
	}
}

// Texture is window or shadow content resident on the GPU.
type Texture interface {
	Width() uint32
	Height() uint32
	// Close drops the caller's reference. Paint passes still using the
	// texture keep it alive until they complete.
	Close()
}

/**
 * @brief A batch of screen rectangles textured from one window. Rects are in
 * output pixels; texture coordinates are derived from their offset to Origin.
 */
type Quads struct {
	Texture Texture
	// Previous content to fade from, or nil.
	Previous          Texture
	CrossFadeProgress float32

	OriginX, OriginY int32
	Rects            []math.Rect

	Opacity    float32
	Brightness float32
	Saturation float32
	// The texture holds premultiplied alpha that must be blended.
	Blend bool
	// Sample with linear filtering instead of nearest.
	Smooth bool
}

// Canvas is the drawing surface a ScreenPainter records into during one
// paint call.
type Canvas interface {
	Size() (width, height uint32)
	Projection() mgl32.Mat4
	PaintBackground(region math.Region)
	DrawQuads(quads Quads)
	UploadShm(buffer ShmBuffer, previous Texture) (Texture, error)
	UploadImage(img image.Image) (Texture, error)
}

// ScreenPainter walks the scene graph and issues the draw calls for one
// frame.
type ScreenPainter interface {
	/**
	 * @brief Paints damage, plus repaint to repair an older back buffer.
	 * @return update is what changed on screen; valid is everything that was
	 * repainted and may be larger.
	 */
	PaintScreen(canvas Canvas, damage, repaint math.Region) (update, valid math.Region)
}

// Compositor is what the engine drives every frame.
type Compositor interface {
	Type() CompositingType
	// Paint returns the time spent in nanoseconds.
	Paint(damage math.Region, painter ScreenPainter) int64
	ScreenGeometryChanged(width, height uint32)
	UsesOverlayWindow() bool
	OverlayWindow() uintptr
	Close() error
}

// CompositorListener receives the failures a compositor cannot recover from
// on its own. Both are delivered on the render thread.
type CompositorListener interface {
	DeviceLost()
	CompositingFailed(err error)
}
