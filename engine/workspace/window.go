package workspace

import (
	"image"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

// Window is a client surface placed on the output. All fields are guarded by
// the workspace lock.
type Window struct {
	id       uuid.UUID
	geometry math.Rect

	opacity    float32
	brightness float32
	saturation float32
	smooth     bool

	// Content committed since the last paint, uploaded on the next one.
	pending *renderer.ShmBuffer
	// The content the texture was last uploaded from.
	committed *renderer.ShmBuffer
	hasAlpha  bool
	texture   renderer.Texture

	// Content faded out while the new content fades in.
	previous          renderer.Texture
	crossFadeProgress float32

	shadow        image.Image
	shadowTexture renderer.Texture
	shadowOffset  int32
}

func newWindow(geometry math.Rect) *Window {
	return &Window{
		geometry:   geometry,
		opacity:    1,
		brightness: 1,
		saturation: 1,
	}
}

func (w *Window) ID() uuid.UUID { return w.id }

// opaque reports whether the window hides everything below it.
func (w *Window) opaque() bool {
	return w.texture != nil && !w.hasAlpha && w.opacity >= 1 && w.previous == nil
}

// shadowRect is where the shadow image lands, offset down and right.
func (w *Window) shadowRect() math.Rect {
	if w.shadow == nil {
		return math.Rect{}
	}
	b := w.shadow.Bounds()
	return math.NewRect(w.geometry.X+w.shadowOffset, w.geometry.Y+w.shadowOffset, int32(b.Dx()), int32(b.Dy()))
}

// visibleRect is the screen area the window paints to.
func (w *Window) visibleRect() math.Rect {
	return w.geometry.United(w.shadowRect())
}

func (w *Window) quads(rects []math.Rect) renderer.Quads {
	return renderer.Quads{
		Texture:           w.texture,
		Previous:          w.previous,
		CrossFadeProgress: w.crossFadeProgress,
		OriginX:           w.geometry.X,
		OriginY:           w.geometry.Y,
		Rects:             rects,
		Opacity:           w.opacity,
		Brightness:        w.brightness,
		Saturation:        w.saturation,
		Blend:             w.hasAlpha || w.opacity < 1,
		Smooth:            w.smooth,
	}
}

func (w *Window) release() {
	for _, t := range []renderer.Texture{w.texture, w.previous, w.shadowTexture} {
		if t != nil {
			t.Close()
		}
	}
	w.texture, w.previous, w.shadowTexture = nil, nil, nil
}
