package workspace

import (
	"image"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

var ErrUnknownWindow = errors.New("unknown window")

/**
 * @brief The stack of client windows on the output, bottom to top. Clients
 * mutate it from any goroutine; the compositor paints it on the render
 * thread through PaintScreen.
 */
type Workspace struct {
	mu      sync.Mutex
	windows []*Window
	damage  math.Region
}

func New() *Workspace {
	return &Workspace{}
}

// AddWindow puts a new window on top of the stack. It has no content until
// the first Commit.
func (ws *Workspace) AddWindow(geometry math.Rect) *Window {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w := newWindow(geometry)
	w.id = core.IdentifierAquireNewID(w)
	ws.windows = append(ws.windows, w)
	return w
}

func (ws *Workspace) RemoveWindow(id uuid.UUID) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for i, w := range ws.windows {
		if w.id != id {
			continue
		}
		ws.damage = ws.damage.UnitedRect(w.visibleRect())
		w.release()
		ws.windows = append(ws.windows[:i], ws.windows[i+1:]...)
		return core.IdentifierReleaseID(id)
	}
	return errors.Wrapf(ErrUnknownWindow, "%s", id)
}

func (ws *Workspace) window(id uuid.UUID) (*Window, error) {
	for _, w := range ws.windows {
		if w.id == id {
			return w, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownWindow, "%s", id)
}

// update applies fn to the window and damages the area it covers before and
// after.
func (ws *Workspace) update(id uuid.UUID, fn func(w *Window)) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, err := ws.window(id)
	if err != nil {
		return err
	}
	ws.damage = ws.damage.UnitedRect(w.visibleRect())
	fn(w)
	ws.damage = ws.damage.UnitedRect(w.visibleRect())
	return nil
}

/**
 * @brief Attaches new content to the window. damage is in window coordinates;
 * an empty region damages the whole window.
 */
func (ws *Workspace) Commit(id uuid.UUID, buffer renderer.ShmBuffer, damage math.Region) error {
	ws.mu.Lock()
	w, err := ws.window(id)
	if err != nil {
		ws.mu.Unlock()
		return err
	}
	w.pending = &buffer
	screen := math.NewRegion(w.geometry)
	if !damage.IsEmpty() {
		screen = damage.Translated(w.geometry.X, w.geometry.Y).IntersectedRect(w.geometry)
	}
	ws.damage = ws.damage.United(screen)
	ws.mu.Unlock()

	// Listeners may call back into the workspace.
	bounds := screen.BoundingRect()
	ctx := core.EventContext{}
	ctx.Data.I32 = [4]int32{bounds.X, bounds.Y, bounds.Width, bounds.Height}
	core.EventFire(core.EVENT_CODE_DAMAGE, ws, ctx)
	return nil
}

func (ws *Workspace) Move(id uuid.UUID, x, y int32) error {
	return ws.update(id, func(w *Window) {
		w.geometry.X, w.geometry.Y = x, y
	})
}

func (ws *Workspace) Resize(id uuid.UUID, width, height int32) error {
	return ws.update(id, func(w *Window) {
		w.geometry.Width, w.geometry.Height = width, height
	})
}

func (ws *Workspace) SetOpacity(id uuid.UUID, opacity float32) error {
	return ws.update(id, func(w *Window) { w.opacity = math.Clamp(opacity, 0, 1) })
}

func (ws *Workspace) SetBrightness(id uuid.UUID, brightness float32) error {
	return ws.update(id, func(w *Window) { w.brightness = brightness })
}

func (ws *Workspace) SetSaturation(id uuid.UUID, saturation float32) error {
	return ws.update(id, func(w *Window) { w.saturation = math.Clamp(saturation, 0, 1) })
}

func (ws *Workspace) SetSmooth(id uuid.UUID, smooth bool) error {
	return ws.update(id, func(w *Window) { w.smooth = smooth })
}

// SetShadow places img below the window, shifted by offset pixels.
func (ws *Workspace) SetShadow(id uuid.UUID, img image.Image, offset int32) error {
	return ws.update(id, func(w *Window) {
		if w.shadowTexture != nil {
			w.shadowTexture.Close()
			w.shadowTexture = nil
		}
		w.shadow = img
		w.shadowOffset = offset
	})
}

// StartCrossFade keeps the current content to fade from. The next Commit
// brings the content faded to.
func (ws *Workspace) StartCrossFade(id uuid.UUID) error {
	return ws.update(id, func(w *Window) {
		if w.texture == nil {
			return
		}
		if w.previous != nil {
			w.previous.Close()
		}
		w.previous, w.texture = w.texture, nil
		w.crossFadeProgress = 0
	})
}

// SetCrossFadeProgress moves the fade along. At 1 the old content is
// dropped.
func (ws *Workspace) SetCrossFadeProgress(id uuid.UUID, progress float32) error {
	return ws.update(id, func(w *Window) {
		w.crossFadeProgress = math.Clamp(progress, 0, 1)
		if w.crossFadeProgress >= 1 && w.previous != nil {
			w.previous.Close()
			w.previous = nil
		}
	})
}

// Windows returns the ids bottom to top.
func (ws *Workspace) Windows() []uuid.UUID {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ids := make([]uuid.UUID, len(ws.windows))
	for i, w := range ws.windows {
		ids[i] = w.id
	}
	return ids
}

// TakeDamage returns the screen damage accumulated since the last call.
func (ws *Workspace) TakeDamage() math.Region {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	damage := ws.damage
	ws.damage = math.Region{}
	return damage
}

/**
 * @brief Drops every GPU texture. Windows keep their last content and upload
 * it again on the next paint. Called before the compositor goes away.
 */
func (ws *Workspace) ReleaseTextures() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, w := range ws.windows {
		if w.pending == nil {
			w.pending = w.committed
		}
		w.release()
	}
}

func (ws *Workspace) Close() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, w := range ws.windows {
		w.release()
		_ = core.IdentifierReleaseID(w.id)
	}
	ws.windows = nil
}

func (ws *Workspace) uploadPending(canvas renderer.Canvas) {
	for _, w := range ws.windows {
		if w.pending != nil {
			texture, err := canvas.UploadShm(*w.pending, w.texture)
			if err != nil {
				core.LogWarn("dropping content of window %s: %s", w.id, err)
			} else {
				if w.texture != nil && texture != w.texture {
					w.texture.Close()
				}
				w.texture = texture
				w.hasAlpha = w.pending.Format.HasAlpha()
				w.committed = w.pending
			}
			w.pending = nil
		}
		if w.shadow != nil && w.shadowTexture == nil {
			texture, err := canvas.UploadImage(w.shadow)
			if err != nil {
				core.LogWarn("dropping shadow of window %s: %s", w.id, err)
				w.shadow = nil
				continue
			}
			w.shadowTexture = texture
		}
	}
}

/**
 * @brief Paints the damaged and repaint areas: background where no opaque
 * window covers the output, then every window bottom to top.
 */
func (ws *Workspace) PaintScreen(canvas renderer.Canvas, damage, repaint math.Region) (math.Region, math.Region) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	width, height := canvas.Size()
	output := math.NewRect(0, 0, int32(width), int32(height))

	ws.uploadPending(canvas)

	update := damage.IntersectedRect(output)
	paint := update.United(repaint).IntersectedRect(output)
	if paint.IsEmpty() {
		return update, paint
	}

	background := paint
	for _, w := range ws.windows {
		if w.opaque() {
			background = background.SubtractedRect(w.geometry)
		}
	}
	canvas.PaintBackground(background)

	for _, w := range ws.windows {
		if w.shadowTexture != nil {
			sr := w.shadowRect()
			rects := paint.IntersectedRect(sr).SubtractedRect(w.geometry).Rects()
			if len(rects) > 0 {
				canvas.DrawQuads(renderer.Quads{
					Texture:    w.shadowTexture,
					OriginX:    sr.X,
					OriginY:    sr.Y,
					Rects:      rects,
					Opacity:    w.opacity,
					Brightness: 1,
					Saturation: 1,
					Blend:      true,
					Smooth:     true,
				})
			}
		}
		if w.texture == nil {
			continue
		}
		rects := paint.IntersectedRect(w.geometry).Rects()
		if len(rects) == 0 {
			continue
		}
		canvas.DrawQuads(w.quads(rects))
	}
	return update, paint
}
