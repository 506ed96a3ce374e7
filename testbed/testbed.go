/*
Demo clients that feed shared memory buffers into the workspace to exercise
the compositor.
*/
package testbed

import (
	"image"
	"image/color"
	"path/filepath"

	gomath "math"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkcompositor/engine/assets"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
	"github.com/spaghettifunk/vkcompositor/engine/workspace"
)

const shadowSize = 16

type client struct {
	id     uuid.UUID
	width  uint32
	height uint32
	format renderer.ShmFormat
	paint  func(buf []byte, stride uint32, t float64)
}

type TestBed struct {
	clients []*client
	fader   uuid.UUID
	elapsed float64
	frames  int
	shadow  string
}

// NewTestBed creates the demo. shadow is an optional image file placed below
// every window.
func NewTestBed(shadow string) *TestBed {
	return &TestBed{shadow: shadow}
}

func (tb *TestBed) Initialize(ws *workspace.Workspace, am *assets.AssetManager) error {
	var shadowImg image.Image
	if tb.shadow != "" {
		img, err := am.LoadImage(filepath.Clean(tb.shadow))
		if err != nil {
			core.LogWarn("running without window shadows: %s", err)
		} else {
			shadowImg = img
		}
	}

	specs := []struct {
		rect   math.Rect
		format renderer.ShmFormat
		paint  func(buf []byte, stride uint32, t float64)
	}{
		{math.NewRect(40, 40, 480, 320), renderer.ShmFormatXRGB8888, paintGradient},
		{math.NewRect(360, 200, 400, 300), renderer.ShmFormatARGB8888, paintRings},
		{math.NewRect(700, 80, 256, 256), renderer.ShmFormatXRGB8888, paintChecker},
	}
	for _, s := range specs {
		w := ws.AddWindow(s.rect)
		tb.clients = append(tb.clients, &client{
			id:     w.ID(),
			width:  uint32(s.rect.Width),
			height: uint32(s.rect.Height),
			format: s.format,
			paint:  s.paint,
		})
		if shadowImg == nil {
			continue
		}
		if err := ws.SetShadow(w.ID(), shadowImg, shadowSize); err != nil {
			return err
		}
	}
	tb.fader = tb.clients[2].id
	ws.SetSmooth(tb.clients[1].id, true)
	for _, c := range tb.clients {
		if err := tb.commit(ws, c); err != nil {
			return err
		}
	}
	return nil
}

func (tb *TestBed) commit(ws *workspace.Workspace, c *client) error {
	stride := c.width * 4
	buf := make([]byte, stride*c.height)
	c.paint(buf, stride, tb.elapsed)
	return ws.Commit(c.id, renderer.ShmBuffer{
		Data:   buf,
		Width:  c.width,
		Height: c.height,
		Stride: stride,
		Format: c.format,
	}, math.Region{})
}

func (tb *TestBed) Update(ws *workspace.Workspace, deltaTime float64) error {
	tb.elapsed += deltaTime
	tb.frames++

	// The gradient scrolls every frame, damaging a band only.
	gradient := tb.clients[0]
	if err := tb.commit(ws, gradient); err != nil {
		return err
	}

	rings := tb.clients[1]
	opacity := float32(0.65 + 0.35*gomath.Sin(tb.elapsed))
	if err := ws.SetOpacity(rings.id, opacity); err != nil {
		return err
	}
	if err := ws.SetSaturation(rings.id, float32(0.5+0.5*gomath.Cos(tb.elapsed/2))); err != nil {
		return err
	}

	// Every two seconds the checker board fades to its inverted colors.
	phase := gomath.Mod(tb.elapsed, 2)
	if phase < deltaTime {
		if err := ws.StartCrossFade(tb.fader); err != nil {
			return err
		}
		if err := tb.commit(ws, tb.clients[2]); err != nil {
			return err
		}
	}
	return ws.SetCrossFadeProgress(tb.fader, float32(gomath.Min(phase, 1)))
}

func (tb *TestBed) Shutdown() error {
	core.LogInfo("testbed ran %d frames in %.1f s", tb.frames, tb.elapsed)
	return nil
}

func putXRGB(buf []byte, offset uint32, c color.RGBA) {
	buf[offset+0] = c.B
	buf[offset+1] = c.G
	buf[offset+2] = c.R
	buf[offset+3] = c.A
}

func paintGradient(buf []byte, stride uint32, t float64) {
	width, height := stride/4, uint32(len(buf))/stride
	shift := uint32(t * 60)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			putXRGB(buf, y*stride+4*x, color.RGBA{
				R: uint8((x + shift) * 255 / width),
				G: uint8(y * 255 / height),
				B: 160,
				A: 255,
			})
		}
	}
}

// paintRings writes premultiplied ARGB with transparent gaps.
func paintRings(buf []byte, stride uint32, _ float64) {
	width, height := stride/4, uint32(len(buf))/stride
	cx, cy := float64(width)/2, float64(height)/2
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			d := gomath.Hypot(float64(x)-cx, float64(y)-cy)
			var a uint8
			if int(d/12)%2 == 0 {
				a = 200
			}
			putXRGB(buf, y*stride+4*x, color.RGBA{R: a, G: a / 2, B: 0, A: a})
		}
	}
}

func paintChecker(buf []byte, stride uint32, t float64) {
	width, height := stride/4, uint32(len(buf))/stride
	invert := int(t/2)%2 == 1
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			on := (x/32+y/32)%2 == 0
			if invert {
				on = !on
			}
			v := uint8(40)
			if on {
				v = 220
			}
			putXRGB(buf, y*stride+4*x, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
}
