package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// VulkanClip converts OpenGL style clip space (y up, z in [-1,1]) into the
// Vulkan one (y down, z in [0,1]).
var VulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// ScreenProjection builds a perspective projection with a 60 degree field of
// view, pre-multiplied with a screen-to-world matrix so that pixel (x, y) at
// z = 0 lands exactly on output pixel (x, y). Leaves room for 3D effects
// while keeping 2D content pixel-exact.
func ScreenProjection(width, height uint32) mgl32.Mat4 {
	fovY := float32(gomath.Tan(float64(mgl32.DegToRad(60)) / 2))
	const aspect = float32(1.0)
	const zNear = float32(0.1)
	const zFar = float32(100.0)

	yMax := zNear * fovY
	yMin := -yMax
	xMin := yMin * aspect
	xMax := yMax * aspect

	projection := mgl32.Frustum(xMin, xMax, yMin, yMax, zNear, zFar)

	scaleFactor := 1.1 * fovY / yMax
	screen := mgl32.Translate3D(xMin*scaleFactor, yMax*scaleFactor, -1.1).
		Mul4(mgl32.Scale3D(
			(xMax-xMin)*scaleFactor/float32(width),
			-(yMax-yMin)*scaleFactor/float32(height),
			0.001))

	return VulkanClip.Mul4(projection).Mul4(screen)
}

// ScreenOrtho maps output pixels straight to Vulkan clip space, y down.
func ScreenOrtho(width, height uint32) mgl32.Mat4 {
	return VulkanClip.Mul4(mgl32.Ortho(0, float32(width), float32(height), 0, -1, 1))
}
