package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

var testOutput = math.NewRect(0, 0, 1280, 720)

// clearScreen paints the whole output black.
func clearScreen(canvas renderer.Canvas, _, _ math.Region) (math.Region, math.Region) {
	full := math.NewRegion(testOutput)
	canvas.PaintBackground(full)
	return full, full
}

// paintRegion fills region and reports it as the update.
func paintRegion(region math.Region) paintFunc {
	return func(canvas renderer.Canvas, _, _ math.Region) (math.Region, math.Region) {
		canvas.PaintBackground(region)
		return region, region
	}
}

func idle(renderer.Canvas, math.Region, math.Region) (math.Region, math.Region) {
	return math.Region{}, math.Region{}
}

func TestPaintClearsAndPresents(t *testing.T) {
	f := newFakeDriver()
	scene, backend := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))

	if got := len(f.swapchainImages); got != 2 {
		t.Fatalf("expected a double buffered swapchain, got %d images", got)
	}
	if len(f.submits) != 1 || len(f.presents) != 1 {
		t.Fatalf("expected one submit and one present, got %d and %d", len(f.submits), len(f.presents))
	}
	submit := f.submits[0]
	if len(submit.waits) != 1 || submit.waits[0] != scene.frames[0].acquisitionSemaphore.Handle() {
		t.Fatal("the submission must wait for the image acquisition")
	}
	if submit.fence != scene.paintPasses[0].fence.Handle() {
		t.Fatal("the submission must signal the paint pass fence")
	}
	present := f.presents[0]
	if len(present.waits) != 1 || present.waits[0] != submit.signals[0] {
		t.Fatal("the present must wait for the rendering to finish")
	}
	if len(present.damage) != 1 || present.damage[0].Extent.Width != 1280 || present.damage[0].Extent.Height != 720 {
		t.Fatalf("unexpected present damage %v", present.damage)
	}

	if len(f.renderPasses) != 1 || f.renderPasses[0] != scene.renderPasses.Get(RenderPassClear).Handle() {
		t.Fatal("a full clear must use the clear render pass")
	}
	if len(f.draws) != 0 {
		t.Fatal("a full clear must not draw")
	}
	last := f.barriers[len(f.barriers)-1].images[0]
	if last.OldLayout != vk.ImageLayoutColorAttachmentOptimal || last.NewLayout != vk.ImageLayoutPresentSrc {
		t.Fatalf("unexpected final transition %d -> %d", last.OldLayout, last.NewLayout)
	}
	if backend.shown != 1 {
		t.Fatalf("the overlay should be shown once, got %d", backend.shown)
	}
	if scene.frameIndex != 1 || scene.paintPassIndex != 1 {
		t.Fatalf("frame and paint pass should advance, got %d and %d", scene.frameIndex, scene.paintPassIndex)
	}
}

func TestPaintPartialBackgroundDraws(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	region := math.NewRegion(math.NewRect(0, 0, 100, 100), math.NewRect(200, 200, 50, 50))
	scene.Paint(region, paintRegion(region))

	if len(f.draws) != 1 {
		t.Fatalf("expected one draw, got %d", len(f.draws))
	}
	draw := f.draws[0]
	if draw.indexCount != 2*indicesPerQuad {
		t.Fatalf("expected two quads, got %d indices", draw.indexCount)
	}
	if draw.scissor.Offset.X != 0 || draw.scissor.Extent.Width != 250 || draw.scissor.Extent.Height != 250 {
		t.Fatalf("unexpected scissor %+v", draw.scissor)
	}
	// Undefined contents are cleared before drawing.
	if f.renderPasses[0] != scene.renderPasses.Get(RenderPassClear).Handle() {
		t.Fatal("a fresh image must be cleared")
	}
	// Index data is staged through the upload ring into device local memory.
	if len(f.bufferCopies) != 1 {
		t.Fatalf("expected the index buffer upload, got %d copies", len(f.bufferCopies))
	}
	if len(f.submits) != 1 || len(f.submits[0].buffers) != 2 {
		t.Fatal("the setup and main command buffers must be submitted together")
	}
	if f.submits[0].buffers[0] != scene.paintPasses[0].setupCommandBuffer.Handle {
		t.Fatal("the setup command buffer must run first")
	}
}

func TestPaintRepairsOlderBackBuffer(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	changed := math.NewRegion(math.NewRect(10, 10, 20, 20))
	scene.Paint(changed, paintRegion(changed))

	var gotRepaint, gotDamage math.Region
	damage := math.NewRegion(math.NewRect(500, 500, 5, 5))
	scene.Paint(damage, paintFunc(func(canvas renderer.Canvas, d, repaint math.Region) (math.Region, math.Region) {
		gotDamage, gotRepaint = d, repaint
		return math.Region{}, math.Region{}
	}))

	if scene.bufferAge != 2 {
		t.Fatalf("expected buffer age 2, got %d", scene.bufferAge)
	}
	if !gotDamage.Equal(damage) {
		t.Fatalf("damage should be passed through, got %v", gotDamage)
	}
	if !gotRepaint.Equal(changed) {
		t.Fatalf("the repaint should cover what changed since the image was shown, got %v", gotRepaint)
	}
}

func TestPaintWithoutUpdateKeepsTheImage(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.Paint(math.Region{}, paintFunc(idle))
	scene.Paint(math.Region{}, paintFunc(idle))

	if f.acquires != 1 {
		t.Fatalf("the acquired image should be kept, got %d acquisitions", f.acquires)
	}
	if len(f.submits) != 0 || len(f.presents) != 0 {
		t.Fatal("nothing should be submitted or presented")
	}

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if len(f.presents) != 1 || f.acquires != 1 {
		t.Fatal("the held image should be presented")
	}
	waits := f.submits[0].waits
	if len(waits) != 1 || waits[0] != scene.frames[0].acquisitionSemaphore.Handle() {
		t.Fatal("the acquisition semaphore must be waited on exactly once")
	}
}

func TestPaintAcquireOutOfDate(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	f.acquireResults = []vk.Result{vk.ErrorOutOfDate}
	called := false
	if ns := scene.Paint(math.Region{}, paintFunc(func(renderer.Canvas, math.Region, math.Region) (math.Region, math.Region) {
		called = true
		return math.Region{}, math.Region{}
	})); ns != 0 {
		t.Fatal("an aborted frame reports no paint time")
	}
	if called {
		t.Fatal("the painter must not run without an image")
	}
	if !scene.FullRepaintPending() {
		t.Fatal("an out of date swapchain must schedule a full repaint")
	}

	var got math.Region
	scene.Paint(math.NewRegion(math.NewRect(0, 0, 1, 1)), paintFunc(func(_ renderer.Canvas, damage, _ math.Region) (math.Region, math.Region) {
		got = damage
		return math.Region{}, math.Region{}
	}))
	if !got.Equal(math.NewRegion(testOutput)) {
		t.Fatalf("expected a full repaint, got %v", got)
	}
}

func TestPaintAcquireSuboptimalRecreates(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	f.acquireResults = []vk.Result{vk.Suboptimal}
	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if len(f.presents) != 1 {
		t.Fatal("a suboptimal image is still presented")
	}

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if f.created["swapchain"] != 2 || f.live("swapchain") != 1 {
		t.Fatalf("the swapchain should be replaced, created %d live %d", f.created["swapchain"], f.live("swapchain"))
	}
	if f.swapchainInfo.OldSwapchain == nil {
		t.Fatal("the old swapchain should be handed to the driver")
	}
}

func TestPaintPresentOutOfDateCarriesSemaphore(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	f.presentResults = []vk.Result{vk.ErrorOutOfDate}
	if ns := scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen)); ns != 0 {
		t.Fatal("a failed present aborts the frame")
	}
	renderDone := f.submits[0].signals[0]

	var got math.Region
	scene.Paint(math.Region{}, paintFunc(func(canvas renderer.Canvas, damage, repaint math.Region) (math.Region, math.Region) {
		got = damage
		return clearScreen(canvas, damage, repaint)
	}))

	if f.created["swapchain"] != 2 {
		t.Fatal("an out of date present must recreate the swapchain")
	}
	if !got.Equal(math.NewRegion(testOutput)) {
		t.Fatalf("expected a full repaint, got %v", got)
	}
	waits := f.submits[1].waits
	found := false
	for _, w := range waits {
		found = found || w == renderDone
	}
	if !found {
		t.Fatal("the unconsumed render semaphore must be waited on by the next submission")
	}
}

func TestPaintDeviceLost(t *testing.T) {
	f := newFakeDriver()
	listener := &fakeListener{}
	scene, _ := newTestScene(t, f, VulkanSceneOptions{Listener: listener})
	defer scene.Close()

	f.acquireResults = []vk.Result{vk.ErrorDeviceLost}
	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if listener.deviceLost != 1 {
		t.Fatalf("the listener should be told once, got %d", listener.deviceLost)
	}

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if f.acquires != 1 || len(f.submits) != 0 {
		t.Fatal("a lost scene must stop painting")
	}
}

func TestPaintFenceWaitFailure(t *testing.T) {
	tests := []struct {
		name       string
		fence      func(scene *VulkanScene) vk.Fence
		result     vk.Result
		deviceLost int
		failures   int
	}{
		{"acquisition fence lost", func(s *VulkanScene) vk.Fence { return s.frames[0].acquisitionFence.Handle() }, vk.ErrorDeviceLost, 1, 0},
		{"paint pass fence lost", func(s *VulkanScene) vk.Fence { return s.paintPasses[0].fence.Handle() }, vk.ErrorDeviceLost, 1, 0},
		{"paint pass fence out of memory", func(s *VulkanScene) vk.Fence { return s.paintPasses[0].fence.Handle() }, vk.ErrorOutOfDeviceMemory, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDriver()
			listener := &fakeListener{}
			scene, _ := newTestScene(t, f, VulkanSceneOptions{Listener: listener})
			defer scene.Close()

			// Two frames put both the acquisition fence of frame 0 and the
			// fence of pass 0 in flight.
			scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
			scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
			submits := len(f.submits)

			f.waitResults[tt.fence(scene)] = tt.result
			if elapsed := scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen)); elapsed != 0 {
				t.Fatal("an aborted frame must report no paint time")
			}
			if listener.deviceLost != tt.deviceLost || len(listener.failures) != tt.failures {
				t.Fatalf("expected %d device lost and %d failures, got %d and %d",
					tt.deviceLost, tt.failures, listener.deviceLost, len(listener.failures))
			}
			if len(f.submits) != submits {
				t.Fatal("nothing may be submitted after a failed fence wait")
			}
		})
	}
}

func TestPaintSubmitFailureIsFatal(t *testing.T) {
	f := newFakeDriver()
	listener := &fakeListener{}
	scene, _ := newTestScene(t, f, VulkanSceneOptions{Listener: listener})
	defer scene.Close()

	f.submitResult = vk.ErrorOutOfHostMemory
	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))

	if len(listener.failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(listener.failures))
	}
	if !errors.Is(listener.failures[0], core.ErrFatal) {
		t.Fatalf("the failure should be fatal: %v", listener.failures[0])
	}
	if len(f.presents) != 0 {
		t.Fatal("nothing may be presented after a failed submission")
	}
}

func TestCheckResult(t *testing.T) {
	f := newFakeDriver()
	listener := &fakeListener{}
	scene, _ := newTestScene(t, f, VulkanSceneOptions{Listener: listener})
	defer scene.Close()

	if !scene.checkResult(vk.Success, "vkQueueSubmit") {
		t.Fatal("success must pass")
	}
	if scene.checkResult(vk.ErrorDeviceLost, "vkQueueSubmit") {
		t.Fatal("device loss must fail")
	}
	if listener.deviceLost != 1 || len(listener.failures) != 0 {
		t.Fatal("device loss must only be reported as such")
	}
	if scene.checkResult(vk.ErrorOutOfDeviceMemory, "vkQueueSubmit") {
		t.Fatal("an error must fail")
	}
	if len(listener.failures) != 1 {
		t.Fatal("an error must be reported as a compositing failure")
	}
}

func TestPaintScreenGeometryChanged(t *testing.T) {
	f := newFakeDriver()
	scene, backend := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	scene.ScreenGeometryChanged(1920, 1080)
	if len(backend.geometry) != 1 || backend.geometry[0] != [2]uint32{1920, 1080} {
		t.Fatal("the backend should follow the new geometry")
	}

	f.caps.CurrentExtent = vk.Extent2D{Width: 1920, Height: 1080}
	scene.Paint(math.NewRegion(testOutput), paintFunc(idle))
	if w, h := scene.Size(); w != 1920 || h != 1080 {
		t.Fatalf("expected 1920x1080, got %dx%d", w, h)
	}
}

func TestPaintSeparatePresentQueue(t *testing.T) {
	f := newFakeDriver()
	f.separatePresentFamily()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	if !scene.Device().SeparatePresentQueue() {
		t.Fatal("expected a separate present queue")
	}

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))

	graphics := f.submitsOn(0)
	present := f.submitsOn(1)
	if len(graphics) != 1 || len(present) != 1 {
		t.Fatalf("expected a graphics and an ownership submit, got %d and %d", len(graphics), len(present))
	}
	if present[0].waits[0] != graphics[0].signals[0] {
		t.Fatal("the ownership acquire must wait for rendering")
	}
	if f.presents[0].waits[0] != present[0].signals[0] {
		t.Fatal("the present must wait for the ownership acquire")
	}
	if f.presents[0].queue != f.queues[1] {
		t.Fatal("the present must go to the present queue")
	}

	release := f.barriers[len(f.barriers)-2].images[0]
	if release.SrcQueueFamilyIndex != 0 || release.DstQueueFamilyIndex != 1 {
		t.Fatalf("the rendered image must be released to the present family, got %d -> %d",
			release.SrcQueueFamilyIndex, release.DstQueueFamilyIndex)
	}

	// The third frame renders into an image that was presented before and
	// must take it back from the present family first.
	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	changed := math.NewRegion(math.NewRect(0, 0, 64, 64))
	scene.Paint(changed, paintRegion(changed))

	graphics = f.submitsOn(0)
	if len(graphics) != 3 {
		t.Fatalf("expected three graphics submits, got %d", len(graphics))
	}
	releaseSemaphore := scene.frames[0].releaseOwnershipSemaphore.Handle()
	if len(graphics[2].waits) != 1 || graphics[2].waits[0] != releaseSemaphore {
		t.Fatal("rendering must wait for the ownership release")
	}

	acquired := false
	for _, b := range f.barriers {
		for _, img := range b.images {
			if img.OldLayout == vk.ImageLayoutPresentSrc && img.SrcQueueFamilyIndex == 1 && img.DstQueueFamilyIndex == 0 {
				acquired = true
			}
		}
	}
	if !acquired {
		t.Fatal("the graphics queue must acquire the presented image")
	}
	if f.renderPasses[2] != scene.renderPasses.Get(RenderPassLoad).Handle() {
		t.Fatal("an image with valid contents must be loaded")
	}
}

func TestPaintTransitionRenderPass(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	changed := math.NewRegion(math.NewRect(0, 0, 64, 64))
	scene.Paint(changed, paintRegion(changed))

	if f.renderPasses[2] != scene.renderPasses.Get(RenderPassTransition).Handle() {
		t.Fatal("a presented image must be transitioned back by the render pass")
	}
}

func TestPaintRetiresPassesAndReleasesResources(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})

	var texture renderer.Texture
	scene.Paint(math.NewRegion(testOutput), paintFunc(func(canvas renderer.Canvas, _, _ math.Region) (math.Region, math.Region) {
		var err error
		texture, err = canvas.UploadShm(renderer.ShmBuffer{
			Data:   make([]byte, 16*16*4),
			Width:  16,
			Height: 16,
			Stride: 64,
			Format: renderer.ShmFormatARGB8888,
		}, nil)
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		canvas.DrawQuads(renderer.Quads{
			Texture:    texture,
			Rects:      []math.Rect{math.NewRect(0, 0, 16, 16)},
			Opacity:    1,
			Brightness: 1,
			Saturation: 1,
		})
		full := math.NewRegion(testOutput)
		return full, full
	}))
	texture.Close()

	if f.live("image") != 1 {
		t.Fatal("the pass in flight must keep the texture alive")
	}

	scene.Paint(math.NewRegion(testOutput), paintFunc(clearScreen))
	if f.live("image") != 1 {
		t.Fatal("the texture is still used by the first pass")
	}
	scene.Paint(math.Region{}, paintFunc(idle))
	if f.live("image") != 0 {
		t.Fatal("retiring the first pass must release the texture")
	}

	scene.Close()
	if leaks := f.leaks(); len(leaks) != 0 {
		t.Fatalf("objects leaked: %v", leaks)
	}
}
