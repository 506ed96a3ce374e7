package vulkan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
)

func newTestScene(t *testing.T, f *fakeDriver, options VulkanSceneOptions) (*VulkanScene, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{width: 1280, height: 720}
	if options.Shaders == nil {
		options.Shaders = &fakeShaders{}
	}
	scene, err := newVulkanSceneWithInstance(backend, options, &VulkanInstance{Driver: f}, f.newSurface())
	if err != nil {
		t.Fatalf("scene creation failed: %v", err)
	}
	return scene, backend
}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.ColorSpaceSrgbNonlinear
	tests := []struct {
		name      string
		supported []vk.SurfaceFormat
		want      vk.Format
	}{
		{"undefined accepts anything", []vk.SurfaceFormat{{Format: vk.FormatUndefined, ColorSpace: srgb}}, vk.FormatA2r10g10b10UnormPack32},
		{"first preference wins", []vk.SurfaceFormat{{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: srgb}, {Format: vk.FormatB8g8r8a8Unorm, ColorSpace: srgb}}, vk.FormatB8g8r8a8Unorm},
		{"ten bit preferred", []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: srgb}, {Format: vk.FormatA2b10g10r10UnormPack32, ColorSpace: srgb}}, vk.FormatA2b10g10r10UnormPack32},
		{"unknown falls back to the first", []vk.SurfaceFormat{{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: srgb}}, vk.FormatR16g16b16a16Sfloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chooseSurfaceFormat(tt.supported)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Format != tt.want {
				t.Fatalf("expected %s, got %s", FormatString(tt.want), FormatString(got.Format))
			}
		})
	}

	if _, err := chooseSurfaceFormat(nil); err == nil {
		t.Fatal("an empty format list must fail")
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeFifoRelaxed}
	tests := []struct {
		name      string
		supported []vk.PresentMode
		vsync     VSyncMode
		want      vk.PresentMode
		images    uint32
	}{
		{"off prefers immediate", all, VSyncOff, vk.PresentModeImmediate, 2},
		{"double prefers fifo", all, VSyncDouble, vk.PresentModeFifo, 2},
		{"triple prefers mailbox", all, VSyncTriple, vk.PresentModeMailbox, 3},
		{"triple without mailbox", []vk.PresentMode{vk.PresentModeFifo}, VSyncTriple, vk.PresentModeFifo, 2},
		{"off without immediate", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeFifoRelaxed}, VSyncOff, vk.PresentModeFifoRelaxed, 2},
		{"unknown vsync is triple", all, VSyncMode(42), vk.PresentModeMailbox, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, images, err := choosePresentMode(tt.supported, tt.vsync)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode != tt.want || images != tt.images {
				t.Fatalf("expected %s with %d images, got %s with %d",
					PresentModeString(tt.want), tt.images, PresentModeString(mode), images)
			}
		})
	}

	if _, _, err := choosePresentMode(nil, VSyncDouble); err == nil {
		t.Fatal("an empty mode list must fail")
	}
}

func TestSceneInitAndClose(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{VSync: VSyncDouble})

	if scene.InitFailed() {
		t.Fatal("scene should be valid")
	}
	if scene.SurfaceFormat() != vk.FormatB8g8r8a8Unorm {
		t.Fatalf("unexpected surface format %s", FormatString(scene.SurfaceFormat()))
	}
	if scene.PresentMode() != vk.PresentModeFifo {
		t.Fatalf("unexpected present mode %s", PresentModeString(scene.PresentMode()))
	}
	if scene.Device().SeparatePresentQueue() {
		t.Fatal("a single queue family must not use a separate present queue")
	}
	if !scene.Device().SupportsIncrementalPresent {
		t.Fatal("incremental present should be enabled")
	}
	if got := f.live("renderPass"); got != 3 {
		t.Fatalf("expected 3 render pass variants, got %d", got)
	}
	if got := f.live("sampler"); got != 2 {
		t.Fatalf("expected nearest and linear samplers, got %d", got)
	}
	if got := f.live("commandPool"); got != FramesInFlight {
		t.Fatalf("expected one command pool per paint pass, got %d", got)
	}
	if got := f.live("swapchain"); got != 0 {
		t.Fatal("the swapchain is created on the first paint")
	}

	if err := scene.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if leaks := f.leaks(); len(leaks) != 0 {
		t.Fatalf("objects leaked: %v", leaks)
	}
	if !scene.InitFailed() {
		t.Fatal("a closed scene must report itself unusable")
	}
}

func TestSceneInitFailureReleasesEverything(t *testing.T) {
	f := newFakeDriver()
	backend := &fakeBackend{width: 640, height: 480}
	shaders := &fakeShaders{missing: "crossfade.frag"}

	scene, err := newVulkanSceneWithInstance(backend, VulkanSceneOptions{Shaders: shaders}, &VulkanInstance{Driver: f}, f.newSurface())
	if err == nil {
		scene.Close()
		t.Fatal("a missing shader must fail scene creation")
	}
	if leaks := f.leaks(); len(leaks) != 0 {
		t.Fatalf("objects leaked: %v", leaks)
	}
}

func TestSceneInitWithoutUsableDevice(t *testing.T) {
	f := newFakeDriver()
	f.devices[0].extensions = nil

	backend := &fakeBackend{width: 640, height: 480}
	_, err := newVulkanSceneWithInstance(backend, VulkanSceneOptions{Shaders: &fakeShaders{}}, &VulkanInstance{Driver: f}, f.newSurface())
	if err == nil {
		t.Fatal("a device without VK_KHR_swapchain must be rejected")
	}
	if f.live("device") != 0 || f.live("instance") != 0 {
		t.Fatalf("objects leaked: %v", f.leaks())
	}
}

func TestScenePipelineCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "pipelines.bin")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := newFakeDriver()
	f.cacheData = []byte("fresh driver blob")
	scene, _ := newTestScene(t, f, VulkanSceneOptions{PipelineCachePath: path})

	if !bytes.Equal(f.cacheInitData, []byte("previous run")) {
		t.Fatalf("the cache was not seeded from disk: %q", f.cacheInitData)
	}
	scene.Close()

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("the cache was not saved: %v", err)
	}
	if !bytes.Equal(saved, f.cacheData) {
		t.Fatalf("unexpected cache contents %q", saved)
	}
}

func TestScenePipelineCacheMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipelines.bin")

	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{PipelineCachePath: path})
	if len(f.cacheInitData) != 0 {
		t.Fatal("a missing cache file must start with an empty cache")
	}
	scene.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("the cache should have been written along with its directory: %v", err)
	}
}
