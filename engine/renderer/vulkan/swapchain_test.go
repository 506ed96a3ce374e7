package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/math"
)

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name      string
		preferred uint32
		min, max  uint32
		want      uint32
	}{
		{"preferred within bounds", 2, 2, 4, 2},
		{"raised to the minimum", 2, 3, 4, 3},
		{"capped at the maximum", 3, 2, 2, 2},
		{"no maximum", 3, 2, 0, 3},
		{"mailbox within bounds", 3, 2, 4, 3},
	}
	for _, tt := range tests {
		caps := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := chooseImageCount(tt.preferred, &caps); got != tt.want {
			t.Fatalf("%s: expected %d images, got %d", tt.name, tt.want, got)
		}
	}
}

func TestChooseCompositeAlpha(t *testing.T) {
	tests := []struct {
		supported vk.CompositeAlphaFlagBits
		want      vk.CompositeAlphaFlagBits
	}{
		{vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit | vk.CompositeAlphaPreMultipliedBit | vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaOpaqueBit},
		{vk.CompositeAlphaInheritBit | vk.CompositeAlphaPreMultipliedBit | vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaInheritBit},
		{vk.CompositeAlphaPreMultipliedBit | vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaPreMultipliedBit},
		{vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaPostMultipliedBit},
		{0, vk.CompositeAlphaOpaqueBit},
	}
	for _, tt := range tests {
		if got := chooseCompositeAlpha(vk.CompositeAlphaFlags(tt.supported)); got != tt.want {
			t.Fatalf("supported %#x: expected %#x, got %#x", tt.supported, tt.want, got)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 1280, Height: 720},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	if got := chooseExtent(800, 600, &caps); got.Width != 1280 || got.Height != 720 {
		t.Fatalf("the current extent of the surface must win, got %dx%d", got.Width, got.Height)
	}

	caps.CurrentExtent = vk.Extent2D{Width: ^uint32(0), Height: ^uint32(0)}
	if got := chooseExtent(8000, 10, &caps); got.Width != 4096 || got.Height != 64 {
		t.Fatalf("the window size must be clamped to the surface limits, got %dx%d", got.Width, got.Height)
	}
}

func TestSwapchainCreateUsesSurfaceCapabilities(t *testing.T) {
	f := newFakeDriver()
	f.caps.MinImageCount = 2
	f.caps.MaxImageCount = 2
	f.caps.SupportedCompositeAlpha = vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit | vk.CompositeAlphaPostMultipliedBit)
	scene, _ := newTestScene(t, f, VulkanSceneOptions{VSync: VSyncTriple})
	defer scene.Close()

	if res := scene.swapchain.Create(1280, 720); res != vk.Success {
		t.Fatalf("swapchain creation failed: %s", VulkanResultString(res, false))
	}
	if f.swapchainInfo.MinImageCount != 2 {
		t.Fatalf("the image count must be capped by the surface, got %d", f.swapchainInfo.MinImageCount)
	}
	if f.swapchainInfo.CompositeAlpha != vk.CompositeAlphaInheritBit {
		t.Fatalf("expected inherited composite alpha, got %#x", f.swapchainInfo.CompositeAlpha)
	}
	if scene.swapchain.ImageCount() != 2 || !scene.swapchain.IsValid() {
		t.Fatal("the swapchain must hold the images of the driver")
	}
}

func newDamageTestSwapchain() *VulkanSwapchain {
	s := NewVulkanSwapchain(nil, nil, VulkanSwapchainConfig{})
	s.extent = vk.Extent2D{Width: 1280, Height: 720}
	return s
}

func TestAccumulatedDamageHistory(t *testing.T) {
	s := newDamageTestSwapchain()
	full := math.NewRegion(testOutput)

	s.AddToDamageHistory(math.NewRegion(math.NewRect(0, 0, 10, 10)))
	s.AddToDamageHistory(math.NewRegion(math.NewRect(20, 0, 10, 10)))

	tests := []struct {
		age  uint32
		want math.Region
	}{
		{0, full},
		{1, math.Region{}},
		{2, math.NewRegion(math.NewRect(20, 0, 10, 10))},
		{3, math.NewRegion(math.NewRect(0, 0, 10, 10), math.NewRect(20, 0, 10, 10))},
		{4, full},
		{maxDamageHistory + 1, full},
	}
	for _, tt := range tests {
		if got := s.AccumulatedDamageHistory(tt.age); !got.Equal(tt.want) {
			t.Fatalf("age %d: expected %s, got %s", tt.age, tt.want, got)
		}
	}
}

func TestDamageHistoryIsBounded(t *testing.T) {
	s := newDamageTestSwapchain()
	for i := int32(0); i < maxDamageHistory+2; i++ {
		s.AddToDamageHistory(math.NewRegion(math.NewRect(i*10, 0, 10, 10)))
	}
	if got := s.damageHistory.Len(); got != maxDamageHistory {
		t.Fatalf("expected %d entries, got %d", maxDamageHistory, got)
	}

	// The oldest two entries were dropped; age 10 reaches back nine presents.
	want := math.NewRegion(math.NewRect(30, 0, 90, 10))
	if got := s.AccumulatedDamageHistory(maxDamageHistory); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := s.AccumulatedDamageHistory(maxDamageHistory + 1); !got.Equal(math.NewRegion(testOutput)) {
		t.Fatalf("an age beyond the history must repaint everything, got %s", got)
	}
}

func TestSwapchainCreateClearsDamageHistory(t *testing.T) {
	f := newFakeDriver()
	scene, _ := newTestScene(t, f, VulkanSceneOptions{})
	defer scene.Close()

	scene.swapchain.AddToDamageHistory(math.NewRegion(math.NewRect(0, 0, 10, 10)))
	if res := scene.swapchain.Create(1280, 720); res != vk.Success {
		t.Fatalf("swapchain creation failed: %s", VulkanResultString(res, false))
	}
	if scene.swapchain.damageHistory.Len() != 0 {
		t.Fatal("a new swapchain starts without history")
	}
	if !scene.swapchain.AccumulatedDamageHistory(2).Equal(math.NewRegion(testOutput)) {
		t.Fatal("an old buffer age after recreation must repaint everything")
	}
}
