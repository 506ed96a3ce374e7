package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

func TestLookupShmFormat(t *testing.T) {
	tests := []struct {
		format   renderer.ShmFormat
		want     vk.Format
		bpp      uint32
		hasAlpha bool
		alpha    vk.ComponentSwizzle
	}{
		{renderer.ShmFormatARGB8888, vk.FormatB8g8r8a8Unorm, 4, true, vk.ComponentSwizzleA},
		{renderer.ShmFormatXRGB8888, vk.FormatB8g8r8a8Unorm, 4, false, vk.ComponentSwizzleOne},
		{renderer.ShmFormatRGB888, vk.FormatB8g8r8Unorm, 3, false, vk.ComponentSwizzleOne},
		{renderer.ShmFormatRGB565, vk.FormatR5g6b5UnormPack16, 2, false, vk.ComponentSwizzleOne},
		{renderer.ShmFormatRGBA4444, vk.FormatR4g4b4a4UnormPack16, 2, true, vk.ComponentSwizzleA},
		{renderer.ShmFormatXBGR2101010, vk.FormatA2b10g10r10UnormPack32, 4, false, vk.ComponentSwizzleOne},
	}
	for _, tt := range tests {
		info, err := LookupShmFormat(tt.format)
		if err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if info.Format != tt.want || info.BytesPerPixel != tt.bpp || info.HasAlpha != tt.hasAlpha {
			t.Fatalf("%s: unexpected format info %+v", tt.format, info)
		}
		if info.Swizzle.A != tt.alpha {
			t.Fatalf("%s: expected alpha swizzle %v, got %v", tt.format, tt.alpha, info.Swizzle.A)
		}
	}
}

func TestLookupShmFormatUnknown(t *testing.T) {
	_, err := LookupShmFormat(renderer.ShmFormat(0xdeadbeef))
	if !errors.Is(err, errUnsupportedShmFormat) {
		t.Fatalf("expected an unsupported format error, got %v", err)
	}
}

func TestSupportedShmFormats(t *testing.T) {
	formats := SupportedShmFormats()
	if len(formats) != len(shmFormats) {
		t.Fatalf("expected %d formats, got %d", len(shmFormats), len(formats))
	}
	for _, format := range formats {
		if _, err := LookupShmFormat(format); err != nil {
			t.Fatalf("listed format %s is not accepted", format)
		}
	}
}

func TestVulkanErrorClassification(t *testing.T) {
	tests := []struct {
		result vk.Result
		target error
	}{
		{vk.ErrorDeviceLost, core.ErrDeviceLost},
		{vk.ErrorSurfaceLost, core.ErrSurfaceLost},
		{vk.ErrorOutOfDate, core.ErrOutOfDate},
		{vk.ErrorOutOfDeviceMemory, core.ErrFatal},
	}
	for _, tt := range tests {
		err := errors.WithStack(NewVulkanError(tt.result, "vkQueueSubmit"))
		if !errors.Is(err, tt.target) {
			t.Fatalf("%s should match %v", err, tt.target)
		}
	}
	if errors.Is(NewVulkanError(vk.ErrorDeviceLost, "vkQueueSubmit"), core.ErrFatal) {
		t.Fatal("a lost device is recoverable")
	}
}
