package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

// ShmFormatInfo describes how a shared memory layout is sampled.
type ShmFormatInfo struct {
	Format        vk.Format
	Swizzle       vk.ComponentMapping
	BytesPerPixel uint32
	HasAlpha      bool
}

const (
	swzR = vk.ComponentSwizzleR
	swzG = vk.ComponentSwizzleG
	swzB = vk.ComponentSwizzleB
	swzA = vk.ComponentSwizzleA
	one  = vk.ComponentSwizzleOne
)

func swizzle(r, g, b, a vk.ComponentSwizzle) vk.ComponentMapping {
	return vk.ComponentMapping{R: r, G: g, B: b, A: a}
}

// The swizzle maps the channel a Vulkan format reads from each bit field back
// to the color it holds in the wl_shm layout. Layouts without alpha read
// alpha as one.
var shmFormats = map[renderer.ShmFormat]ShmFormatInfo{
	renderer.ShmFormatARGB8888: {vk.FormatB8g8r8a8Unorm, swizzle(swzR, swzG, swzB, swzA), 4, true},
	renderer.ShmFormatXRGB8888: {vk.FormatB8g8r8a8Unorm, swizzle(swzR, swzG, swzB, one), 4, false},
	renderer.ShmFormatABGR8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzR, swzG, swzB, swzA), 4, true},
	renderer.ShmFormatXBGR8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzR, swzG, swzB, one), 4, false},
	renderer.ShmFormatRGBA8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzA, swzB, swzG, swzR), 4, true},
	renderer.ShmFormatRGBX8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzA, swzB, swzG, one), 4, false},
	renderer.ShmFormatBGRA8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzG, swzB, swzA, swzR), 4, true},
	renderer.ShmFormatBGRX8888: {vk.FormatR8g8b8a8Unorm, swizzle(swzG, swzB, swzA, one), 4, false},

	renderer.ShmFormatRGB888: {vk.FormatB8g8r8Unorm, swizzle(swzR, swzG, swzB, one), 3, false},
	renderer.ShmFormatBGR888: {vk.FormatR8g8b8Unorm, swizzle(swzR, swzG, swzB, one), 3, false},

	renderer.ShmFormatRGB565: {vk.FormatR5g6b5UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},
	renderer.ShmFormatBGR565: {vk.FormatB5g6r5UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},

	renderer.ShmFormatARGB4444: {vk.FormatR4g4b4a4UnormPack16, swizzle(swzG, swzB, swzA, swzR), 2, true},
	renderer.ShmFormatXRGB4444: {vk.FormatR4g4b4a4UnormPack16, swizzle(swzG, swzB, swzA, one), 2, false},
	renderer.ShmFormatRGBA4444: {vk.FormatR4g4b4a4UnormPack16, swizzle(swzR, swzG, swzB, swzA), 2, true},
	renderer.ShmFormatRGBX4444: {vk.FormatR4g4b4a4UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},
	renderer.ShmFormatBGRA4444: {vk.FormatB4g4r4a4UnormPack16, swizzle(swzR, swzG, swzB, swzA), 2, true},
	renderer.ShmFormatBGRX4444: {vk.FormatB4g4r4a4UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},

	renderer.ShmFormatARGB1555: {vk.FormatA1r5g5b5UnormPack16, swizzle(swzR, swzG, swzB, swzA), 2, true},
	renderer.ShmFormatXRGB1555: {vk.FormatA1r5g5b5UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},
	renderer.ShmFormatRGBA5551: {vk.FormatR5g5b5a1UnormPack16, swizzle(swzR, swzG, swzB, swzA), 2, true},
	renderer.ShmFormatRGBX5551: {vk.FormatR5g5b5a1UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},
	renderer.ShmFormatBGRA5551: {vk.FormatB5g5r5a1UnormPack16, swizzle(swzR, swzG, swzB, swzA), 2, true},
	renderer.ShmFormatBGRX5551: {vk.FormatB5g5r5a1UnormPack16, swizzle(swzR, swzG, swzB, one), 2, false},

	renderer.ShmFormatARGB2101010: {vk.FormatA2r10g10b10UnormPack32, swizzle(swzR, swzG, swzB, swzA), 4, true},
	renderer.ShmFormatXRGB2101010: {vk.FormatA2r10g10b10UnormPack32, swizzle(swzR, swzG, swzB, one), 4, false},
	renderer.ShmFormatABGR2101010: {vk.FormatA2b10g10r10UnormPack32, swizzle(swzR, swzG, swzB, swzA), 4, true},
	renderer.ShmFormatXBGR2101010: {vk.FormatA2b10g10r10UnormPack32, swizzle(swzR, swzG, swzB, one), 4, false},
}

var errUnsupportedShmFormat = errors.New("unsupported shared memory format")

// LookupShmFormat returns the sampling description of format.
func LookupShmFormat(format renderer.ShmFormat) (ShmFormatInfo, error) {
	info, ok := shmFormats[format]
	if !ok {
		return ShmFormatInfo{}, errors.Wrapf(errUnsupportedShmFormat, "format %s (%#x)", format, uint32(format))
	}
	return info, nil
}

// SupportedShmFormats lists every format LookupShmFormat accepts.
func SupportedShmFormats() []renderer.ShmFormat {
	formats := make([]renderer.ShmFormat, 0, len(shmFormats))
	for format := range shmFormats {
		formats = append(formats, format)
	}
	return formats
}
