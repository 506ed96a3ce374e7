package vulkan

import (
	"image"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
	"golang.org/x/image/draw"
)

var identitySwizzle = swizzle(vk.ComponentSwizzleIdentity, vk.ComponentSwizzleIdentity, vk.ComponentSwizzleIdentity, vk.ComponentSwizzleIdentity)

// formatSampleable reports whether optimally tiled images of format can be
// sampled on the selected device.
func (s *VulkanScene) formatSampleable(format vk.Format) bool {
	props := s.instance.Driver.GetPhysicalDeviceFormatProperties(s.device.PhysicalDevice, format)
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit) != 0
}

// createTexture creates a device local image that can be written by transfers
// and sampled, with its memory and a view applying the format swizzle.
func (s *VulkanScene) createTexture(width, height uint32, info ShmFormatInfo) (*VulkanTexture, error) {
	img, res := NewVulkanImage(s.device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        info.Format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	})
	if res != vk.Success {
		return nil, resultError(res, "vkCreateImage")
	}

	memory, err := s.allocator.AllocateImageMemory(img, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0)
	if err != nil {
		img.Close()
		return nil, errors.Wrapf(err, "texture memory for %dx%d %s", width, height, FormatString(info.Format))
	}

	view, res := NewVulkanImageView(s.device, &vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img.Handle(),
		ViewType:         vk.ImageViewType2d,
		Format:           info.Format,
		Components:       info.Swizzle,
		SubresourceRange: colorSubresourceRange,
	})
	if res != vk.Success {
		memory.Close()
		img.Close()
		return nil, resultError(res, "vkCreateImageView")
	}

	return &VulkanTexture{
		image:    img,
		memory:   memory,
		view:     view,
		format:   info,
		hasAlpha: info.HasAlpha,
	}, nil
}

/**
 * @brief Uploads a shared memory buffer. previous is reused when it has the
 * same size and format, otherwise a new texture is returned and previous is
 * left untouched. The copy is recorded into the setup command buffer of the
 * current paint pass.
 */
func (s *VulkanScene) UploadShm(buffer renderer.ShmBuffer, previous renderer.Texture) (renderer.Texture, error) {
	info, err := LookupShmFormat(buffer.Format)
	if err != nil {
		return nil, err
	}
	if buffer.Width == 0 || buffer.Height == 0 {
		return nil, errors.Newf("empty %s buffer", buffer.Format)
	}
	rowBytes := buffer.Width * info.BytesPerPixel
	if buffer.Stride < rowBytes {
		return nil, errors.Newf("stride %d is shorter than a row of %d bytes", buffer.Stride, rowBytes)
	}
	if uint64(len(buffer.Data)) < uint64(buffer.Stride)*uint64(buffer.Height-1)+uint64(rowBytes) {
		return nil, errors.Newf("%dx%d %s buffer holds only %d bytes", buffer.Width, buffer.Height, buffer.Format, len(buffer.Data))
	}
	if !s.formatSampleable(info.Format) {
		return nil, errors.Wrapf(errUnsupportedShmFormat, "%s cannot be sampled as %s", buffer.Format, FormatString(info.Format))
	}

	texture := textureOf(previous)
	if !texture.matches(buffer.Width, buffer.Height, info) {
		if texture, err = s.createTexture(buffer.Width, buffer.Height, info); err != nil {
			return nil, err
		}
	}

	// Rows are copied as they are when the stride is a whole number of
	// texels, and repacked otherwise.
	rowLength := buffer.Width
	size := uint64(rowBytes) * uint64(buffer.Height)
	if buffer.Stride%info.BytesPerPixel == 0 {
		rowLength = buffer.Stride / info.BytesPerPixel
		size = uint64(buffer.Stride)*uint64(buffer.Height-1) + uint64(rowBytes)
	}

	staging := s.imageUploadManager.Allocate(size, 4*info.BytesPerPixel)
	if !staging.IsValid() {
		if texture != previous {
			texture.Close()
		}
		return nil, errors.Newf("out of staging memory uploading %d bytes", size)
	}
	if rowLength == buffer.Width && buffer.Stride != rowBytes {
		for y := uint32(0); y < buffer.Height; y++ {
			src := buffer.Data[y*buffer.Stride : y*buffer.Stride+rowBytes]
			copy(staging.Data[y*rowBytes:], src)
		}
	} else {
		copy(staging.Data, buffer.Data[:size])
	}

	cmd := s.setupCommandBuffer()
	s.recordTextureWrite(cmd, texture, func() {
		cmd.CopyBufferToImage(staging.Buffer.Handle(), texture.image.Handle(), vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{{
			BufferOffset:      vk.DeviceSize(staging.Offset),
			BufferRowLength:   rowLength,
			BufferImageHeight: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: vk.Extent3D{Width: buffer.Width, Height: buffer.Height, Depth: 1},
		}})
	})

	s.addBusyReference(staging.Buffer)
	s.addTextureBusyReferences(texture)
	return texture, nil
}

// recordTextureWrite brackets record with the layout transitions of a full
// texture upload. Sampling by earlier passes completes before the write.
func (s *VulkanScene) recordTextureWrite(cmd *VulkanCommandBuffer, texture *VulkanTexture, record func()) {
	handle := texture.image.Handle()
	cmd.PipelineBarrier(stages(vk.PipelineStageFragmentShaderBit), stages(vk.PipelineStageTransferBit),
		[]vk.ImageMemoryBarrier{imageBarrier(handle,
			0, vk.AccessTransferWriteBit,
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
			vk.QueueFamilyIgnored, vk.QueueFamilyIgnored)}, nil)
	record()
	cmd.PipelineBarrier(stages(vk.PipelineStageTransferBit), stages(vk.PipelineStageFragmentShaderBit),
		[]vk.ImageMemoryBarrier{imageBarrier(handle,
			vk.AccessTransferWriteBit, vk.AccessShaderReadBit,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.QueueFamilyIgnored, vk.QueueFamilyIgnored)}, nil)
}

/**
 * @brief Uploads a decoded image, for example a window shadow. The pixels are
 * converted to premultiplied RGBA, written into a linear staging image and
 * copied into a new device local texture.
 */
func (s *VulkanScene) UploadImage(img image.Image) (renderer.Texture, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("empty image")
	}
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	staging := s.stagingImageAllocator.CreateImage(&vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.FormatR8g8b8a8Unorm,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingLinear,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutPreinitialized,
	})
	if staging == nil {
		return nil, errors.Newf("unable to create a %dx%d staging image", width, height)
	}
	defer staging.Close()

	layout := staging.Layout()
	data := staging.Data()
	for y := 0; y < int(height); y++ {
		dst := uint64(layout.Offset) + uint64(y)*uint64(layout.RowPitch)
		copy(data[dst:dst+uint64(width)*4], rgba.Pix[y*rgba.Stride:y*rgba.Stride+int(width)*4])
	}

	texture, err := s.createTexture(width, height, ShmFormatInfo{
		Format:        vk.FormatR8g8b8a8Unorm,
		Swizzle:       identitySwizzle,
		BytesPerPixel: 4,
		HasAlpha:      true,
	})
	if err != nil {
		return nil, err
	}

	cmd := s.setupCommandBuffer()
	cmd.PipelineBarrier(stages(vk.PipelineStageHostBit), stages(vk.PipelineStageTransferBit),
		[]vk.ImageMemoryBarrier{imageBarrier(staging.Handle(),
			vk.AccessHostWriteBit, vk.AccessTransferReadBit,
			vk.ImageLayoutPreinitialized, vk.ImageLayoutTransferSrcOptimal,
			vk.QueueFamilyIgnored, vk.QueueFamilyIgnored)}, nil)
	s.recordTextureWrite(cmd, texture, func() {
		subresource := vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		}
		cmd.CopyImage(staging.Handle(), vk.ImageLayoutTransferSrcOptimal,
			texture.image.Handle(), vk.ImageLayoutTransferDstOptimal,
			[]vk.ImageCopy{{
				SrcSubresource: subresource,
				DstSubresource: subresource,
				Extent:         vk.Extent3D{Width: width, Height: height, Depth: 1},
			}})
	})

	s.addBusyReference(staging)
	s.addTextureBusyReferences(texture)
	core.LogDebug("Uploaded %dx%d image texture", width, height)
	return texture, nil
}
