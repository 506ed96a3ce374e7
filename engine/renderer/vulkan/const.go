package vulkan

/**
 * @brief Number of frames the CPU may record ahead of the GPU. Bounds both
 * the image acquisitions in flight and the paint passes awaiting their fence.
 */
const FramesInFlight = 2

const (
	// Upload ring for uniforms and vertices.
	streamingBufferSize uint32 = 16 * 1024
	// Upload ring for texture pixel data.
	stagingBufferSize uint32 = 8 * 1024 * 1024
)

/**
 * @brief Descriptor pool sizing, per driver pool. The scene descriptor pools
 * add another driver pool whenever one runs out.
 */
const (
	textureDescriptorPoolSets   uint32 = 72
	crossFadeDescriptorPoolSets uint32 = 8
	colorDescriptorPoolSets     uint32 = 16
)

// Minimum size in bytes of the shared quad index buffer.
const minIndexBufferSize = 16 * 1024

const (
	// Indices per quad: two triangles.
	indicesPerQuad = 6
	// 16-bit indices address 65536 vertices, four per quad. Larger batches
	// are drawn in several draws with a vertex offset.
	maxQuadsPerDraw = 65536 / 4
	// Bytes of index data per quad, see indicesPerQuad.
	indexBytesPerQuad = indicesPerQuad * 2
)

// Fence and acquisition waits never time out.
const waitForever = ^uint64(0)
