package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	kmath "github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
)

// VSyncMode selects the present mode preference order.
type VSyncMode int

const (
	VSyncOff VSyncMode = iota
	VSyncDouble
	VSyncTriple
)

func (m VSyncMode) String() string {
	switch m {
	case VSyncOff:
		return "off"
	case VSyncDouble:
		return "double"
	case VSyncTriple:
		return "triple"
	}
	return "unknown"
}

type VulkanSceneOptions struct {
	ApplicationName string
	Validation      bool
	DeviceOverride  DeviceOverride
	VSync           VSyncMode
	Shaders         ShaderSource
	// File the pipeline cache is seeded from and saved to on Close. Empty
	// disables persistence.
	PipelineCachePath string
	Listener          renderer.CompositorListener
}

// frameData is the per frame slot state. A slot is reused once the image
// acquisition fence it submitted has signaled.
type frameData struct {
	acquisitionFence          *VulkanFence
	acquisitionFenceSubmitted bool
	acquisitionSemaphore      *VulkanSemaphore

	// Only created when the present queue is a separate family.
	acquireOwnershipSemaphore *VulkanSemaphore
	releaseOwnershipSemaphore *VulkanSemaphore
}

// paintPassData is the per paint pass state. Its command pool is reset and
// its busy objects released once its fence has signaled.
type paintPassData struct {
	semaphore          *VulkanSemaphore
	commandPool        *VulkanCommandPool
	setupCommandBuffer *VulkanCommandBuffer
	mainCommandBuffer  *VulkanCommandBuffer
	fence              *VulkanFence
	fenceSubmitted     bool
	busy               BusyObjects
}

/**
 * @brief The Vulkan compositing scene. Owns the instance, device, swapchain
 * and every per frame resource, and drives one paint cycle per Paint call.
 * All methods must be called from the render thread.
 */
type VulkanScene struct {
	id      uuid.UUID
	backend VulkanBackend
	options VulkanSceneOptions

	instance *VulkanInstance
	surface  vk.Surface
	device   *VulkanDevice

	allocator *VulkanDeviceMemoryAllocator

	surfaceFormat vk.SurfaceFormat
	presentMode   vk.PresentMode
	imageCount    uint32

	presentCommandPool *VulkanCommandPool
	renderPasses       VulkanRenderPasses
	nearestSampler     *VulkanSampler
	linearSampler      *VulkanSampler
	swapchain          *VulkanSwapchain
	pipelineCache      *VulkanPipelineCache
	pipelineManager    *VulkanPipelineManager

	frames      [FramesInFlight]frameData
	paintPasses [FramesInFlight]paintPassData

	uploadManager         *VulkanUploadManager
	imageUploadManager    *VulkanUploadManager
	stagingImageAllocator *VulkanStagingImageAllocator

	textureDescriptorPool   *SceneDescriptorPool
	crossFadeDescriptorPool *SceneDescriptorPool
	colorDescriptorPool     *SceneDescriptorPool
	clearDescriptorSet      *ColorDescriptorSet

	indexBuffer          *VulkanBuffer
	indexBufferMemory    *VulkanDeviceMemory
	indexBufferQuadCount uint32
	usedIndexBuffer      bool

	frameIndex     int
	paintPassIndex int
	waitSemaphores []*VulkanSemaphore

	imageAcquired              bool
	bufferAge                  uint32
	surfaceLayout              vk.ImageLayout
	needQueueOwnershipTransfer bool
	renderPassStarted          bool
	clearPending               bool
	commandBuffersPending      bool
	fullRepaintPending         bool

	projection mgl32.Mat4

	valid  bool
	failed bool
}

// NewVulkanScene brings up the whole scene on the backend's output. The
// returned error is marked with core.ErrInitFailed when the caller should
// fall back to another compositing type.
func NewVulkanScene(backend VulkanBackend, options VulkanSceneOptions) (*VulkanScene, error) {
	if err := initLoader(backend); err != nil {
		return nil, err
	}

	var extensions []string
	extensions = append(extensions, backend.PlatformSurfaceExtensions()...)
	instance, err := NewVulkanInstance(VulkanInstanceOptions{
		ApplicationName:    options.ApplicationName,
		Validation:         options.Validation,
		PlatformExtensions: extensions,
	})
	if err != nil {
		return nil, errors.Mark(err, core.ErrInitFailed)
	}

	surface, err := backend.CreateSurface(instance.Handle())
	if err != nil {
		instance.Close()
		return nil, errors.Mark(errors.Wrap(err, "failed to create the output surface"), core.ErrInitFailed)
	}

	scene, err := newVulkanSceneWithInstance(backend, options, instance, surface)
	if err != nil {
		return nil, errors.Mark(err, core.ErrInitFailed)
	}
	return scene, nil
}

// newVulkanSceneWithInstance initializes everything below the instance. On
// failure every object created so far, the surface and instance included, is
// destroyed.
func newVulkanSceneWithInstance(backend VulkanBackend, options VulkanSceneOptions, instance *VulkanInstance, surface vk.Surface) (*VulkanScene, error) {
	s := &VulkanScene{
		backend:       backend,
		options:       options,
		instance:      instance,
		surface:       surface,
		surfaceLayout: vk.ImageLayoutUndefined,
	}
	s.id = core.IdentifierAquireNewID(s)

	if err := s.init(); err != nil {
		core.LogError("Vulkan scene initialization failed: %s", err)
		s.Close()
		return nil, err
	}
	s.valid = true
	core.LogInfo("Vulkan scene %s initialized", s.id)
	return s, nil
}

func (s *VulkanScene) Type() renderer.CompositingType {
	return renderer.VulkanCompositing
}

// InitFailed reports whether the scene is unusable.
func (s *VulkanScene) InitFailed() bool {
	return !s.valid
}

func (s *VulkanScene) ID() uuid.UUID               { return s.id }
func (s *VulkanScene) Device() *VulkanDevice       { return s.device }
func (s *VulkanScene) Swapchain() *VulkanSwapchain { return s.swapchain }
func (s *VulkanScene) SurfaceFormat() vk.Format    { return s.surfaceFormat.Format }
func (s *VulkanScene) PresentMode() vk.PresentMode { return s.presentMode }

func (s *VulkanScene) PipelineManager() *VulkanPipelineManager { return s.pipelineManager }
func (s *VulkanScene) UploadManager() *VulkanUploadManager     { return s.uploadManager }

func (s *VulkanScene) NearestSampler() vk.Sampler { return s.nearestSampler.Handle() }
func (s *VulkanScene) LinearSampler() vk.Sampler  { return s.linearSampler.Handle() }

func (s *VulkanScene) TextureDescriptorPool() *SceneDescriptorPool { return s.textureDescriptorPool }
func (s *VulkanScene) CrossFadeDescriptorPool() *SceneDescriptorPool {
	return s.crossFadeDescriptorPool
}
func (s *VulkanScene) ColorDescriptorPool() *SceneDescriptorPool { return s.colorDescriptorPool }

// Projection is the projection matrix of the current paint call.
func (s *VulkanScene) Projection() mgl32.Mat4 {
	return s.projection
}

func (s *VulkanScene) Size() (uint32, uint32) {
	extent := s.swapchain.Extent()
	return extent.Width, extent.Height
}

func (s *VulkanScene) UsesOverlayWindow() bool {
	return s.backend.UsesOverlayWindow()
}

func (s *VulkanScene) OverlayWindow() uintptr {
	return s.backend.OverlayWindow()
}

// ScreenGeometryChanged forwards the new output size to the backend and
// recreates the swapchain on the next paint.
func (s *VulkanScene) ScreenGeometryChanged(width, height uint32) {
	s.backend.ScreenGeometryChanged(width, height)
	if s.swapchain != nil {
		s.swapchain.Invalidate()
	}
}

// FullRepaintPending reports whether the next Paint repaints the whole output
// regardless of the damage passed in.
func (s *VulkanScene) FullRepaintPending() bool {
	return s.fullRepaintPending
}

func (s *VulkanScene) addRepaintFull() {
	s.fullRepaintPending = true
}

func (s *VulkanScene) currentPaintPass() *paintPassData {
	return &s.paintPasses[s.paintPassIndex]
}

// addBusyReference keeps object alive until the current paint pass has
// completed on the GPU.
func (s *VulkanScene) addBusyReference(object SharedObject) {
	s.currentPaintPass().busy.Add(object)
}

func (s *VulkanScene) addWaitSemaphore(semaphore *VulkanSemaphore) {
	for _, sem := range s.waitSemaphores {
		if sem == semaphore {
			return
		}
	}
	s.waitSemaphores = append(s.waitSemaphores, semaphore)
}

func (s *VulkanScene) waitSemaphoreHandles() []vk.Semaphore {
	handles := make([]vk.Semaphore, 0, len(s.waitSemaphores))
	for _, sem := range s.waitSemaphores {
		handles = append(handles, sem.Handle())
	}
	return handles
}

func (s *VulkanScene) handleDeviceLostError() {
	core.LogDebug("Attempting to reset compositing following VK_ERROR_DEVICE_LOST.")
	s.failed = true
	if s.options.Listener != nil {
		s.options.Listener.DeviceLost()
	}
}

func (s *VulkanScene) handleFatalError(err error) {
	s.failed = true
	if s.options.Listener != nil {
		s.options.Listener.CompositingFailed(err)
	}
}

/**
 * @brief Classifies the result of a submission or presentation. Device loss
 * asks the listener to recreate the scene; every other failure disables
 * compositing.
 * @return true when res is VK_SUCCESS.
 */
func (s *VulkanScene) checkResult(res vk.Result, operation string) bool {
	switch res {
	case vk.Success:
		return true
	case vk.ErrorDeviceLost:
		s.handleDeviceLostError()
		return false
	default:
		err := NewVulkanError(res, operation)
		core.LogError("%s", err)
		s.handleFatalError(errors.Mark(err, core.ErrFatal))
		return false
	}
}

// PipelineCacheData returns the driver blob of the pipeline cache so the
// caller can persist it.
func (s *VulkanScene) PipelineCacheData() ([]byte, error) {
	if s.pipelineCache == nil || !s.pipelineCache.IsValid() {
		return nil, errors.New("no pipeline cache")
	}
	return s.pipelineCache.Data()
}

// Close waits for the GPU and destroys every object in reverse creation
// order.
func (s *VulkanScene) Close() error {
	if s.device != nil && s.device.Driver != nil {
		s.device.WaitIdle()
		for i := range s.frames {
			if s.frames[i].acquisitionFenceSubmitted {
				s.frames[i].acquisitionFence.Wait(waitForever)
				s.frames[i].acquisitionFenceSubmitted = false
			}
		}
		for i := range s.paintPasses {
			s.paintPasses[i].busy.Release()
			s.paintPasses[i].fenceSubmitted = false
		}

		if s.clearDescriptorSet != nil {
			s.clearDescriptorSet.Close()
			s.clearDescriptorSet = nil
		}
		for _, pool := range []*SceneDescriptorPool{s.colorDescriptorPool, s.crossFadeDescriptorPool, s.textureDescriptorPool} {
			if pool != nil {
				pool.Close()
			}
		}
		s.releaseIndexBuffer()

		if s.stagingImageAllocator != nil {
			s.stagingImageAllocator.Close()
		}
		if s.imageUploadManager != nil {
			s.imageUploadManager.Close()
		}
		if s.uploadManager != nil {
			s.uploadManager.Close()
		}

		for i := range s.paintPasses {
			pass := &s.paintPasses[i]
			for _, cmd := range []*VulkanCommandBuffer{pass.setupCommandBuffer, pass.mainCommandBuffer} {
				if cmd != nil {
					cmd.Close()
				}
			}
			if pass.commandPool != nil {
				pass.commandPool.Close()
			}
			if pass.fence != nil {
				pass.fence.Close()
			}
			if pass.semaphore != nil {
				pass.semaphore.Close()
			}
			*pass = paintPassData{}
		}
		for i := range s.frames {
			frame := &s.frames[i]
			for _, sem := range []*VulkanSemaphore{frame.acquisitionSemaphore, frame.acquireOwnershipSemaphore, frame.releaseOwnershipSemaphore} {
				if sem != nil {
					sem.Close()
				}
			}
			if frame.acquisitionFence != nil {
				frame.acquisitionFence.Close()
			}
			*frame = frameData{}
		}
		s.waitSemaphores = nil

		if s.pipelineManager != nil {
			s.pipelineManager.Close()
		}
		if s.pipelineCache != nil {
			if s.valid {
				s.savePipelineCache()
			}
			s.pipelineCache.Close()
		}
		if s.swapchain != nil {
			s.swapchain.Close()
		}
		for _, sampler := range []*VulkanSampler{s.linearSampler, s.nearestSampler} {
			if sampler != nil {
				sampler.Close()
			}
		}
		s.renderPasses.Close()
		if s.presentCommandPool != nil {
			s.presentCommandPool.Close()
		}
		s.device.Close()
	}
	s.device = nil

	if s.instance != nil {
		if s.surface != nil {
			s.instance.Driver.DestroySurface(s.surface)
			s.surface = nil
		}
		s.instance.Close()
		s.instance = nil
	}

	if s.id != uuid.Nil {
		core.IdentifierReleaseID(s.id)
		s.id = uuid.Nil
	}
	s.valid = false
	return nil
}

func (s *VulkanScene) outputRegion() kmath.Region {
	return kmath.NewRegion(s.swapchain.Rect())
}
