package engine

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vkcompositor/engine/assets"
	"github.com/spaghettifunk/vkcompositor/engine/config"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/engine/math"
	"github.com/spaghettifunk/vkcompositor/engine/platform"
	"github.com/spaghettifunk/vkcompositor/engine/renderer"
	"github.com/spaghettifunk/vkcompositor/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkcompositor/engine/systems"
	"github.com/spaghettifunk/vkcompositor/engine/workspace"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Idle time per iteration while nothing is composited.
const idleInterval = 16 * time.Millisecond

var _ vulkan.VulkanBackend = (*platform.Platform)(nil)

type notifier interface {
	Notify(systems.Notification)
}

type Engine struct {
	currentStage Stage
	config       *config.Config
	client       Client

	isRunning   atomic.Bool
	isSuspended bool

	platform      *platform.Platform
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	configWatcher *config.Watcher
	workspace     *workspace.Workspace
	notifier      notifier

	compositor    renderer.Compositor
	newCompositor func() (renderer.Compositor, error)
	// Set from the compositor listener during Paint and handled on the next
	// iteration, once Paint returned.
	deviceLost          bool
	compositingFailed   bool
	compositingDisabled bool
	fullDamage          bool

	pendingConfig atomic.Pointer[config.Config]

	width  uint32
	height uint32
	clock  *core.Clock
}

func New(cfg *config.Config, client Client) (*Engine, error) {
	e := &Engine{
		currentStage: EngineStageBooting,
		config:       cfg,
		client:       client,
		clock:        core.NewClock(),
		workspace:    workspace.New(),
		width:        cfg.Output.Width,
		height:       cfg.Output.Height,
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	e.platform = p

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	e.assetManager = am

	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		AppName:    cfg.Output.Title,
		JobWorkers: 1,
		JobQueue:   16,
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	e.systemManager = sm
	e.notifier = sm.Notifier()
	e.newCompositor = e.newVulkanScene

	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return errors.Newf("engine cannot be initialized in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(e.config.Debug.LogLevel)

	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.config.Output.Title, 0, 0, e.width, e.height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Compositing.ShaderDir); err != nil {
		return errors.Wrap(err, "failed to load the shaders")
	}

	if path := e.config.Path(); path != "" {
		w, err := config.NewWatcher(path, e.onConfigChanged)
		if err != nil {
			core.LogWarn("configuration changes are not watched: %s", err)
		} else {
			e.configWatcher = w
		}
	}

	if e.client != nil {
		if err := e.client.Initialize(e.workspace, e.assetManager); err != nil {
			return err
		}
	}

	if err := e.createCompositor(); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) newVulkanScene() (renderer.Compositor, error) {
	scene, err := vulkan.NewVulkanScene(e.platform, vulkan.VulkanSceneOptions{
		ApplicationName: e.config.Output.Title,
		Validation:      e.config.Debug.Validation,
		DeviceOverride: vulkan.DeviceOverride{
			Enabled:  e.config.Device.Override,
			Index:    e.config.Device.Index,
			VendorID: e.config.Device.VendorID,
			DeviceID: e.config.Device.DeviceID,
		},
		VSync:             vsyncMode(e.config.Compositing.VSync),
		Shaders:           e.assetManager,
		PipelineCachePath: e.config.Compositing.PipelineCache,
		Listener:          e,
	})
	if err != nil {
		return nil, err
	}
	return scene, nil
}

func vsyncMode(v config.VSync) vulkan.VSyncMode {
	switch v {
	case config.VSyncOff:
		return vulkan.VSyncOff
	case config.VSyncDouble:
		return vulkan.VSyncDouble
	default:
		return vulkan.VSyncTriple
	}
}

// createCompositor brings compositing up. A compositor that fails to
// initialize leaves compositing off for the session; any other error is
// returned.
func (e *Engine) createCompositor() error {
	c, err := e.newCompositor()
	if err != nil {
		if errors.Is(err, core.ErrInitFailed) {
			core.LogError("compositing is disabled: %s", err)
			e.compositingDisabled = true
			return nil
		}
		return err
	}
	e.compositor = c
	e.fullDamage = true
	core.LogInfo("%s compositing started", c.Type())
	return nil
}

func (e *Engine) destroyCompositor() {
	if e.compositor == nil {
		return
	}
	e.workspace.ReleaseTextures()
	if err := e.compositor.Close(); err != nil {
		core.LogError("failed to close the compositor: %s", err)
	}
	e.compositor = nil
}

// DeviceLost is called by the compositor when the GPU was reset.
func (e *Engine) DeviceLost() {
	core.LogWarn("graphics device lost, restarting compositing")
	e.deviceLost = true
	e.notifier.Notify(systems.GraphicsResetNotification)

	ctx := core.EventContext{}
	ctx.Data.C[0] = core.ErrDeviceLost.Error()
	core.EventFire(core.EVENT_CODE_GRAPHICS_RESET, e, ctx)
}

// CompositingFailed is called by the compositor after an unrecoverable
// error.
func (e *Engine) CompositingFailed(err error) {
	core.LogError("compositing failed: %s", err)
	e.compositingFailed = true
	e.notifier.Notify(systems.CompositingFailedNotification)

	ctx := core.EventContext{}
	ctx.Data.C[0] = err.Error()
	core.EventFire(core.EVENT_CODE_COMPOSITING_FAILED, e, ctx)
}

func (e *Engine) CompositingActive() bool {
	return e.compositor != nil
}

// handleCompositorState applies what the listener reported during the last
// paint.
func (e *Engine) handleCompositorState() {
	if e.compositingFailed {
		e.compositingFailed = false
		e.deviceLost = false
		e.compositingDisabled = true
		e.destroyCompositor()
		return
	}
	if e.deviceLost {
		e.deviceLost = false
		e.destroyCompositor()
		if err := e.createCompositor(); err != nil {
			core.LogError("failed to restart compositing: %s", err)
			e.compositingDisabled = true
		}
	}
}

func (e *Engine) applyPendingConfig() {
	cfg := e.pendingConfig.Swap(nil)
	if cfg == nil {
		return
	}
	e.config = cfg
	core.LogInfo("configuration reloaded, compositing settings apply when the scene is recreated")
}

// paintFrame runs the compositing part of one loop iteration and returns
// whether anything was composited.
func (e *Engine) paintFrame(delta float64) bool {
	e.applyPendingConfig()
	e.handleCompositorState()

	if e.client != nil {
		if err := e.client.Update(e.workspace, delta); err != nil {
			core.LogError("client update failed: %s", err)
		}
	}

	damage := e.workspace.TakeDamage()
	if e.compositor == nil {
		return false
	}
	if e.fullDamage {
		e.fullDamage = false
		damage = math.NewRegion(math.NewRect(0, 0, int32(e.width), int32(e.height)))
	}
	elapsed := e.compositor.Paint(damage, e.workspace)
	core.MetricsUpdate(time.Duration(elapsed))
	return true
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	lastTime := e.clock.Seconds()
	var runningTime float64

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning.Store(false)
			break
		}

		e.clock.Update()
		currentTime := e.clock.Seconds()
		delta := currentTime - lastTime
		lastTime = currentTime

		if e.isSuspended || !e.paintFrame(delta) {
			time.Sleep(idleInterval)
			continue
		}

		runningTime += delta
		if runningTime >= 5 {
			runningTime = 0
			core.LogDebug("paint %.2f ms average, %.0f paints/s, %d skipped", core.MetricsFrameTime(), core.MetricsFPS(), core.MetricsSkipped())
		}
	}
	return nil
}

// Stop makes Run return after the current iteration. It is safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	e.destroyCompositor()
	e.workspace.Close()

	if e.client != nil {
		if err := e.client.Shutdown(); err != nil {
			core.LogError("client shutdown failed: %s", err)
		}
	}
	if e.configWatcher != nil {
		e.configWatcher.Close()
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order) of the
// output.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onConfigChanged(cfg *config.Config) {
	core.SetLogLevel(cfg.Debug.LogLevel)
	e.pendingConfig.Store(cfg)
	core.EventFire(core.EVENT_CODE_CONFIG_CHANGED, e, core.EventContext{})
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Output resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Output minimized, suspending compositing.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Output restored, resuming compositing.")
		e.isSuspended = false
	}
	if e.compositor != nil {
		e.compositor.ScreenGeometryChanged(width, height)
	}
	return false
}
