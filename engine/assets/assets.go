package assets

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkcompositor/engine/assets/loaders"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"golang.org/x/sync/errgroup"
)

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeImage
)

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

var ErrShaderNotFound = errors.New("shader not found")

/**
 * @brief Indexes an asset directory and keeps it current while files change.
 * Compiled shader stages are loaded up front and served from memory.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	shaders map[string][]uint32
	loaders map[AssetType]loaders.Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the asset watcher")
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		shaders:  make(map[string][]uint32),
		loaders:  make(map[AssetType]loaders.Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	am.registerLoader(AssetTypeShader, &loaders.SPIRVLoader{})
	am.registerLoader(AssetTypeImage, &loaders.ImageLoader{})
	return am, nil
}

// Initialize indexes assetsDir, loads every shader stage in it and starts
// watching for changes.
func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}
	if err := am.loadShaders(); err != nil {
		return err
	}
	am.started = true
	go am.start()
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) loadShaders() error {
	am.mutex.RLock()
	var paths []string
	for path, info := range am.assets {
		if info.Type == AssetTypeShader {
			paths = append(paths, path)
		}
	}
	am.mutex.RUnlock()

	group, _ := errgroup.WithContext(context.Background())
	for _, path := range paths {
		path := path
		group.Go(func() error {
			return am.loadShader(path)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	core.LogInfo("loaded %d shader stages", len(paths))
	return nil
}

func (am *AssetManager) loadShader(path string) error {
	res, err := am.loaders[AssetTypeShader].Load(path)
	if err != nil {
		return err
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.shaders[res.Name] = res.Data.([]uint32)
	am.assets[path] = AssetInfo{Path: path, Type: AssetTypeShader, LastLoaded: time.Now()}
	return nil
}

// SPIRV returns the code of the shader stage name, for example
// "texture.vert".
func (am *AssetManager) SPIRV(name string) ([]uint32, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	code, ok := am.shaders[name]
	if !ok {
		return nil, errors.Wrapf(ErrShaderNotFound, "%s", name)
	}
	return code, nil
}

// LoadImage decodes an image file for upload as a texture.
func (am *AssetManager) LoadImage(path string) (image.Image, error) {
	res, err := am.loaders[AssetTypeImage].Load(path)
	if err != nil {
		return nil, err
	}
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: AssetTypeImage, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res.Data.(image.Image), nil
}

// Assets returns a snapshot of the index.
func (am *AssetManager) Assets() map[string]AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make(map[string]AssetInfo, len(am.assets))
	for k, v := range am.assets {
		out[k] = v
	}
	return out
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	if !am.started {
		return am.fsnotify.Close()
	}
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name, true)
			}
			// A removed path cannot be stat'ed, so it is dropped from both the
			// index and the watch list whatever it was.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under path to the watch list and
// indexes the files found.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath, false)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string, reload bool) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return
	}
	if reload && assetType == AssetTypeShader {
		// The previous code stays in use when the new file does not load,
		// for example while the compiler is still writing it.
		if err := am.loadShader(path); err != nil {
			core.LogWarn("failed to reload shader: %s", err)
		} else {
			core.LogInfo("reloaded shader %s, it takes effect when the scene is recreated", loaders.ShaderName(path))
		}
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if info, ok := am.assets[path]; ok && info.Type == AssetTypeShader {
		delete(am.shaders, loaders.ShaderName(path))
	}
	delete(am.assets, path)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".webp":
		return AssetTypeImage
	default:
		return AssetTypeNone
	}
}
