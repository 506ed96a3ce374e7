package engine

import (
	"github.com/spaghettifunk/vkcompositor/engine/assets"
	"github.com/spaghettifunk/vkcompositor/engine/workspace"
)

/**
 * @brief Something that puts windows on the workspace, for example the
 * testbed clients. All calls happen on the main loop.
 */
type Client interface {
	Initialize(ws *workspace.Workspace, am *assets.AssetManager) error
	// Update runs once per loop iteration before the output is painted.
	Update(ws *workspace.Workspace, deltaTime float64) error
	Shutdown() error
}
