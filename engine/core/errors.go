package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrDeviceLost       = errors.New("graphics device lost")
	ErrSurfaceLost      = errors.New("presentation surface lost")
	ErrOutOfDate        = errors.New("swapchain out of date")
	ErrFatal            = errors.New("fatal compositing error")
	ErrNoSuitableDevice = errors.New("no physical device meets the requirements")
	ErrMissingExtension = errors.New("required extension is not available")
	ErrInitFailed       = errors.New("scene initialization failed")
	ErrUnknown          = errors.New("unknown")
)
