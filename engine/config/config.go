package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	ValidationEnv = "KWIN_ENABLE_VULKAN_VALIDATION"
	DeviceEnv     = "KWIN_VULKAN_DEVICE"
	FileName      = "vkcompositor.toml"
)

// VSync selects the present mode preference order of the swapchain.
type VSync string

const (
	VSyncOff    VSync = "off"
	VSyncDouble VSync = "double"
	VSyncTriple VSync = "triple"
)

type Output struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	Title  string `toml:"title"`
}

type Compositing struct {
	VSync         VSync  `toml:"vsync"`
	ShaderDir     string `toml:"shader_dir"`
	PipelineCache string `toml:"pipeline_cache"`
}

// Device forces the selection of a physical device. All three values have
// to match for the override to apply.
type Device struct {
	Override bool   `toml:"override"`
	Index    uint32 `toml:"index"`
	VendorID uint32 `toml:"vendor_id"`
	DeviceID uint32 `toml:"device_id"`
}

type Debug struct {
	Validation bool   `toml:"validation"`
	LogLevel   string `toml:"log_level"`
}

type Config struct {
	Output      Output      `toml:"output"`
	Compositing Compositing `toml:"compositing"`
	Device      Device      `toml:"device"`
	Debug       Debug       `toml:"debug"`

	path string
}

func Default() *Config {
	return &Config{
		Output: Output{
			Width:  1280,
			Height: 800,
			Title:  "vkcompositor",
		},
		Compositing: Compositing{
			VSync:         VSyncTriple,
			ShaderDir:     "assets/shaders",
			PipelineCache: filepath.Join(cacheDir(), "vkcompositor", "pipeline.cache"),
		},
		Debug: Debug{
			LogLevel: "info",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vkcompositor/vkcompositor.toml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "vkcompositor", FileName)
}

func cacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// Load reads path on top of the defaults. A missing file is not an error;
// environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg and validates the result. Keys absent
// from data keep their current value.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.Compositing.PipelineCache = os.ExpandEnv(cfg.Compositing.PipelineCache)
	return cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Compositing.VSync {
	case VSyncOff, VSyncDouble, VSyncTriple:
	default:
		return errors.Newf("unknown vsync mode `%s`", c.Compositing.VSync)
	}
	if c.Output.Width == 0 || c.Output.Height == 0 {
		return errors.Newf("invalid output size %dx%d", c.Output.Width, c.Output.Height)
	}
	return nil
}

func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyEnv() error {
	if os.Getenv(ValidationEnv) == "1" {
		c.Debug.Validation = true
	}
	if v := os.Getenv(DeviceEnv); v != "" {
		d, err := ParseDeviceOverride(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", DeviceEnv)
		}
		c.Device = d
	}
	return nil
}

// ParseDeviceOverride parses "index:vendor:device", vendor and device in hex.
func ParseDeviceOverride(s string) (Device, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Device{}, errors.Newf("expected index:vendor:device, got `%s`", s)
	}
	index, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Device{}, errors.Wrap(err, "device index")
	}
	vendor, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 32)
	if err != nil {
		return Device{}, errors.Wrap(err, "vendor id")
	}
	device, err := strconv.ParseUint(strings.TrimPrefix(parts[2], "0x"), 16, 32)
	if err != nil {
		return Device{}, errors.Wrap(err, "device id")
	}
	return Device{
		Override: true,
		Index:    uint32(index),
		VendorID: uint32(vendor),
		DeviceID: uint32(device),
	}, nil
}
