package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Environment overrides. Each is read once, when the kernel is probed.
const (
	// EnvDisable forces the fallback path when set to "1".
	EnvDisable = "HUNYUAN_DISABLE_RASTERIZER"
	// EnvKernel selects a registered kernel by name.
	EnvKernel = "HUNYUAN_RASTERIZER_KERNEL"
	// EnvLibrary points the native kernel at a shared library.
	EnvLibrary = "HUNYUAN_RASTERIZER_LIB"
)

// DefaultKernel is the kernel probed when none is configured.
const DefaultKernel = "native"

// DefaultSpeckleRatio is the coverage fraction below which isolated
// pixel groups are cleared from a bake.
const DefaultSpeckleRatio = 0.02

// Config holds kernel selection and render settings.
type Config struct {
	// Kernel
	DisableRasterizer bool   `json:"disable_rasterizer"`
	Kernel            string `json:"kernel"`
	KernelLibrary     string `json:"kernel_library"`

	// Paths
	OutputDir  string `json:"output_dir"`
	TextureDir string `json:"texture_dir"`

	// Render settings
	Mode        string `json:"mode"`
	Device      string `json:"device"`
	RenderSize  int    `json:"render_size"`
	Supersample int    `json:"supersample"`
	Workers     int    `json:"workers"`

	// Post-processing. FillRatio > 0 crops each bake to its coverage and
	// rescales it to that fraction of the canvas. SpeckleRatio < 0
	// disables speckle removal.
	FillRatio    float64 `json:"fill_ratio"`
	SpeckleRatio float64 `json:"speckle_ratio"`
}

// Kernel is the subset of configuration consumed by the kernel probe.
type Kernel struct {
	Disabled bool
	Name     string
	Library  string
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// KernelFromEnv builds the kernel configuration from the environment alone.
func KernelFromEnv() Kernel {
	k := Kernel{
		Disabled: os.Getenv(EnvDisable) == "1",
		Name:     os.Getenv(EnvKernel),
		Library:  os.Getenv(EnvLibrary),
	}
	if k.Name == "" {
		k.Name = DefaultKernel
	}
	return k
}

// KernelConfig returns the kernel part of c.
func (c *Config) KernelConfig() Kernel {
	return Kernel{
		Disabled: c.DisableRasterizer,
		Name:     c.Kernel,
		Library:  c.KernelLibrary,
	}
}

// Resolve layers the environment and CLI flags over the file values and
// fills the rest with defaults. Precedence: flags > env > file > defaults.
func (c *Config) Resolve(flags Flags) {
	// Environment overrides config file
	if os.Getenv(EnvDisable) == "1" {
		c.DisableRasterizer = true
	}
	if v := os.Getenv(EnvKernel); v != "" {
		c.Kernel = v
	}
	if v := os.Getenv(EnvLibrary); v != "" {
		c.KernelLibrary = v
	}

	// CLI flags override both
	if flags.Disable {
		c.DisableRasterizer = true
	}
	if flags.Kernel != "" {
		c.Kernel = flags.Kernel
	}
	if flags.KernelLibrary != "" {
		c.KernelLibrary = flags.KernelLibrary
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.Mode != "" {
		c.Mode = flags.Mode
	}
	if flags.Size > 0 {
		c.RenderSize = flags.Size
	}
	if flags.Supersample > 0 {
		c.Supersample = flags.Supersample
	}
	if flags.FillRatio > 0 {
		c.FillRatio = flags.FillRatio
	}
	if flags.SpeckleRatio != 0 {
		c.SpeckleRatio = flags.SpeckleRatio
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Defaults
	if c.Kernel == "" {
		c.Kernel = DefaultKernel
	}
	if c.OutputDir == "" {
		c.OutputDir = "renders"
	}
	if c.Mode == "" {
		c.Mode = "normal"
	}
	if c.Device == "" {
		c.Device = "cpu"
	}
	if c.RenderSize <= 0 {
		c.RenderSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.SpeckleRatio == 0 {
		c.SpeckleRatio = DefaultSpeckleRatio
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Disable       bool
	Kernel        string
	KernelLibrary string
	OutputDir     string
	TextureDir    string
	Mode          string
	Size          int
	Supersample   int
	Workers       int
	FillRatio     float64
	SpeckleRatio  float64
}
