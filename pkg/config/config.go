// Package config handles figura configuration via YAML files and environment
// variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--group-size, --shader-dir, etc.)
//  2. Environment variables (FIGURA_*)
//  3. Config file (figura.yaml)
//  4. Built-in defaults
//
// Environment Variables (all use FIGURA_ prefix):
//
// Precision:
//   - FIGURA_BUFFER_PRECISION="float" or "double"
//   - FIGURA_CALC_PRECISION="float" or "double"
//
// GPU:
//   - FIGURA_GROUP_SIZE=256
//   - FIGURA_SHADER_DIR="./shaders"
//
// Archive:
//   - FIGURA_ARCHIVE_ENABLED=true
//   - FIGURA_ARCHIVE_DIR="./runs"
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Precision values accepted for buffer and calculation settings.
const (
	PrecisionFloat  = "float"
	PrecisionDouble = "double"
)

// Config holds all figura configuration.
//
// Use Default() for built-in defaults, LoadFromFile to read a YAML file, and
// ApplyEnv to layer FIGURA_* environment overrides on top. Always call
// Validate before use.
type Config struct {
	Precision PrecisionConfig `yaml:"precision"`
	GPU       GPUConfig       `yaml:"gpu"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// PrecisionConfig selects the floating point width used on the device.
// Buffer precision controls storage layout inside kernel-local scratch
// buffers; calculation precision controls the arithmetic. The host record
// layout is always double and is unaffected by either setting.
type PrecisionConfig struct {
	// Buffer precision: "float" or "double"
	Buffer string `yaml:"buffer"`
	// Calc precision: "float" or "double"
	Calc string `yaml:"calc"`
}

// GPUConfig holds dispatch settings.
type GPUConfig struct {
	// GroupSize is the workgroup size, matching local_size_x in the kernels
	GroupSize int `yaml:"group_size"`
	// ShaderDir is the directory holding the compute kernels
	ShaderDir string `yaml:"shader_dir"`
}

// ArchiveConfig holds run archive settings.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Default returns the built-in defaults: full double precision, workgroup
// size 256, shaders under ./shaders, archive disabled.
func Default() *Config {
	return &Config{
		Precision: PrecisionConfig{
			Buffer: PrecisionDouble,
			Calc:   PrecisionDouble,
		},
		GPU: GPUConfig{
			GroupSize: 256,
			ShaderDir: "shaders",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     "runs",
		},
	}
}

// LoadFromFile reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv layers FIGURA_* environment variables over the current values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FIGURA_BUFFER_PRECISION"); v != "" {
		c.Precision.Buffer = v
	}
	if v := os.Getenv("FIGURA_CALC_PRECISION"); v != "" {
		c.Precision.Calc = v
	}
	if v := os.Getenv("FIGURA_GROUP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GPU.GroupSize = n
		}
	}
	if v := os.Getenv("FIGURA_SHADER_DIR"); v != "" {
		c.GPU.ShaderDir = v
	}
	if v := os.Getenv("FIGURA_ARCHIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive.Enabled = b
		}
	}
	if v := os.Getenv("FIGURA_ARCHIVE_DIR"); v != "" {
		c.Archive.Dir = v
	}
}

// Load reads path (if it exists), layers environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Precision.Buffer != PrecisionFloat && c.Precision.Buffer != PrecisionDouble {
		return fmt.Errorf("config: buffer precision must be %q or %q, got %q",
			PrecisionFloat, PrecisionDouble, c.Precision.Buffer)
	}
	if c.Precision.Calc != PrecisionFloat && c.Precision.Calc != PrecisionDouble {
		return fmt.Errorf("config: calc precision must be %q or %q, got %q",
			PrecisionFloat, PrecisionDouble, c.Precision.Calc)
	}
	if c.GPU.GroupSize <= 0 {
		return fmt.Errorf("config: group size must be positive, got %d", c.GPU.GroupSize)
	}
	if c.GPU.ShaderDir == "" {
		return fmt.Errorf("config: shader dir must not be empty")
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("config: archive enabled but archive dir is empty")
	}
	return nil
}

// PrecisionDefines returns the preprocessor define set the precision
// settings select, for injection after the kernel's #version line.
func (c *Config) PrecisionDefines() []string {
	var defines []string
	if c.Precision.Buffer == PrecisionDouble {
		defines = append(defines, "#define USE_DOUBLES_IN_BUFFER")
	}
	if c.Precision.Calc == PrecisionDouble {
		defines = append(defines, "#define USE_DOUBLES_IN_CALCULATIONS")
	}
	return defines
}
