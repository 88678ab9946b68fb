package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	EngineLibrary = "library"
	EngineCLI     = "cli"
)

type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Imaging struct {
		DPI            int      `yaml:"dpi"`
		Scale          float64  `yaml:"scale"`
		BlurKernel     int      `yaml:"blur_kernel"`
		ThresholdBlock int      `yaml:"threshold_block"`
		ThresholdC     *float64 `yaml:"threshold_c"`
		Rasterizer     string   `yaml:"rasterizer"`
	} `yaml:"imaging"`

	OCR struct {
		Engine         string   `yaml:"engine"`
		Binary         string   `yaml:"binary"`
		Languages      []string `yaml:"languages"`
		PageSegMode    *int     `yaml:"page_seg_mode"`
		EngineMode     *int     `yaml:"engine_mode"`
		TessdataPrefix string   `yaml:"tessdata_prefix"`
	} `yaml:"ocr"`

	Models struct {
		Dir                string `yaml:"dir"`
		DensityFile        string `yaml:"density_file"`
		ReconstructionFile string `yaml:"reconstruction_file"`
		DensityOutput      string `yaml:"density_output"`
		ONNXLibrary        string `yaml:"onnx_library"`
	} `yaml:"models"`
}

// Load reads a YAML config. An empty path searches the default locations and
// falls back to built-in defaults when none exists. Environment overrides are
// applied after the file.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"slipcheck.yaml",
			"config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/slipcheck/config.yaml"),
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	mergeWithEnv(&cfg)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	cfg := &Config{}
	mergeWithEnv(cfg)
	cfg.ApplyDefaults()
	return cfg
}

// Ptr returns a pointer to v, for the settings where 0 is a meaningful value.
func Ptr[T any](v T) *T { return &v }

// ApplyDefaults fills zero values with the values the slip preprocessing was
// tuned with. ThresholdC, PageSegMode and EngineMode are pointers: an
// explicit 0 is kept and only a missing key takes the default.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Imaging.DPI == 0 {
		c.Imaging.DPI = 300
	}
	if c.Imaging.Scale == 0 {
		c.Imaging.Scale = 2
	}
	if c.Imaging.BlurKernel == 0 {
		c.Imaging.BlurKernel = 5
	}
	if c.Imaging.ThresholdBlock == 0 {
		c.Imaging.ThresholdBlock = 31
	}
	if c.Imaging.ThresholdC == nil {
		c.Imaging.ThresholdC = Ptr(10.0)
	}
	if c.Imaging.Rasterizer == "" {
		c.Imaging.Rasterizer = "pdftoppm"
	}

	if c.OCR.Engine == "" {
		c.OCR.Engine = EngineLibrary
	}
	if c.OCR.Binary == "" {
		c.OCR.Binary = "tesseract"
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"tha", "eng"}
	}
	if c.OCR.PageSegMode == nil {
		c.OCR.PageSegMode = Ptr(6)
	}
	if c.OCR.EngineMode == nil {
		c.OCR.EngineMode = Ptr(3)
	}

	if c.Models.Dir == "" {
		c.Models.Dir = "models"
	}
	if c.Models.DensityFile == "" {
		c.Models.DensityFile = "isolation_forest.onnx"
	}
	if c.Models.ReconstructionFile == "" {
		c.Models.ReconstructionFile = "autoencoder.onnx"
	}
	if c.Models.DensityOutput == "" {
		c.Models.DensityOutput = "scores"
	}
}

// DensityPath is the full path of the density model artefact.
func (c *Config) DensityPath() string {
	return filepath.Join(c.Models.Dir, c.Models.DensityFile)
}

// ReconstructionPath is the full path of the reconstruction model artefact.
func (c *Config) ReconstructionPath() string {
	return filepath.Join(c.Models.Dir, c.Models.ReconstructionFile)
}

func mergeWithEnv(c *Config) {
	if dir := os.Getenv("MODEL_DIR"); dir != "" {
		c.Models.Dir = dir
	}
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		c.Models.ONNXLibrary = lib
	}
	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		c.OCR.TessdataPrefix = prefix
	}
	if engine := os.Getenv("SLIPCHECK_OCR_ENGINE"); engine != "" {
		c.OCR.Engine = engine
	}
	if level := os.Getenv("SLIPCHECK_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
