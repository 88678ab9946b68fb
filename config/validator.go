package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Imaging.DPI < 72 || c.Imaging.DPI > 1200 {
		errors = append(errors, ValidationError{
			Field:   "imaging.dpi",
			Message: "dpi must be between 72 and 1200",
		})
	}

	if c.Imaging.Scale < 1 || c.Imaging.Scale > 4 {
		errors = append(errors, ValidationError{
			Field:   "imaging.scale",
			Message: "scale must be between 1 and 4",
		})
	}

	if c.Imaging.BlurKernel < 1 || c.Imaging.BlurKernel%2 == 0 {
		errors = append(errors, ValidationError{
			Field:   "imaging.blur_kernel",
			Message: "blur_kernel must be a positive odd number",
		})
	}

	if c.Imaging.ThresholdBlock < 3 || c.Imaging.ThresholdBlock%2 == 0 {
		errors = append(errors, ValidationError{
			Field:   "imaging.threshold_block",
			Message: "threshold_block must be an odd number >= 3",
		})
	}

	switch c.OCR.Engine {
	case EngineLibrary, EngineCLI:
	default:
		errors = append(errors, ValidationError{
			Field:   "ocr.engine",
			Message: fmt.Sprintf("unknown engine %q (want %q or %q)", c.OCR.Engine, EngineLibrary, EngineCLI),
		})
	}

	if len(c.OCR.Languages) == 0 {
		errors = append(errors, ValidationError{
			Field:   "ocr.languages",
			Message: "at least one language is required",
		})
	}
	for _, lang := range c.OCR.Languages {
		if strings.TrimSpace(lang) == "" || strings.ContainsAny(lang, "+ ") {
			errors = append(errors, ValidationError{
				Field:   "ocr.languages",
				Message: fmt.Sprintf("invalid language code: %q", lang),
			})
		}
	}

	if m := c.OCR.PageSegMode; m != nil && (*m < 0 || *m > 13) {
		errors = append(errors, ValidationError{
			Field:   "ocr.page_seg_mode",
			Message: "page_seg_mode must be between 0 and 13",
		})
	}

	if m := c.OCR.EngineMode; m != nil && (*m < 0 || *m > 3) {
		errors = append(errors, ValidationError{
			Field:   "ocr.engine_mode",
			Message: "engine_mode must be between 0 and 3",
		})
	}

	for field, name := range map[string]string{
		"models.density_file":        c.Models.DensityFile,
		"models.reconstruction_file": c.Models.ReconstructionFile,
	} {
		if name == "" || filepath.Base(name) != name {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "must be a plain file name inside models.dir",
			})
		}
	}

	if c.Models.DensityFile != "" && c.Models.DensityFile == c.Models.ReconstructionFile {
		errors = append(errors, ValidationError{
			Field:   "models.reconstruction_file",
			Message: "must differ from models.density_file",
		})
	}

	return errors
}
