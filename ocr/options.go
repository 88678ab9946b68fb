package ocr

import "strconv"

// Tesseract variable names understood by the engines in ocr/tesseract.
const (
	VarPageSegMode = "tessedit_pageseg_mode"
	VarEngineMode  = "tessedit_ocr_engine_mode"
)

// InputOption mutates an OCR input.
type InputOption func(*Input)

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// WithTesseractPSM sets the page segmentation mode (PSM) variable for Tesseract.
// See https://tesseract-ocr.github.io/tessdoc/ImproveQuality.html#page-segmentation-method for values.
func WithTesseractPSM(mode int) InputOption {
	return setVar(VarPageSegMode, strconv.Itoa(mode))
}

// WithTesseractOEM records the OCR engine mode (0 legacy, 1 LSTM, 2 both,
// 3 default). Engines that fix the mode at initialisation read it from here.
func WithTesseractOEM(mode int) InputOption {
	return setVar(VarEngineMode, strconv.Itoa(mode))
}

func setVar(key, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[key] = value
	}
}
