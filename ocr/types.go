package ocr

import (
	"context"
	"strings"
)

// ImageFormat is the MIME type of Input.Image.
type ImageFormat string

// ImageFormatPNG is the only format the recognizer produces: binarised slips
// compress well as PNG and every engine accepts it.
const ImageFormatPNG ImageFormat = "image/png"

// Input is one binarised slip handed to an engine.
type Input struct {
	// ID ties log lines and the Result back to the request.
	ID     string
	Image  []byte
	Format ImageFormat
	// DPI is the effective resolution after upscaling; 0 lets the engine guess.
	DPI int
	// Languages are Tesseract codes tried together, e.g. tha+eng.
	Languages []string
	// Metadata carries engine variables such as VarPageSegMode.
	Metadata map[string]string
}

// Var returns the engine variable key and whether it was set.
func (in Input) Var(key string) (string, bool) {
	v, ok := in.Metadata[key]
	return v, ok
}

// Result is the text an engine read from one Input.
type Result struct {
	InputID string
	// PlainText keeps the engine's line breaks; field rules are line based.
	PlainText string
	// Confidence is the mean word confidence in [0,1], 0 when not reported.
	Confidence float64
	Language   string
}

// Empty reports whether nothing legible was found.
func (r Result) Empty() bool { return strings.TrimSpace(r.PlainText) == "" }

// Engine recognises text in a single slip image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
