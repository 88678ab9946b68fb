package pipeline

import (
	"github.com/wudi/slipcheck/imaging"
	"github.com/wudi/slipcheck/observability"
	"github.com/wudi/slipcheck/ocr"
	"github.com/wudi/slipcheck/risk"
)

// Option customises a Pipeline.
type Option func(*options)

type options struct {
	logger observability.Logger
	tracer observability.Tracer

	engine ocr.Engine

	loader    risk.Loader
	loaderSet bool

	raster    imaging.Rasterizer
	rasterSet bool
}

// WithLogger sets the logger. Defaults to observability.NopLogger.
func WithLogger(l observability.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer wraps each stage in a span. Defaults to a no-op tracer.
func WithTracer(t observability.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithEngine replaces the OCR engine selected by configuration.
func WithEngine(e ocr.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLoader replaces the ONNX model loader. A nil loader leaves every model
// absent, so scores stay neutral.
func WithLoader(l risk.Loader) Option {
	return func(o *options) {
		o.loader = l
		o.loaderSet = true
	}
}

// WithRasterizer replaces the pdftoppm rasterizer. A nil rasterizer turns
// PDF input into a dependency error.
func WithRasterizer(r imaging.Rasterizer) Option {
	return func(o *options) {
		o.raster = r
		o.rasterSet = true
	}
}
