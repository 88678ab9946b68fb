// Package imaging turns a photographed or scanned transfer slip into a clean
// black-and-white raster for OCR. PDFs are rasterised (first page only)
// before the same raster pipeline runs.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/slipcheck/dependency"
)

// ErrUnreadableImage reports input that cannot be decoded as an image at all.
// Callers treat it as "no extractable fields", not as a failure.
var ErrUnreadableImage = errors.New("unreadable image")

// Options holds the preprocessing constants.
type Options struct {
	// Scale is the upscale factor applied with cubic interpolation.
	Scale float64
	// BlurKernel is the odd window size of the denoising Gaussian.
	BlurKernel int
	// ThresholdBlock is the odd window size of the adaptive threshold.
	ThresholdBlock int
	// ThresholdC is subtracted from the local mean before comparison. It is
	// used as given; 0 compares against the plain mean.
	ThresholdC float64
}

// DefaultOptions are the values slips were tuned with.
func DefaultOptions() Options {
	return Options{Scale: 2, BlurKernel: 5, ThresholdBlock: 31, ThresholdC: 10}
}

// Rasterizer renders the first page of a PDF to an encoded raster image.
type Rasterizer interface {
	FirstPage(ctx context.Context, pdf []byte) ([]byte, error)
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	opts   Options
	raster Rasterizer
}

// New builds a normalizer. Non-positive sizes and scale take their
// DefaultOptions values. raster may be nil, in which case PDF input is
// reported as a missing dependency.
func New(opts Options, raster Rasterizer) *Normalizer {
	def := DefaultOptions()
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	if opts.BlurKernel <= 0 {
		opts.BlurKernel = def.BlurKernel
	}
	if opts.ThresholdBlock <= 0 {
		opts.ThresholdBlock = def.ThresholdBlock
	}
	return &Normalizer{opts: opts, raster: raster}
}

// NormalizeFile reads path and normalizes its content.
func (n *Normalizer) NormalizeFile(ctx context.Context, path string) (*image.Gray, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return n.Normalize(ctx, data)
}

// Normalize decodes data (raster image or PDF) and returns the binarised
// image. Undecodable input yields ErrUnreadableImage; a PDF without a usable
// rasterizer yields a dependency error.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (*image.Gray, error) {
	if IsPDF(data) {
		if n.raster == nil {
			return nil, dependency.Missing("pdf rasterizer", nil)
		}
		page, err := n.raster.FirstPage(ctx, data)
		if err != nil {
			return nil, err
		}
		data = page
	}

	src, err := decode(data, n.opts.Scale)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := toGray(upscale(src, n.opts.Scale))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blurred := gaussianBlur(gray, n.opts.BlurKernel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return adaptiveThreshold(blurred, n.opts.ThresholdBlock, n.opts.ThresholdC), nil
}

// IsPDF reports whether data carries a PDF header near its start.
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

func decode(data []byte, scale float64) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadableImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if err := validateBounds(cfg.Width, cfg.Height, scale); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return img, nil
}

// upscale resamples src by factor with Catmull-Rom (cubic) interpolation onto
// a white canvas so transparent regions read as paper.
func upscale(src image.Image, factor float64) *image.RGBA {
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func toGray(src *image.RGBA) *image.Gray {
	dst := image.NewGray(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
