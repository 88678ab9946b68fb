package imaging

import "fmt"

const (
	// maxSourceDimension caps width/height of a decoded slip before scaling.
	maxSourceDimension = 16384
	// maxWorkingPixels bounds the pixel count after upscaling (64 Mi pixels,
	// enough for an A4 page at 300 DPI upscaled 2x). Each filter pass holds
	// two float64 planes of this size, 512 MiB each at the limit.
	maxWorkingPixels int64 = 64 * 1024 * 1024
	// planeBytes is the per-pixel cost of a float64 filter plane.
	planeBytes = 8
)

func validateBounds(width, height int, scale float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxSourceDimension || height > maxSourceDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	pixels := int64(float64(width)*scale) * int64(float64(height)*scale)
	if pixels > maxWorkingPixels {
		return fmt.Errorf("scaled pixel count %d exceeds limit %d (%d MiB per filter plane)",
			pixels, maxWorkingPixels, pixels*planeBytes>>20)
	}
	return nil
}
