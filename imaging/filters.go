package imaging

import (
	"image"
	"math"
)

// Fixed binomial kernels used for small Gaussian windows when no sigma is
// given. Larger windows derive sigma from the window size.
var smallGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// gaussianKernel returns a normalised 1D Gaussian of the given odd size.
// A non-positive sigma is derived from size.
func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		if k, ok := smallGaussianKernels[size]; ok {
			out := make([]float64, len(k))
			copy(out, k)
			return out
		}
		sigma = 0.3*((float64(size)-1)*0.5-1) + 0.8
	}
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

type borderFunc func(i, n int) int

// reflect101 mirrors around the edge pixel without repeating it: gfedcb|abcdefgh|gfedcba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh.
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// convolve applies k horizontally then vertically to an origin-based grey
// image and returns the float result.
func convolve(src *image.Gray, k []float64, border borderFunc) []float64 {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	half := len(k) / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[border(x+i-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[border(y+i-half, h)*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// gaussianBlur smooths src with a size×size Gaussian (reflect-101 border).
func gaussianBlur(src *image.Gray, size int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	blurred := convolve(src, gaussianKernel(size, 0), reflect101)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range blurred {
		dst.Pix[i] = clampByte(v)
	}
	return dst
}

// adaptiveThreshold binarises src against a Gaussian-weighted local mean over
// a block×block window (replicate border). A pixel is white when it is
// brighter than the local mean minus c, black otherwise.
func adaptiveThreshold(src *image.Gray, block int, c float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	mean := convolve(src, gaussianKernel(block, 0), replicate)
	delta := int(math.Ceil(c))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(src.Pix[y*src.Stride+x])
			if v-int(clampByte(mean[y*w+x])) > -delta {
				dst.Pix[y*w+x] = 255
			}
		}
	}
	return dst
}
