package hasher

import (
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	// Stdlib decoders for jpeg/png/gif, x/image decoders for the rest of
	// the supported extensions. Registration side effects only.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Perceptual hash geometry: the image is reduced to a gridSize x gridSize
// luminance grid and transformed; the top-left dctSize x dctSize block of
// coefficients encodes the coarse visual structure. The block's first row
// (the DC coefficient and the rest of its row) is discarded, leaving
// hashBits coefficients to threshold.
const (
	gridSize = 32
	dctSize  = 8
	hashBits = (dctSize - 1) * dctSize // 56 -> 7 bytes -> 14 hex chars
)

// Perceptual computes the perceptual fingerprint of an image file.
// Decode failures are returned as errors; the caller excludes the file
// from image comparisons.
func Perceptual(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return PerceptualImage(img), nil
}

// PerceptualImage computes the perceptual fingerprint of a decoded image.
//
// Pipeline: flatten alpha, area-average resize to 32x32, convert to
// luminance, 2-D DCT, threshold the 56 lowest-frequency AC coefficients
// against their mean, pack one bit per coefficient row-major (MSB first).
//
// The code is invariant to small re-encodes and minor pixel noise while
// still distinguishing visually distinct images. Duplicate grouping uses
// byte-for-byte equality only - no Hamming-distance tolerance.
func PerceptualImage(img image.Image) string {
	coeffs := dct2d(luminanceGrid(img))

	var sum float64
	for u := 1; u < dctSize; u++ {
		for v := 0; v < dctSize; v++ {
			sum += coeffs[u][v]
		}
	}
	mean := sum / hashBits

	var packed [hashBits / 8]byte
	bit := 0
	for u := 1; u < dctSize; u++ {
		for v := 0; v < dctSize; v++ {
			if coeffs[u][v] > mean {
				packed[bit/8] |= 1 << (7 - bit%8)
			}
			bit++
		}
	}
	return hex.EncodeToString(packed[:])
}

// luminanceGrid downscales img to gridSize x gridSize using area-averaging
// interpolation and converts it to single-channel luminance.
//
// Area averaging (each destination cell averages the exact source region it
// covers, with fractional edge pixels weighted by coverage) resists aliasing
// when downscaling, unlike nearest-neighbor sampling. Alpha is dropped
// before averaging: the straight RGB values are used as-is.
func luminanceGrid(img image.Image) [gridSize][gridSize]float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var grid [gridSize][gridSize]float64
	if w == 0 || h == 0 {
		return grid
	}

	sx := float64(w) / gridSize
	sy := float64(h) / gridSize

	for gy := 0; gy < gridSize; gy++ {
		y0 := float64(gy) * sy
		y1 := y0 + sy
		for gx := 0; gx < gridSize; gx++ {
			x0 := float64(gx) * sx
			x1 := x0 + sx

			var acc, area float64
			for py := int(y0); py < int(math.Ceil(y1)); py++ {
				wy := overlap(float64(py), float64(py+1), y0, y1)
				for px := int(x0); px < int(math.Ceil(x1)); px++ {
					wx := overlap(float64(px), float64(px+1), x0, x1)
					c := color.NRGBAModel.Convert(img.At(bounds.Min.X+px, bounds.Min.Y+py)).(color.NRGBA)
					luma := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
					acc += luma * wx * wy
					area += wx * wy
				}
			}
			if area > 0 {
				grid[gy][gx] = acc / area
			}
		}
	}
	return grid
}

// overlap returns the length of the intersection of [a0,a1) and [b0,b1).
func overlap(a0, a1, b0, b1 float64) float64 {
	lo := math.Max(a0, b0)
	hi := math.Min(a1, b1)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// dct2d applies an orthonormal 2-D DCT-II to the luminance grid and returns
// the top-left dctSize x dctSize block of coefficients.
//
// Computed separably (rows then columns); only the dctSize lowest
// frequencies of each dimension are materialized since higher frequencies
// are never consulted.
func dct2d(grid [gridSize][gridSize]float64) [dctSize][dctSize]float64 {
	// cosTab[k][n] = cos((2n+1) * k * pi / (2 * gridSize))
	var cosTab [dctSize][gridSize]float64
	for k := 0; k < dctSize; k++ {
		for n := 0; n < gridSize; n++ {
			cosTab[k][n] = math.Cos(float64(2*n+1) * float64(k) * math.Pi / (2 * gridSize))
		}
	}
	scale := func(k int) float64 {
		if k == 0 {
			return math.Sqrt(1.0 / gridSize)
		}
		return math.Sqrt(2.0 / gridSize)
	}

	// Transform rows: rowPass[y][v] for the dctSize lowest column frequencies.
	var rowPass [gridSize][dctSize]float64
	for y := 0; y < gridSize; y++ {
		for v := 0; v < dctSize; v++ {
			var sum float64
			for x := 0; x < gridSize; x++ {
				sum += grid[y][x] * cosTab[v][x]
			}
			rowPass[y][v] = scale(v) * sum
		}
	}

	// Transform columns.
	var out [dctSize][dctSize]float64
	for u := 0; u < dctSize; u++ {
		for v := 0; v < dctSize; v++ {
			var sum float64
			for y := 0; y < gridSize; y++ {
				sum += rowPass[y][v] * cosTab[u][y]
			}
			out[u][v] = scale(u) * sum
		}
	}
	return out
}
