package imaging

import (
	"image"
	"math/bits"

	"golang.org/x/image/draw"
)

// Resize resamples every plane independently to width x height.
func Resize(img *Image, width, height int, interpolation string) *Image {
	if width == img.Width && height == img.Height {
		return img.Clone()
	}
	scaler := interpolator(interpolation)
	out := &Image{Width: width, Height: height, BitDepth: img.BitDepth, Format: img.Format}
	out.Planes = make([][]float32, len(img.Planes))
	for c, plane := range img.Planes {
		src := planeToGray16(plane, img.Width, img.Height)
		dst := image.NewGray16(image.Rect(0, 0, width, height))
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out.Planes[c] = gray16ToPlane(dst)
	}
	return out
}

func interpolator(name string) draw.Interpolator {
	switch name {
	case "nearest":
		return draw.NearestNeighbor
	case "approxbilinear":
		return draw.ApproxBiLinear
	case "bilinear":
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

func planeToGray16(plane []float32, w, h int) *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, w, h))
	for i, v := range plane {
		q := quantize16(v)
		out.Pix[2*i] = uint8(q >> 8)
		out.Pix[2*i+1] = uint8(q)
	}
	return out
}

func gray16ToPlane(img *image.Gray16) []float32 {
	n := len(img.Pix) / 2
	plane := make([]float32, n)
	for i := 0; i < n; i++ {
		v := uint16(img.Pix[2*i])<<8 | uint16(img.Pix[2*i+1])
		plane[i] = float32(v) / 65535
	}
	return plane
}

// TargetDimensions fits width x height into a square of side res while keeping
// the aspect ratio. The longer side becomes res; the shorter side is truncated
// and never drops below 1. Sources already within res are returned unchanged.
func TargetDimensions(width, height, res int) (int, int) {
	if max(width, height) <= res {
		return width, height
	}
	if width >= height {
		return res, max(1, int(float64(res)*float64(height)/float64(width)))
	}
	return max(1, int(float64(res)*float64(width)/float64(height))), res
}

// FloorPowerOfTwo returns the largest power of two not greater than n (n >= 1).
func FloorPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// PowerOfTwoDimensions floors each side to a power of two.
func PowerOfTwoDimensions(width, height int) (int, int) {
	return FloorPowerOfTwo(width), FloorPowerOfTwo(height)
}
