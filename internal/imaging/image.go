package imaging

import "fmt"

// Image is a planar, normalized image. Planes[c][y*Width+x] holds channel c.
type Image struct {
	Width    int
	Height   int
	Planes   [][]float32
	BitDepth int
	Format   string
}

// New allocates a zeroed image.
func New(width, height, channels, bitDepth int) *Image {
	planes := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, width*height)
	}
	return &Image{Width: width, Height: height, Planes: planes, BitDepth: bitDepth}
}

// Channels returns the number of planes.
func (im *Image) Channels() int {
	return len(im.Planes)
}

// MaxDim returns the larger of width and height.
func (im *Image) MaxDim() int {
	return max(im.Width, im.Height)
}

// HasAlpha reports whether the image carries a fourth (alpha) channel.
func (im *Image) HasAlpha() bool {
	return len(im.Planes) == 4
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := &Image{Width: im.Width, Height: im.Height, BitDepth: im.BitDepth, Format: im.Format}
	out.Planes = make([][]float32, len(im.Planes))
	for c, plane := range im.Planes {
		out.Planes[c] = append([]float32(nil), plane...)
	}
	return out
}

// String renders a compact description for logs.
func (im *Image) String() string {
	return fmt.Sprintf("%dx%d %dch %dbit", im.Width, im.Height, len(im.Planes), im.BitDepth)
}

// ConstantPlane returns a plane filled with value.
func ConstantPlane(width, height int, value float32) []float32 {
	plane := make([]float32, width*height)
	for i := range plane {
		plane[i] = value
	}
	return plane
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
