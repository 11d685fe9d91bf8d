package imaging

// Invert returns a copy with every colour channel mapped to 1-v. Alpha is
// preserved. Bit depth is unchanged so re-encoding keeps the depth class.
func Invert(img *Image) *Image {
	out := img.Clone()
	colour := len(out.Planes)
	if colour == 4 {
		colour = 3
	}
	for c := 0; c < colour; c++ {
		invertPlane(out.Planes[c])
	}
	return out
}

// InvertChannel returns a copy with only channel c inverted.
func InvertChannel(img *Image, c int) *Image {
	out := img.Clone()
	if c >= 0 && c < len(out.Planes) {
		invertPlane(out.Planes[c])
	}
	return out
}

func invertPlane(plane []float32) {
	for i, v := range plane {
		plane[i] = clamp01(1 - v)
	}
}

// ExtractChannel returns channel c as a standalone grayscale image.
func ExtractChannel(img *Image, c int) *Image {
	out := &Image{Width: img.Width, Height: img.Height, BitDepth: img.BitDepth, Format: img.Format}
	out.Planes = [][]float32{append([]float32(nil), img.Planes[c]...)}
	return out
}

// ChannelPlane returns the plane that supplies channel index c when the image
// is used as a packing input. Grayscale images supply their single plane for
// every index; colour images fall back to their first plane when c is out of
// range.
func (im *Image) ChannelPlane(c int) []float32 {
	if len(im.Planes) == 1 || c < 0 || c >= len(im.Planes) {
		return im.Planes[0]
	}
	return im.Planes[c]
}

// Compose builds an image from planes of identical size.
func Compose(width, height, bitDepth int, planes [][]float32) *Image {
	return &Image{Width: width, Height: height, BitDepth: bitDepth, Planes: planes}
}

// IsUniform reports whether every sample of plane equals value within eps.
func IsUniform(plane []float32, value, eps float32) bool {
	for _, v := range plane {
		d := v - value
		if d < -eps || d > eps {
			return false
		}
	}
	return true
}
