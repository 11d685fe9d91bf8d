package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DecodeFile reads and decodes the image stored at path.
func DecodeFile(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

// Decode reads an encoded image and converts it to the normalized model.
func Decode(r io.Reader) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(src, canonicalFormat(format)), nil
}

func canonicalFormat(name string) string {
	switch name {
	case "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	default:
		return name
	}
}

// FromImage converts a standard library image. format records the container.
func FromImage(src image.Image, format string) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	switch s := src.(type) {
	case *image.Gray:
		out := New(w, h, 1, 8)
		for y := 0; y < h; y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			row := s.Pix[off : off+w]
			for x, v := range row {
				out.Planes[0][y*w+x] = float32(v) / 255
			}
		}
		out.Format = format
		return out
	case *image.Gray16:
		out := New(w, h, 1, 16)
		for y := 0; y < h; y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			row := s.Pix[off : off+2*w]
			for x := 0; x < w; x++ {
				v := uint16(row[2*x])<<8 | uint16(row[2*x+1])
				out.Planes[0][y*w+x] = float32(v) / 65535
			}
		}
		out.Format = format
		return out
	case *image.NRGBA:
		out := New(w, h, 4, 8)
		for y := 0; y < h; y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			row := s.Pix[off : off+4*w]
			for x := 0; x < w; x++ {
				for c := 0; c < 4; c++ {
					out.Planes[c][y*w+x] = float32(row[4*x+c]) / 255
				}
			}
		}
		out.Format = format
		return out
	case *image.RGBA:
		if s.Opaque() {
			out := New(w, h, 3, 8)
			for y := 0; y < h; y++ {
				off := s.PixOffset(b.Min.X, b.Min.Y+y)
				row := s.Pix[off : off+4*w]
				for x := 0; x < w; x++ {
					for c := 0; c < 3; c++ {
						out.Planes[c][y*w+x] = float32(row[4*x+c]) / 255
					}
				}
			}
			out.Format = format
			return out
		}
	}

	return fromGeneric(src, format)
}

func fromGeneric(src image.Image, format string) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	depth := 8
	switch src.ColorModel() {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model, color.Alpha16Model:
		depth = 16
	}

	channels := 4
	switch src.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		channels = 1
	default:
		if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
			channels = 3
		}
	}

	out := New(w, h, channels, depth)
	out.Format = format
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			i := y*w + x
			if channels == 1 {
				out.Planes[0][i] = float32(c.R) / 65535
				continue
			}
			out.Planes[0][i] = float32(c.R) / 65535
			out.Planes[1][i] = float32(c.G) / 65535
			out.Planes[2][i] = float32(c.B) / 65535
			if channels == 4 {
				out.Planes[3][i] = float32(c.A) / 65535
			}
		}
	}
	return out
}
