package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
)

// ErrUnsupportedDepth reports a format that cannot store the requested depth.
var ErrUnsupportedDepth = errors.New("format does not support bit depth")

// EncodeOptions carries encoder tuning knobs.
type EncodeOptions struct {
	JPGQuality     int
	PNGCompression int
}

// Encode writes img in format ("png", "jpg", "tif") quantized to depth bits.
func Encode(w io.Writer, img *Image, format string, depth int, opts EncodeOptions) error {
	if depth != 8 && depth != 16 {
		return fmt.Errorf("%w: %d", ErrUnsupportedDepth, depth)
	}
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: pngLevel(opts.PNGCompression)}
		return enc.Encode(w, img.ToStd(depth))
	case "jpg":
		if depth != 8 {
			return fmt.Errorf("%w: jpg cannot store %d-bit samples", ErrUnsupportedDepth, depth)
		}
		quality := opts.JPGQuality
		if quality < 1 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img.withoutAlpha().ToStd(8), &jpeg.Options{Quality: quality})
	case "tif":
		return tiff.Encode(w, img.ToStd(depth), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// EncodeFile writes img to path, creating parent directories. A partially
// written file is removed when encoding fails.
func EncodeFile(path string, img *Image, format string, depth int, opts EncodeOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return Encode(file, img, format, depth, opts)
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func (im *Image) withoutAlpha() *Image {
	if len(im.Planes) != 4 {
		return im
	}
	out := *im
	out.Planes = im.Planes[:3]
	return &out
}

// ToStd converts to a standard library image quantized to depth bits.
// One channel maps to Gray, three to opaque RGBA, four to NRGBA. Two-channel
// images gain a zero blue channel.
func (im *Image) ToStd(depth int) image.Image {
	w, h := im.Width, im.Height
	rect := image.Rect(0, 0, w, h)
	planes := im.Planes
	if len(planes) == 2 {
		planes = append(append([][]float32(nil), planes...), make([]float32, w*h))
	}

	switch len(planes) {
	case 1:
		if depth == 16 {
			out := image.NewGray16(rect)
			for i, v := range planes[0] {
				q := quantize16(v)
				out.Pix[2*i] = uint8(q >> 8)
				out.Pix[2*i+1] = uint8(q)
			}
			return out
		}
		out := image.NewGray(rect)
		for i, v := range planes[0] {
			out.Pix[i] = quantize8(v)
		}
		return out
	case 3:
		if depth == 16 {
			out := image.NewRGBA64(rect)
			for i := 0; i < w*h; i++ {
				out.SetRGBA64(i%w, i/w, color.RGBA64{
					R: quantize16(planes[0][i]),
					G: quantize16(planes[1][i]),
					B: quantize16(planes[2][i]),
					A: 0xffff,
				})
			}
			return out
		}
		out := image.NewRGBA(rect)
		for i := 0; i < w*h; i++ {
			out.Pix[4*i] = quantize8(planes[0][i])
			out.Pix[4*i+1] = quantize8(planes[1][i])
			out.Pix[4*i+2] = quantize8(planes[2][i])
			out.Pix[4*i+3] = 0xff
		}
		return out
	default:
		if depth == 16 {
			out := image.NewNRGBA64(rect)
			for i := 0; i < w*h; i++ {
				out.SetNRGBA64(i%w, i/w, color.NRGBA64{
					R: quantize16(planes[0][i]),
					G: quantize16(planes[1][i]),
					B: quantize16(planes[2][i]),
					A: quantize16(planes[3][i]),
				})
			}
			return out
		}
		out := image.NewNRGBA(rect)
		for i := 0; i < w*h; i++ {
			for c := 0; c < 4; c++ {
				out.Pix[4*i+c] = quantize8(planes[c][i])
			}
		}
		return out
	}
}

func quantize8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

func quantize16(v float32) uint16 {
	return uint16(clamp01(v)*65535 + 0.5)
}
