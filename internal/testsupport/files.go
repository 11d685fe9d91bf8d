package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"texforge/internal/imaging"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteImage encodes img at path with the given format and depth.
func WriteImage(t testing.TB, path string, img *imaging.Image, format string, depth int) {
	t.Helper()
	if err := imaging.EncodeFile(path, img, format, depth, imaging.EncodeOptions{JPGQuality: 95, PNGCompression: 6}); err != nil {
		t.Fatalf("write image %s: %v", path, err)
	}
}

// ReadImage decodes the image at path.
func ReadImage(t testing.TB, path string) *imaging.Image {
	t.Helper()
	img, err := imaging.DecodeFile(path)
	if err != nil {
		t.Fatalf("read image %s: %v", path, err)
	}
	return img
}

// Uniform builds an image whose channel c holds values[c] everywhere.
func Uniform(width, height, bitDepth int, values ...float32) *imaging.Image {
	img := imaging.New(width, height, len(values), bitDepth)
	for c, v := range values {
		img.Planes[c] = imaging.ConstantPlane(width, height, v)
	}
	return img
}

// Gradient builds an image with a horizontal ramp in every channel.
func Gradient(width, height, channels, bitDepth int) *imaging.Image {
	img := imaging.New(width, height, channels, bitDepth)
	for c := 0; c < channels; c++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := float32(0)
				if width > 1 {
					v = float32(x) / float32(width-1)
				}
				img.Planes[c][y*width+x] = v
			}
		}
	}
	return img
}
