// Package imaging implements the pixel-level work of the pipeline on a
// normalized floating-point image model.
//
// Decoded images keep one float32 plane per channel with values in [0,1] and
// remember the bit-depth class (8 or 16) and container format they came from.
// All transforms (inversion, channel extraction, channel packing, resampling)
// run on that representation so 8-bit and 16-bit sources share one code path;
// quantization back to integer samples happens only in Encode.
//
// Decoding supports PNG, JPEG, TIFF, and BMP. Encoding supports PNG (8/16 bit),
// JPEG (8 bit), and TIFF (8/16 bit). Resampling uses golang.org/x/image/draw.
package imaging
