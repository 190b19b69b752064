package uhdrgen

import (
	"fmt"
)

// PixelFormat is the packed layout of a raw pixel buffer, numerically
// matching the encoder's formats.
type PixelFormat int

// Supported pixel formats.
const (
	// PixelFormatRGBA8888 is 8-bit sRGB-encoded R, G, B, A, premultiplied.
	PixelFormatRGBA8888 PixelFormat = 0
	// PixelFormatRGBA1010102 is HLG-encoded 10-bit R, G, B and 2-bit alpha,
	// premultiplied, in a little-endian uint32 (R in the lowest bits).
	PixelFormatRGBA1010102 PixelFormat = 1
	// PixelFormatRGBAF16 is linear R, G, B, A as little-endian half floats,
	// premultiplied, 1.0 being SDR white.
	PixelFormatRGBAF16 PixelFormat = 2
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8888:
		return "RGBA_8_8_8_8"
	case PixelFormatRGBA1010102:
		return "RGBA_10_10_10_2"
	case PixelFormatRGBAF16:
		return "RGBA_F16"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// BytesPerPixel returns the packed pixel size, 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8888, PixelFormatRGBA1010102:
		return 4
	case PixelFormatRGBAF16:
		return 8
	default:
		return 0
	}
}

// BytesPerRow returns the tightly packed row size for width pixels.
func (f PixelFormat) BytesPerRow(width int) int {
	return width * f.BytesPerPixel()
}

// ResolvePixelFormat maps the image color space tag to the raw format the
// encoder expects. It never fails: untagged, standard and nil images get
// PixelFormatRGBA8888.
func ResolvePixelFormat(img *Image) PixelFormat {
	if img == nil {
		return PixelFormatRGBA8888
	}
	switch img.ColorSpace() {
	case ColorSpaceExtendedLinearSRGB:
		return PixelFormatRGBAF16
	case ColorSpaceExtendedSRGB:
		return PixelFormatRGBA1010102
	default:
		return PixelFormatRGBA8888
	}
}
