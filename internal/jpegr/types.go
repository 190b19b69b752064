package jpegr

import (
	"fmt"

	"github.com/pkg/errors"
)

// PixelFormat identifies the layout of a raw pixel buffer.
type PixelFormat int

// Supported raw formats, all row-major with premultiplied alpha and no row padding.
const (
	// PixelFormatRGBA8888 holds sRGB-encoded 8-bit R, G, B, A bytes.
	PixelFormatRGBA8888 PixelFormat = 0
	// PixelFormatRGBA1010102 holds HLG-encoded 10-bit channels and a 2-bit alpha
	// in a little-endian uint32: R bits 0-9, G 10-19, B 20-29, A 30-31.
	PixelFormatRGBA1010102 PixelFormat = 1
	// PixelFormatRGBAF16 holds linear R, G, B, A as little-endian IEEE 754 half floats,
	// 1.0 being SDR white.
	PixelFormatRGBAF16 PixelFormat = 2
)

// BytesPerPixel returns the packed pixel size, or 0 for an unknown format.
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

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8888:
		return "RGBA_8888"
	case PixelFormatRGBA1010102:
		return "RGBA_1010102"
	case PixelFormatRGBAF16:
		return "RGBA_F16"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Buffer is a tightly packed raw image.
type Buffer struct {
	Format PixelFormat
	Width  int
	Height int
	Pix    []byte
}

func (b *Buffer) validate() error {
	if b == nil {
		return errors.New("buffer missing")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return errors.Errorf("invalid dimensions %dx%d", b.Width, b.Height)
	}
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		return errors.Errorf("unsupported pixel format %s", b.Format)
	}
	if want := b.Width * b.Height * bpp; len(b.Pix) != want {
		return errors.Errorf("%s buffer size mismatch: got %d bytes, want %d", b.Format, len(b.Pix), want)
	}
	return nil
}

// GainMapMetadata is the float form of the gain map metadata.
// Boosts are linear ratios, HDR capacities are linear headroom values.
type GainMapMetadata struct {
	Version         string
	MaxContentBoost [3]float32
	MinContentBoost [3]float32
	Gamma           [3]float32
	OffsetSDR       [3]float32
	OffsetHDR       [3]float32
	HDRCapacityMin  float32
	HDRCapacityMax  float32
	UseBaseCG       bool
}

// SingleChannelMetadata returns metadata with identical values in every channel.
func SingleChannelMetadata(minBoost, maxBoost, gamma, offset float32) *GainMapMetadata {
	m := &GainMapMetadata{
		Version:        jpegrVersion,
		HDRCapacityMin: 1,
		HDRCapacityMax: maxBoost,
		UseBaseCG:      true,
	}
	if m.HDRCapacityMax < 1 {
		m.HDRCapacityMax = 1
	}
	for i := 0; i < 3; i++ {
		m.MinContentBoost[i] = minBoost
		m.MaxContentBoost[i] = maxBoost
		m.Gamma[i] = gamma
		m.OffsetSDR[i] = offset
		m.OffsetHDR[i] = offset
	}
	return m
}

// Options controls encoding.
type Options struct {
	// GainMapQuality is the JPEG quality of generated gain maps.
	GainMapQuality int
	// GainMapScale is the downscale factor of generated gain maps (>= 1).
	GainMapScale int
	// GainMapGamma is the gamma applied to generated gain maps.
	GainMapGamma float32
	// PairMetadata describes gain maps supplied as compressed JPEGs,
	// which carry no metadata of their own.
	PairMetadata *GainMapMetadata
}

const (
	jpegrVersion = "1.0"

	defaultGainMapQuality = 85
	defaultGainMapScale   = 4
	defaultGainMapGamma   = 1.0
)

// DefaultPairMetadata describes a single-channel gain map spanning 1x to 4x boost.
func DefaultPairMetadata() *GainMapMetadata {
	return SingleChannelMetadata(1, 4, 1, 1.0/64.0)
}
