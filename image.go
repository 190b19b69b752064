package uhdrgen

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/transfer"
)

// ColorSpace is the color space tag carried by an Image.
type ColorSpace int

// Color space tags.
const (
	// ColorSpaceUnspecified means the image carries no tag, it is treated as sRGB.
	ColorSpaceUnspecified ColorSpace = iota
	// ColorSpaceSRGB is standard sRGB, values in [0, 1].
	ColorSpaceSRGB
	// ColorSpaceExtendedSRGB is sRGB-encoded with values beyond [0, 1].
	ColorSpaceExtendedSRGB
	// ColorSpaceExtendedLinearSRGB is linear-light sRGB primaries, 1.0 being SDR white.
	ColorSpaceExtendedLinearSRGB
)

func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceExtendedSRGB:
		return "extended sRGB"
	case ColorSpaceExtendedLinearSRGB:
		return "extended linear sRGB"
	default:
		return "unspecified"
	}
}

// Color is a straight-alpha float color in the encoding of its image.
type Color struct {
	R, G, B, A float32
}

// Source provides pixels of an Image.
type Source interface {
	// Sample returns the color at x, y, both within image bounds.
	Sample(x, y int) Color
}

// Image is an immutable image handle with a color space tag.
type Image struct {
	width, height int
	colorSpace    ColorSpace
	src           Source
}

// NewImage creates an image from a pixel source.
func NewImage(width, height int, cs ColorSpace, src Source) *Image {
	return &Image{width: width, height: height, colorSpace: cs, src: src}
}

// FromImage wraps a decoded raster image.
func FromImage(img image.Image, cs ColorSpace) *Image {
	b := img.Bounds()
	return NewImage(b.Dx(), b.Dy(), cs, rasterSource{img: img})
}

// NewFloatImage creates an image from straight-alpha RGBA float samples, row-major.
func NewFloatImage(width, height int, cs ColorSpace, pix []float32) *Image {
	return NewImage(width, height, cs, floatSource{w: width, h: height, pix: pix})
}

// Width returns the image width in pixels.
func (i *Image) Width() int { return i.width }

// Height returns the image height in pixels.
func (i *Image) Height() int { return i.height }

// ColorSpace returns the color space tag.
func (i *Image) ColorSpace() ColorSpace { return i.colorSpace }

// Source returns the pixel source.
func (i *Image) Source() Source { return i.src }

// Sample returns the color at x, y.
func (i *Image) Sample(x, y int) Color { return i.src.Sample(x, y) }

func (i *Image) empty() bool {
	return i == nil || i.src == nil || i.width <= 0 || i.height <= 0
}

// check reports a source that cannot produce every pixel of the image.
func (i *Image) check() error {
	if c, ok := i.src.(sourceChecker); ok {
		return c.check()
	}
	return nil
}

// sourceChecker is implemented by sources backed by caller-supplied buffers
// and by transforms wrapping other sources.
type sourceChecker interface {
	check() error
}

// Map returns a lazily filtered image tagged cs.
func (i *Image) Map(cs ColorSpace, fn func(c Color) Color) *Image {
	return NewImage(i.width, i.height, cs, filterSource{src: i.src, fn: fn})
}

// Linear returns the linear-light value of c according to the image tag.
func (i *Image) Linear(c Color) Color {
	if i.colorSpace == ColorSpaceExtendedLinearSRGB {
		return c
	}
	return Color{
		R: transfer.SRGBDecode(c.R),
		G: transfer.SRGBDecode(c.G),
		B: transfer.SRGBDecode(c.B),
		A: c.A,
	}
}

// Materialize copies all pixels into a float raster, detaching the result
// from lazy sources.
func (i *Image) Materialize() *Image {
	pix := make([]float32, 0, i.width*i.height*4)
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			c := i.src.Sample(x, y)
			pix = append(pix, c.R, c.G, c.B, c.A)
		}
	}
	return NewFloatImage(i.width, i.height, i.colorSpace, pix)
}

type rasterSource struct {
	img image.Image
}

func (s rasterSource) Sample(x, y int) Color {
	b := s.img.Bounds()
	x, y = b.Min.X+x, b.Min.Y+y
	if n, ok := s.img.(*image.NRGBA); ok {
		c := n.NRGBAAt(x, y)
		return Color{R: float32(c.R) / 0xFF, G: float32(c.G) / 0xFF, B: float32(c.B) / 0xFF, A: float32(c.A) / 0xFF}
	}
	c := color.NRGBA64Model.Convert(s.img.At(x, y)).(color.NRGBA64)
	return Color{R: float32(c.R) / 0xFFFF, G: float32(c.G) / 0xFFFF, B: float32(c.B) / 0xFFFF, A: float32(c.A) / 0xFFFF}
}

type floatSource struct {
	w, h int
	pix  []float32
}

func (s floatSource) check() error {
	if s.w < 0 || s.h < 0 || len(s.pix) != s.w*s.h*4 {
		return errors.Errorf("float raster %dx%d has %d samples, want %d", s.w, s.h, len(s.pix), s.w*s.h*4)
	}
	return nil
}

func (s floatSource) Sample(x, y int) Color {
	i := (y*s.w + x) * 4
	return Color{R: s.pix[i], G: s.pix[i+1], B: s.pix[i+2], A: s.pix[i+3]}
}

type filterSource struct {
	src Source
	fn  func(c Color) Color
}

func (s filterSource) Sample(x, y int) Color {
	return s.fn(s.src.Sample(x, y))
}

func (s filterSource) check() error {
	if c, ok := s.src.(sourceChecker); ok {
		return c.check()
	}
	return nil
}
