package jpegr

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/vearutop/uhdrgen/internal/transfer"
	"github.com/x448/float16"
)

type rgb struct {
	r, g, b float32
}

// linearImage stores linear-light RGB relative to SDR white (1.0 = SDR white).
type linearImage struct {
	w, h int
	pix  []float32
}

func newLinearImage(w, h int) *linearImage {
	return &linearImage{w: w, h: h, pix: make([]float32, w*h*3)}
}

func (l *linearImage) at(x, y int) rgb {
	i := (y*l.w + x) * 3
	return rgb{r: l.pix[i], g: l.pix[i+1], b: l.pix[i+2]}
}

func (l *linearImage) set(x, y int, v rgb) {
	i := (y*l.w + x) * 3
	l.pix[i], l.pix[i+1], l.pix[i+2] = v.r, v.g, v.b
}

func (l *linearImage) peak() float32 {
	var p float32
	for _, v := range l.pix {
		if v > p {
			p = v
		}
	}
	return p
}

// unpackLinear decodes a raw buffer into linear light, undoing premultiplication.
func unpackLinear(b *Buffer) (*linearImage, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	out := newLinearImage(b.Width, b.Height)
	n := b.Width * b.Height
	for i := 0; i < n; i++ {
		var r, g, bl, a float32
		switch b.Format {
		case PixelFormatRGBA8888:
			p := b.Pix[i*4 : i*4+4]
			r, g, bl, a = float32(p[0])/255, float32(p[1])/255, float32(p[2])/255, float32(p[3])/255
			r, g, bl = unpremultiply(r, g, bl, a)
			r, g, bl = transfer.SRGBDecode(r), transfer.SRGBDecode(g), transfer.SRGBDecode(bl)
		case PixelFormatRGBA1010102:
			v := binary.LittleEndian.Uint32(b.Pix[i*4:])
			r = float32(v&0x3ff) / 1023
			g = float32((v>>10)&0x3ff) / 1023
			bl = float32((v>>20)&0x3ff) / 1023
			a = float32(v>>30) / 3
			r, g, bl = unpremultiply(r, g, bl, a)
			r, g, bl = transfer.HLGToLinear(r), transfer.HLGToLinear(g), transfer.HLGToLinear(bl)
		case PixelFormatRGBAF16:
			p := b.Pix[i*8 : i*8+8]
			r = float16.Frombits(binary.LittleEndian.Uint16(p[0:])).Float32()
			g = float16.Frombits(binary.LittleEndian.Uint16(p[2:])).Float32()
			bl = float16.Frombits(binary.LittleEndian.Uint16(p[4:])).Float32()
			a = float16.Frombits(binary.LittleEndian.Uint16(p[6:])).Float32()
			r, g, bl = unpremultiply(r, g, bl, a)
		}
		out.pix[i*3] = nonNegative(r)
		out.pix[i*3+1] = nonNegative(g)
		out.pix[i*3+2] = nonNegative(bl)
	}
	return out, nil
}

func unpremultiply(r, g, b, a float32) (float32, float32, float32) {
	if a <= 0 {
		return 0, 0, 0
	}
	if a >= 1 {
		return r, g, b
	}
	return r / a, g / a, b / a
}

func nonNegative(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return v
}

// sdrImage returns the sRGB rendition of a linear image, clipping at SDR white.
func (l *linearImage) sdrImage() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, l.w, l.h))
	for y := 0; y < l.h; y++ {
		for x := 0; x < l.w; x++ {
			v := l.at(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: quantize8(transfer.SRGBEncode(transfer.Clamp01(v.r))),
				G: quantize8(transfer.SRGBEncode(transfer.Clamp01(v.g))),
				B: quantize8(transfer.SRGBEncode(transfer.Clamp01(v.b))),
				A: 0xFF,
			})
		}
	}
	return out
}

// linearFromImage converts an sRGB-encoded image (as decoded from JPEG) to linear light
// in the requested gamut.
func linearFromImage(img image.Image, from colorGamut) *linearImage {
	b := img.Bounds()
	out := newLinearImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := rgb{
				r: transfer.SRGBDecode(float32(r) / 0xFFFF),
				g: transfer.SRGBDecode(float32(g) / 0xFFFF),
				b: transfer.SRGBDecode(float32(bl) / 0xFFFF),
			}
			out.set(x, y, clampRGB(toGamut(v, from, colorGamutSRGB)))
		}
	}
	return out
}

// toneMap derives an SDR rendition from HDR with a global extended Reinhard curve
// whose white point is the HDR peak. Hue is kept by scaling all channels by the
// ratio computed on the max channel.
func toneMap(hdr *linearImage) *linearImage {
	peak := hdr.peak()
	out := newLinearImage(hdr.w, hdr.h)
	if peak <= 1 {
		copy(out.pix, hdr.pix)
		return out
	}
	w2 := peak * peak
	for y := 0; y < hdr.h; y++ {
		for x := 0; x < hdr.w; x++ {
			v := hdr.at(x, y)
			m := max3(v.r, v.g, v.b)
			if m <= 0 {
				continue
			}
			mapped := m * (1 + m/w2) / (1 + m)
			s := mapped / m
			out.set(x, y, rgb{r: v.r * s, g: v.g * s, b: v.b * s})
		}
	}
	return out
}

func quantize8(v float32) uint8 {
	v = transfer.Clamp01(v)*255 + 0.5
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func clampRGB(v rgb) rgb {
	return rgb{r: nonNegative(v.r), g: nonNegative(v.g), b: nonNegative(v.b)}
}

func max3(a, b, c float32) float32 {
	if a >= b && a >= c {
		return a
	}
	if b >= a && b >= c {
		return b
	}
	return c
}
