package uhdrgen

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/transfer"
	"github.com/x448/float16"
	"golang.org/x/image/draw"
)

// RawPixelBuffer is a row-major, top-to-bottom, tightly packed image.
type RawPixelBuffer struct {
	Format PixelFormat
	Width  int
	Height int
	Pix    []byte
}

// Validate checks that the buffer size matches its format and dimensions.
func (b *RawPixelBuffer) Validate() error {
	if b == nil {
		return errors.Wrap(ErrDataExtraction, "buffer missing")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return errors.Wrapf(ErrDataExtraction, "invalid buffer dimensions %dx%d", b.Width, b.Height)
	}
	if b.Format.BytesPerPixel() == 0 {
		return errors.Wrapf(ErrDataExtraction, "unsupported pixel format %s", b.Format)
	}
	if want := b.Height * b.Format.BytesPerRow(b.Width); len(b.Pix) != want {
		return errors.Wrapf(ErrDataExtraction, "%s buffer has %d bytes, want %d", b.Format, len(b.Pix), want)
	}
	return nil
}

type extractor func(img *Image) []byte

var extractors = map[PixelFormat]extractor{
	PixelFormatRGBA8888:    extractRGBA8888,
	PixelFormatRGBA1010102: extractRGBA1010102,
	PixelFormatRGBAF16:     extractRGBAF16,
}

// ExtractPixels renders img into a raw buffer of format f.
// The same image and format always produce the same bytes.
func ExtractPixels(img *Image, f PixelFormat) (*RawPixelBuffer, error) {
	if img == nil || img.src == nil {
		return nil, errors.Wrap(ErrDataExtraction, "image missing")
	}
	if img.Width() <= 0 || img.Height() <= 0 {
		return nil, errors.Wrapf(ErrDataExtraction, "image has zero area %dx%d", img.Width(), img.Height())
	}
	if err := img.check(); err != nil {
		return nil, errors.Wrap(ErrDataExtraction, err.Error())
	}
	extract, ok := extractors[f]
	if !ok {
		return nil, errors.Wrapf(ErrDataExtraction, "no extraction strategy for %s", f)
	}

	buf := &RawPixelBuffer{
		Format: f,
		Width:  img.Width(),
		Height: img.Height(),
		Pix:    extract(img),
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return buf, nil
}

// extractRGBA8888 draws an sRGB view of the image into a premultiplied RGBA raster.
func extractRGBA8888(img *Image) []byte {
	src := image.NewNRGBA64(image.Rect(0, 0, img.Width(), img.Height()))
	linear := img.ColorSpace() == ColorSpaceExtendedLinearSRGB
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			c := img.Sample(x, y)
			if linear {
				c.R, c.G, c.B = transfer.SRGBEncode(c.R), transfer.SRGBEncode(c.G), transfer.SRGBEncode(c.B)
			}
			src.SetNRGBA64(x, y, color.NRGBA64{R: quantize16(c.R), G: quantize16(c.G), B: quantize16(c.B), A: quantize16(c.A)})
		}
	}

	dst := image.NewRGBA(src.Bounds())
	draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	return dst.Pix
}

// extractRGBA1010102 packs HLG-encoded 10-bit channels with a 2-bit alpha.
// Channels are premultiplied by the stored 2-bit alpha, not the source alpha.
func extractRGBA1010102(img *Image) []byte {
	lin := linearRaster(img)
	out := make([]byte, 0, len(lin))
	for i := 0; i < len(lin); i += 4 {
		qa := uint32(transfer.Clamp01(lin[i+3])*3 + 0.5)
		a := float32(qa) / 3
		v := quantize10(transfer.LinearToHLG(lin[i])*a) |
			quantize10(transfer.LinearToHLG(lin[i+1])*a)<<10 |
			quantize10(transfer.LinearToHLG(lin[i+2])*a)<<20 |
			qa<<30
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

// extractRGBAF16 packs linear premultiplied half floats.
func extractRGBAF16(img *Image) []byte {
	lin := linearRaster(img)
	out := make([]byte, 0, len(lin)*2)
	for i := 0; i < len(lin); i += 4 {
		a := transfer.Clamp01(lin[i+3])
		for _, v := range [4]float32{lin[i] * a, lin[i+1] * a, lin[i+2] * a, a} {
			out = binary.LittleEndian.AppendUint16(out, float16.Fromfloat32(v).Bits())
		}
	}
	return out
}

// linearRaster materializes the image as straight-alpha linear RGBA float32,
// negative values clipped.
func linearRaster(img *Image) []float32 {
	out := make([]float32, 0, img.Width()*img.Height()*4)
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			c := img.Linear(img.Sample(x, y))
			out = append(out, nonNegative(c.R), nonNegative(c.G), nonNegative(c.B), c.A)
		}
	}
	return out
}

func nonNegative(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return v
}

func quantize16(v float32) uint16 {
	return uint16(transfer.Clamp01(v)*0xFFFF + 0.5)
}

func quantize10(v float32) uint32 {
	return uint32(transfer.Clamp01(v)*0x3FF + 0.5)
}
