package uhdrgen

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/jpegr"
	"github.com/vearutop/uhdrgen/internal/transfer"
)

// CurvePoint is a tone curve control point, both coordinates in [0, 1].
type CurvePoint struct {
	X float32 `toml:"x"`
	Y float32 `toml:"y"`
}

// ToneCurve is a monotonic piecewise-linear curve through five control points
// applied to sRGB-encoded values.
type ToneCurve [5]CurvePoint

// DefaultToneCurve returns the identity curve.
func DefaultToneCurve() ToneCurve {
	return ToneCurve{{0, 0}, {0.25, 0.25}, {0.5, 0.5}, {0.75, 0.75}, {1, 1}}
}

// Validate checks that points are within [0, 1] and non-decreasing.
func (c ToneCurve) Validate() error {
	for i, p := range c {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return errors.Errorf("tone curve point %d (%g, %g) out of range", i, p.X, p.Y)
		}
		if i > 0 && (p.X <= c[i-1].X || p.Y < c[i-1].Y) {
			return errors.Errorf("tone curve point %d is not monotonic", i)
		}
	}
	return nil
}

// Apply maps v through the curve, values outside the first and last points
// are held at the end values.
func (c ToneCurve) Apply(v float32) float32 {
	if v <= c[0].X {
		return c[0].Y
	}
	for i := 1; i < len(c); i++ {
		if v <= c[i].X {
			a, b := c[i-1], c[i]
			return a.Y + (b.Y-a.Y)*(v-a.X)/(b.X-a.X)
		}
	}
	return c[len(c)-1].Y
}

// DeriveSDR renders an SDR companion of hdr: sRGB-encoded, clipped to [0, 1]
// and shaped by curve. The result is tagged ColorSpaceSRGB.
func DeriveSDR(hdr *Image, curve ToneCurve) (*Image, error) {
	if hdr.empty() {
		return nil, errors.Wrap(ErrDataExtraction, "derive sdr: image missing")
	}
	if err := hdr.check(); err != nil {
		return nil, errors.Wrapf(ErrDataExtraction, "derive sdr: %v", err)
	}
	if err := curve.Validate(); err != nil {
		return nil, err
	}

	linear := hdr.ColorSpace() == ColorSpaceExtendedLinearSRGB
	sdr := hdr.Map(ColorSpaceSRGB, func(c Color) Color {
		if linear {
			c.R, c.G, c.B = transfer.SRGBEncode(c.R), transfer.SRGBEncode(c.G), transfer.SRGBEncode(c.B)
		}
		return Color{
			R: curve.Apply(transfer.Clamp01(c.R)),
			G: curve.Apply(transfer.Clamp01(c.G)),
			B: curve.Apply(transfer.Clamp01(c.B)),
			A: transfer.Clamp01(c.A),
		}
	})
	return sdr.Materialize(), nil
}

// GainMapOptions controls DeriveGainMap.
type GainMapOptions struct {
	// MinBoost and MaxBoost bound the HDR to SDR luminance ratio.
	MinBoost float32
	MaxBoost float32
	// Gamma is applied to the normalized log2 ratio.
	Gamma float32
	// Offset is added to both luminances to keep ratios finite near black.
	Offset float32
}

// DefaultGainMapOptions returns the options for a 1x to 4x boost range.
func DefaultGainMapOptions() GainMapOptions {
	return GainMapOptions{MinBoost: 1, MaxBoost: 4, Gamma: 0.5, Offset: 1.0 / 64}
}

func (o GainMapOptions) validate() error {
	if o.MinBoost <= 0 || o.MaxBoost <= o.MinBoost {
		return errors.Errorf("invalid boost range [%g, %g]", o.MinBoost, o.MaxBoost)
	}
	if o.Gamma <= 0 {
		return errors.Errorf("invalid gain map gamma %g", o.Gamma)
	}
	if o.Offset < 0 {
		return errors.Errorf("invalid gain map offset %g", o.Offset)
	}
	return nil
}

// Metadata returns gain map metadata describing maps produced with these options.
func (o GainMapOptions) Metadata() *GainMapMetadata {
	return jpegr.SingleChannelMetadata(o.MinBoost, o.MaxBoost, o.Gamma, o.Offset)
}

// DeriveGainMap computes a single-channel gain map from the ratio of HDR to SDR
// linear luminance, normalized in log2 space to the boost range and raised to Gamma.
func DeriveGainMap(hdr, sdr *Image, opt GainMapOptions) (*Image, error) {
	if hdr.empty() || sdr.empty() {
		return nil, errors.Wrap(ErrDataExtraction, "derive gain map: image missing")
	}
	for _, img := range []*Image{hdr, sdr} {
		if err := img.check(); err != nil {
			return nil, errors.Wrapf(ErrDataExtraction, "derive gain map: %v", err)
		}
	}
	if hdr.Width() != sdr.Width() || hdr.Height() != sdr.Height() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "hdr %dx%d, sdr %dx%d",
			hdr.Width(), hdr.Height(), sdr.Width(), sdr.Height())
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}

	minLog2 := transfer.Log2(opt.MinBoost)
	maxLog2 := transfer.Log2(opt.MaxBoost)
	gamma := float64(opt.Gamma)

	gm := image.NewGray(image.Rect(0, 0, hdr.Width(), hdr.Height()))
	for y := 0; y < hdr.Height(); y++ {
		for x := 0; x < hdr.Width(); x++ {
			h := hdr.Linear(hdr.Sample(x, y))
			s := sdr.Linear(sdr.Sample(x, y))
			hy := nonNegative(transfer.Luminance(h.R, h.G, h.B))
			sy := nonNegative(transfer.Luminance(s.R, s.G, s.B))

			ratio := transfer.Log2((hy + opt.Offset) / (sy + opt.Offset))
			v := transfer.Clamp01((ratio - minLog2) / (maxLog2 - minLog2))
			v = float32(math.Pow(float64(v), gamma))
			gm.Pix[y*gm.Stride+x] = uint8(v*255 + 0.5)
		}
	}
	return FromImage(gm, ColorSpaceSRGB), nil
}
