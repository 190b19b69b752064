package jpegr

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/transfer"
)

const (
	gainOffset = 1e-7

	// Log2 gain limits, roughly the range ISO 21496-1 readers accept.
	minLog2Gain = -14.3
	maxLog2Gain = 15.6
)

// computeGainMap builds a single-channel gain map from matching SDR and HDR
// renditions. Gains are computed per pixel on max(R, G, B) in nits, affine-mapped
// between the observed min and max and downscaled by scale.
func computeGainMap(sdr, hdr *linearImage, scale int, gamma float32) (*image.Gray, *GainMapMetadata, error) {
	if sdr == nil || hdr == nil {
		return nil, nil, errors.New("missing SDR or HDR input")
	}
	if sdr.w != hdr.w || sdr.h != hdr.h {
		return nil, nil, errors.Errorf("SDR and HDR dimensions must match: %dx%d vs %dx%d", sdr.w, sdr.h, hdr.w, hdr.h)
	}
	if scale < 1 {
		scale = 1
	}
	if gamma <= 0 {
		gamma = 1
	}

	gains := make([]float32, sdr.w*sdr.h)
	gainMin := float32(math.MaxFloat32)
	gainMax := -float32(math.MaxFloat32)
	for y := 0; y < sdr.h; y++ {
		for x := 0; x < sdr.w; x++ {
			s := sdr.at(x, y)
			h := hdr.at(x, y)
			sdrY := float32(transfer.SDRWhiteNits) * max3(s.r, s.g, s.b)
			hdrY := float32(transfer.SDRWhiteNits) * max3(h.r, h.g, h.b)
			g := log2Gain(sdrY, hdrY)
			gains[y*sdr.w+x] = g
			if g < gainMin {
				gainMin = g
			}
			if g > gainMax {
				gainMax = g
			}
		}
	}
	gainMin = clampLog2Gain(gainMin)
	gainMax = clampLog2Gain(gainMax)
	if gainMax-gainMin < 1e-6 {
		gainMax = gainMin + 0.1
	}

	full := image.NewGray(image.Rect(0, 0, sdr.w, sdr.h))
	for i, g := range gains {
		full.Pix[i] = affineMapGain(g, gainMin, gainMax, gamma)
	}

	gm := full
	mapW, mapH := sdr.w/scale, sdr.h/scale
	if mapW < 1 {
		mapW = 1
	}
	if mapH < 1 {
		mapH = 1
	}
	if mapW != sdr.w || mapH != sdr.h {
		gm = toGray(resize.Resize(uint(mapW), uint(mapH), full, resize.Bilinear))
	}

	meta := SingleChannelMetadata(transfer.Exp2(gainMin), transfer.Exp2(gainMax), gamma, gainOffset)
	return gm, meta, nil
}

func log2Gain(sdr, hdr float32) float32 {
	g := transfer.Log2((hdr + gainOffset) / (sdr + gainOffset))
	// Near-black SDR pixels would otherwise dominate the range.
	if sdr < 2.0/255.0 && g > 2.3 {
		g = 2.3
	}
	return g
}

func clampLog2Gain(v float32) float32 {
	if v < minLog2Gain {
		return minLog2Gain
	}
	if v > maxLog2Gain {
		return maxLog2Gain
	}
	return v
}

func affineMapGain(gainLog2, minLog2, maxLog2, gamma float32) uint8 {
	denom := maxLog2 - minLog2
	if denom == 0 {
		denom = 1
	}
	mapped := transfer.Clamp01((gainLog2 - minLog2) / denom)
	if gamma != 1 {
		mapped = float32(math.Pow(float64(mapped), float64(gamma)))
	}
	return quantize8(mapped)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return out
}
