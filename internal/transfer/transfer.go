// Package transfer implements the opto-electronic transfer functions shared by
// pixel extraction and the JPEG/R encoder.
package transfer

import "math"

const (
	// SDRWhiteNits is the reference SDR white, in nits.
	SDRWhiteNits = 203.0
	// HLGMaxNits is the nominal peak of HLG signal 1.0, in nits.
	HLGMaxNits = 1000.0
)

// HLG OETF constants, ITU-R BT.2100.
const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

// SRGBDecode converts an sRGB-encoded value to linear light.
// Negative values are mirrored so extended-range inputs survive.
func SRGBDecode(v float32) float32 {
	if v < 0 {
		return -SRGBDecode(-v)
	}
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

// SRGBEncode converts linear light to the sRGB encoding.
func SRGBEncode(v float32) float32 {
	if v < 0 {
		return -SRGBEncode(-v)
	}
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

// HLGEncode applies the HLG OETF to scene light in [0, 1].
func HLGEncode(e float32) float32 {
	if e <= 0 {
		return 0
	}
	if e <= 1.0/12.0 {
		return float32(math.Sqrt(3 * float64(e)))
	}
	return float32(hlgA*math.Log(12*float64(e)-hlgB) + hlgC)
}

// HLGDecode is the inverse of HLGEncode.
func HLGDecode(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v <= 0.5 {
		return v * v / 3
	}
	return float32((math.Exp((float64(v)-hlgC)/hlgA) + hlgB) / 12)
}

// LinearToHLG maps linear light relative to SDR white (1.0 = 203 nits)
// to an HLG signal, clipping at HLGMaxNits.
func LinearToHLG(v float32) float32 {
	return HLGEncode(Clamp01(v * SDRWhiteNits / HLGMaxNits))
}

// HLGToLinear is the inverse of LinearToHLG.
func HLGToLinear(v float32) float32 {
	return HLGDecode(v) * HLGMaxNits / SDRWhiteNits
}

// Clamp01 limits v to [0, 1]; NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Luminance returns BT.709 relative luminance of linear RGB.
func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Log2 is a float32 shorthand for math.Log2.
func Log2(v float32) float32 { return float32(math.Log2(float64(v))) }

// Exp2 is a float32 shorthand for math.Exp2.
func Exp2(v float32) float32 { return float32(math.Exp2(float64(v))) }
