package jpegr

import (
	"bytes"
	"sort"
)

// colorGamut identifies the primaries of a base image.
type colorGamut uint8

const (
	colorGamutSRGB colorGamut = iota
	colorGamutDisplayP3
	colorGamutAdobeRGB
)

var gamutNames = map[colorGamut][]string{
	colorGamutDisplayP3: {"display p3", "dci-p3"},
	colorGamutAdobeRGB:  {"adobe rgb", "adobergb"},
}

// detectGamut guesses the gamut of an ICC profile from its description.
// Enough for common camera and editor output; unknown profiles are treated as sRGB.
func detectGamut(profile []byte) colorGamut {
	desc := bytes.ToLower(profile)
	for g, names := range gamutNames {
		for _, n := range names {
			if bytes.Contains(desc, []byte(n)) {
				return g
			}
		}
	}
	return colorGamutSRGB
}

// joinICCProfile reassembles a profile split across ICC_PROFILE APP2 chunks.
func joinICCProfile(chunks [][]byte) []byte {
	type part struct {
		seq  int
		data []byte
	}
	parts := make([]part, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) > len(iccSig)+2 && bytes.HasPrefix(chunk, iccSig) {
			parts = append(parts, part{seq: int(chunk[len(iccSig)]), data: chunk[len(iccSig)+2:]})
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].seq < parts[j].seq })
	var profile []byte
	for _, p := range parts {
		profile = append(profile, p.data...)
	}
	return profile
}

// mat3 is a row-major 3x3 matrix.
type mat3 [9]float32

func (m mat3) mul(v rgb) rgb {
	return rgb{
		r: m[0]*v.r + m[1]*v.g + m[2]*v.b,
		g: m[3]*v.r + m[4]*v.g + m[5]*v.b,
		b: m[6]*v.r + m[7]*v.g + m[8]*v.b,
	}
}

// RGB to CIE XYZ and back, D65 white point.
var (
	rgbToXYZ = map[colorGamut]mat3{
		colorGamutSRGB: {
			0.4123908, 0.35758433, 0.1804808,
			0.212639, 0.71516865, 0.07219232,
			0.019330818, 0.11919478, 0.95053214,
		},
		colorGamutDisplayP3: {
			0.48657095, 0.2656677, 0.19821729,
			0.22897457, 0.69173855, 0.07928691,
			0, 0.04511338, 1.0439444,
		},
		colorGamutAdobeRGB: {
			0.5767309, 0.185554, 0.1881852,
			0.2973769, 0.6273491, 0.0752741,
			0.0270343, 0.0706872, 0.9911085,
		},
	}
	xyzToRGB = map[colorGamut]mat3{
		colorGamutSRGB: {
			3.24097, -1.5373832, -0.49861076,
			-0.96924365, 1.8759675, 0.041555058,
			0.05563008, -0.20397696, 1.0569715,
		},
		colorGamutDisplayP3: {
			2.493497, -0.9313836, -0.4027108,
			-0.829489, 1.7626641, 0.023624685,
			0.03584583, -0.07617239, 0.9568845,
		},
		colorGamutAdobeRGB: {
			2.041369, -0.5649464, -0.3446944,
			-0.969266, 1.8760108, 0.041556,
			0.0134474, -0.1183897, 1.0154096,
		},
	}
)

// toGamut converts linear RGB in gamut src to linear RGB in gamut dst.
func toGamut(v rgb, src, dst colorGamut) rgb {
	if src == dst {
		return v
	}
	return xyzToRGB[dst].mul(rgbToXYZ[src].mul(v))
}
