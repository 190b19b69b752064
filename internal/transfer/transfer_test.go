package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSRGBRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.04, 0.2, 0.5, 1, 2.5} {
		assert.InDelta(t, v, SRGBDecode(SRGBEncode(v)), 1e-4, "value %v", v)
	}
	assert.InDelta(t, -0.5, SRGBDecode(SRGBEncode(-0.5)), 1e-4)
}

func TestHLGRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.01, 1.0 / 12.0, 0.3, 1} {
		assert.InDelta(t, v, HLGDecode(HLGEncode(v)), 1e-4, "value %v", v)
	}
	assert.InDelta(t, 0.5, HLGEncode(1.0/12.0), 1e-6)
	assert.InDelta(t, 1, HLGEncode(1), 1e-5)
}

func TestLinearHLGHeadroom(t *testing.T) {
	peak := float32(HLGMaxNits / SDRWhiteNits)
	assert.InDelta(t, 1, LinearToHLG(peak), 1e-5)
	assert.InDelta(t, 1, LinearToHLG(peak*2), 1e-5, "clipped above HLG peak")
	assert.InDelta(t, 2, HLGToLinear(LinearToHLG(2)), 1e-3)
}

func TestClamp01(t *testing.T) {
	nan := float32(0)
	nan /= nan
	assert.Equal(t, float32(0), Clamp01(nan))
	assert.Equal(t, float32(0), Clamp01(-1))
	assert.Equal(t, float32(1), Clamp01(3))
	assert.Equal(t, float32(0.25), Clamp01(0.25))
}
