package jpegr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen/internal/transfer"
	"github.com/x448/float16"
)

func TestUnpackLinear(t *testing.T) {
	t.Run("rgba8888 premultiplied", func(t *testing.T) {
		// Half transparent white, premultiplied.
		l, err := unpackLinear(&Buffer{Format: PixelFormatRGBA8888, Width: 1, Height: 1, Pix: []byte{128, 128, 128, 128}})
		require.NoError(t, err)
		assert.InDelta(t, 1, l.at(0, 0).r, 0.01)
	})

	t.Run("rgba1010102 sdr white", func(t *testing.T) {
		code := uint32(transfer.LinearToHLG(1)*1023 + 0.5)
		v := code | code<<10 | code<<20 | 3<<30
		pix := binary.LittleEndian.AppendUint32(nil, v)

		l, err := unpackLinear(&Buffer{Format: PixelFormatRGBA1010102, Width: 1, Height: 1, Pix: pix})
		require.NoError(t, err)
		assert.InDelta(t, 1, l.at(0, 0).g, 0.05)
	})

	t.Run("rgbaf16 extended", func(t *testing.T) {
		var pix []byte
		for _, v := range []float32{3, 2, 1, 1} {
			pix = binary.LittleEndian.AppendUint16(pix, float16.Fromfloat32(v).Bits())
		}

		l, err := unpackLinear(&Buffer{Format: PixelFormatRGBAF16, Width: 1, Height: 1, Pix: pix})
		require.NoError(t, err)
		assert.Equal(t, rgb{r: 3, g: 2, b: 1}, l.at(0, 0))
		assert.Equal(t, float32(3), l.peak())
	})
}

func TestToneMap(t *testing.T) {
	hdr := newLinearImage(2, 1)
	hdr.set(0, 0, rgb{r: 4, g: 2, b: 1})
	hdr.set(1, 0, rgb{r: 0.5, g: 0.5, b: 0.5})

	sdr := toneMap(hdr)

	// Peak maps to SDR white, hue ratios are kept.
	assert.InDelta(t, 1, sdr.at(0, 0).r, 1e-5)
	assert.InDelta(t, 0.5, sdr.at(0, 0).g/sdr.at(0, 0).r, 1e-5)
	assert.Less(t, sdr.at(1, 0).r, float32(0.5))
}

func TestComputeGainMap(t *testing.T) {
	sdr := newLinearImage(4, 4)
	hdr := newLinearImage(4, 4)
	for i := range sdr.pix {
		sdr.pix[i] = 0.5
		hdr.pix[i] = 0.5
	}
	hdr.set(3, 3, rgb{r: 2, g: 2, b: 2})

	gm, meta, err := computeGainMap(sdr, hdr, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), gm.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), gm.GrayAt(3, 3).Y)
	assert.InDelta(t, 4, meta.MaxContentBoost[0], 0.01)
	assert.InDelta(t, 1, meta.MinContentBoost[0], 0.01)

	_, _, err = computeGainMap(sdr, newLinearImage(2, 2), 1, 1)
	assert.Error(t, err)
}
