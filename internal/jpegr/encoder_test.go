package jpegr

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// hdrGradient returns an opaque linear F16 buffer ramping from black to 4x SDR white.
func hdrGradient(w, h int) *Buffer {
	b := &Buffer{Format: PixelFormatRGBAF16, Width: w, Height: h, Pix: make([]byte, w*h*8)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 4 * float32(x) / float32(w-1)
			p := b.Pix[(y*w+x)*8:]
			binary.LittleEndian.PutUint16(p[0:], float16.Fromfloat32(v).Bits())
			binary.LittleEndian.PutUint16(p[2:], float16.Fromfloat32(v*0.8).Bits())
			binary.LittleEndian.PutUint16(p[4:], float16.Fromfloat32(v*0.6).Bits())
			binary.LittleEndian.PutUint16(p[6:], float16.Fromfloat32(1).Bits())
		}
	}
	return b
}

func sdrGradient(w, h int) *Buffer {
	b := &Buffer{Format: PixelFormatRGBA8888, Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255 * x / (w - 1))
			copy(b.Pix[(y*w+x)*4:], []byte{v, v, v, 0xFF})
		}
	}
	return b
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func requireContainer(t *testing.T, data []byte, w, h int) *SplitResult {
	t.Helper()

	require.True(t, IsUltraHDR(data))

	res, err := Split(data)
	require.NoError(t, err)
	require.NotNil(t, res.Metadata)

	primary, err := jpeg.DecodeConfig(bytes.NewReader(res.Primary))
	require.NoError(t, err)
	assert.Equal(t, w, primary.Width)
	assert.Equal(t, h, primary.Height)

	_, err = jpeg.DecodeConfig(bytes.NewReader(res.GainMap))
	require.NoError(t, err)

	return res
}

func TestEncoder_EncodeHDR(t *testing.T) {
	data, err := New().EncodeHDR(hdrGradient(32, 16), 90)
	require.NoError(t, err)

	res := requireContainer(t, data, 32, 16)

	gm, err := jpeg.DecodeConfig(bytes.NewReader(res.GainMap))
	require.NoError(t, err)
	assert.Equal(t, 8, gm.Width)
	assert.Equal(t, 4, gm.Height)
	assert.Equal(t, color.GrayModel, gm.ColorModel)
	assert.Greater(t, res.Metadata.MaxContentBoost[0], float32(1.5))
}

func TestEncoder_EncodeHDR_gainMapScale(t *testing.T) {
	enc := New(func(o *Options) {
		o.GainMapScale = 1
	})

	data, err := enc.EncodeHDR(hdrGradient(16, 8), 80)
	require.NoError(t, err)

	res := requireContainer(t, data, 16, 8)
	gm, err := jpeg.DecodeConfig(bytes.NewReader(res.GainMap))
	require.NoError(t, err)
	assert.Equal(t, 16, gm.Width)
}

func TestEncoder_EncodeHDRWithSDR(t *testing.T) {
	data, err := New().EncodeHDRWithSDR(hdrGradient(16, 16), sdrGradient(16, 16), 95)
	require.NoError(t, err)
	requireContainer(t, data, 16, 16)

	_, err = New().EncodeHDRWithSDR(hdrGradient(16, 16), sdrGradient(8, 16), 95)
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestEncoder_EncodeHDRWithCompressedSDR(t *testing.T) {
	sdr := testJPEG(t, 24, 16)

	data, err := New().EncodeHDRWithCompressedSDR(hdrGradient(24, 16), sdr)
	require.NoError(t, err)
	res := requireContainer(t, data, 24, 16)

	// Scan data of the supplied base image is kept as is.
	stripped, err := stripAppSegments(sdr)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(res.Primary, stripped[2:]))

	_, err = New().EncodeHDRWithCompressedSDR(hdrGradient(16, 16), sdr)
	assert.Error(t, err)

	_, err = New().EncodeHDRWithCompressedSDR(hdrGradient(24, 16), []byte("not a jpeg"))
	assert.Error(t, err)
}

func TestEncoder_EncodeCompressedSDRWithGainMap(t *testing.T) {
	meta := SingleChannelMetadata(1, 8, 1, 1.0/64)
	enc := New(func(o *Options) {
		o.PairMetadata = meta
	})

	data, err := enc.EncodeCompressedSDRWithGainMap(testJPEG(t, 16, 16), testJPEG(t, 4, 4))
	require.NoError(t, err)

	res := requireContainer(t, data, 16, 16)
	assert.InDelta(t, 8, res.Metadata.MaxContentBoost[0], 0.01)
	assert.InDelta(t, 1, res.Metadata.MinContentBoost[0], 0.01)

	_, err = enc.EncodeCompressedSDRWithGainMap(testJPEG(t, 16, 16), nil)
	assert.Error(t, err)
}

func TestEncoder_invalidBuffers(t *testing.T) {
	enc := New()

	_, err := enc.EncodeHDR(nil, 90)
	assert.Error(t, err)

	_, err = enc.EncodeHDR(&Buffer{Format: PixelFormatRGBAF16, Width: 2, Height: 2, Pix: make([]byte, 16)}, 90)
	assert.ErrorContains(t, err, "size mismatch")

	_, err = enc.EncodeHDR(&Buffer{Format: PixelFormat(7), Width: 1, Height: 1, Pix: make([]byte, 4)}, 90)
	assert.ErrorContains(t, err, "unsupported pixel format")
}

func TestIsUltraHDR(t *testing.T) {
	assert.False(t, IsUltraHDR(nil))
	assert.False(t, IsUltraHDR([]byte{0xFF, 0xD8}))
	assert.False(t, IsUltraHDR([]byte("plain text")))
	assert.False(t, IsUltraHDR(testJPEG(t, 8, 8)))

	// Two concatenated JPEGs without gain map metadata.
	twice := append(testJPEG(t, 8, 8), testJPEG(t, 4, 4)...)
	assert.False(t, IsUltraHDR(twice))

	data, err := New().EncodeHDR(hdrGradient(8, 8), 90)
	require.NoError(t, err)
	assert.True(t, New().IsUltraHDR(data))

	// Truncated inside the gain map scan is still recognized by its header.
	assert.True(t, IsUltraHDR(data[:len(data)-10]))
}
