package uhdrgen_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen"
)

type encoderCall struct {
	method  string
	buffers []*uhdrgen.RawPixelBuffer
	blobs   [][]byte
	quality int
}

type fakeEncoder struct {
	calls []encoderCall
	err   error
	out   []byte
}

func (f *fakeEncoder) result() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return []byte("container"), nil
}

func (f *fakeEncoder) EncodeHDR(hdr *uhdrgen.RawPixelBuffer, quality int) ([]byte, error) {
	f.calls = append(f.calls, encoderCall{method: "hdr", buffers: []*uhdrgen.RawPixelBuffer{hdr}, quality: quality})
	return f.result()
}

func (f *fakeEncoder) EncodeHDRWithSDR(hdr, sdr *uhdrgen.RawPixelBuffer, quality int) ([]byte, error) {
	f.calls = append(f.calls, encoderCall{method: "hdr+sdr", buffers: []*uhdrgen.RawPixelBuffer{hdr, sdr}, quality: quality})
	return f.result()
}

func (f *fakeEncoder) EncodeHDRWithCompressedSDR(hdr *uhdrgen.RawPixelBuffer, sdrJPEG []byte) ([]byte, error) {
	f.calls = append(f.calls, encoderCall{method: "hdr+jpeg", buffers: []*uhdrgen.RawPixelBuffer{hdr}, blobs: [][]byte{sdrJPEG}})
	return f.result()
}

func (f *fakeEncoder) EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG []byte) ([]byte, error) {
	f.calls = append(f.calls, encoderCall{method: "pair", blobs: [][]byte{sdrJPEG, gainMapJPEG}})
	return f.result()
}

func (f *fakeEncoder) IsUltraHDR(data []byte) bool {
	return bytes.Equal(data, []byte("container"))
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 200, A: 255})
		}
	}
	return img
}

func linearHDR(w, h int, peak float32) *uhdrgen.Image {
	pix := make([]float32, 0, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := peak * float32(x+1) / float32(w)
			pix = append(pix, v, v*0.9, v*0.5, 1)
		}
	}
	return uhdrgen.NewFloatImage(w, h, uhdrgen.ColorSpaceExtendedLinearSRGB, pix)
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestOrchestrator_Encode_variants(t *testing.T) {
	hdr := linearHDR(4, 4, 4)
	sdr := uhdrgen.FromImage(gradient(4, 4), uhdrgen.ColorSpaceSRGB)

	for _, tc := range []struct {
		req     uhdrgen.EncodeRequest
		method  string
		formats []uhdrgen.PixelFormat
		blobs   int
		quality int
	}{
		{
			req:     uhdrgen.HDROnly{HDR: hdr, Quality: 80},
			method:  "hdr",
			formats: []uhdrgen.PixelFormat{uhdrgen.PixelFormatRGBAF16},
			quality: 80,
		},
		{
			req:     uhdrgen.HDRWithSDR{HDR: hdr, SDR: sdr, Quality: 70},
			method:  "hdr+sdr",
			formats: []uhdrgen.PixelFormat{uhdrgen.PixelFormatRGBAF16, uhdrgen.PixelFormatRGBA8888},
			quality: 70,
		},
		{
			req:     uhdrgen.HDRWithCompressedSDR{HDR: hdr, SDRJPEG: []byte("sdr")},
			method:  "hdr+jpeg",
			formats: []uhdrgen.PixelFormat{uhdrgen.PixelFormatRGBAF16},
			blobs:   1,
		},
		{
			req:    uhdrgen.CompressedSDRWithGainMap{SDRJPEG: []byte("sdr"), GainMapJPEG: []byte("gm")},
			method: "pair",
			blobs:  2,
		},
	} {
		t.Run(tc.method, func(t *testing.T) {
			enc := &fakeEncoder{}
			o := uhdrgen.NewOrchestrator(enc)

			data, err := o.Encode(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, []byte("container"), data)

			require.Len(t, enc.calls, 1)
			call := enc.calls[0]
			assert.Equal(t, tc.method, call.method)
			assert.Equal(t, tc.quality, call.quality)
			assert.Len(t, call.blobs, tc.blobs)
			require.Len(t, call.buffers, len(tc.formats))
			for i, f := range tc.formats {
				assert.Equal(t, f, call.buffers[i].Format)
				assert.NoError(t, call.buffers[i].Validate())
			}
		})
	}
}

func TestOrchestrator_Encode_unknownRequest(t *testing.T) {
	enc := &fakeEncoder{}

	_, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), nil)
	assert.ErrorIs(t, err, uhdrgen.ErrEncoding)
	assert.Empty(t, enc.calls)
}

func TestOrchestrator_Encode_pointerRequests(t *testing.T) {
	hdr := linearHDR(2, 2, 4)
	sdr := uhdrgen.FromImage(gradient(2, 2), uhdrgen.ColorSpaceSRGB)
	sdrJPEG := jpegBytes(t, gradient(2, 2))

	for _, tc := range []struct {
		req    uhdrgen.EncodeRequest
		method string
	}{
		{req: &uhdrgen.HDROnly{HDR: hdr, Quality: 90}, method: "hdr"},
		{req: &uhdrgen.HDRWithSDR{HDR: hdr, SDR: sdr, Quality: 90}, method: "hdr+sdr"},
		{req: &uhdrgen.HDRWithCompressedSDR{HDR: hdr, SDRJPEG: sdrJPEG}, method: "hdr+jpeg"},
		{req: &uhdrgen.CompressedSDRWithGainMap{SDRJPEG: sdrJPEG, GainMapJPEG: sdrJPEG}, method: "pair"},
	} {
		enc := &fakeEncoder{}

		data, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), tc.req)
		require.NoError(t, err, tc.method)
		assert.Equal(t, []byte("container"), data)
		require.Len(t, enc.calls, 1)
		assert.Equal(t, tc.method, enc.calls[0].method)
	}

	enc := &fakeEncoder{}
	_, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), (*uhdrgen.HDROnly)(nil))
	assert.ErrorIs(t, err, uhdrgen.ErrEncoding)
	assert.Empty(t, enc.calls)
}

func TestOrchestrator_Encode_extractionShortCircuit(t *testing.T) {
	enc := &fakeEncoder{}
	o := uhdrgen.NewOrchestrator(enc)
	sdr := uhdrgen.FromImage(gradient(4, 4), uhdrgen.ColorSpaceSRGB)

	_, err := o.Encode(context.Background(), uhdrgen.HDRWithSDR{HDR: linearHDR(4, 4, 2), SDR: nil, Quality: 90})
	assert.ErrorIs(t, err, uhdrgen.ErrDataExtraction)

	_, err = o.Encode(context.Background(), uhdrgen.HDRWithSDR{HDR: nil, SDR: sdr, Quality: 90})
	assert.ErrorIs(t, err, uhdrgen.ErrDataExtraction)

	assert.Empty(t, enc.calls)
}

func TestOrchestrator_Encode_dimensionMismatch(t *testing.T) {
	enc := &fakeEncoder{}

	_, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), uhdrgen.HDRWithSDR{
		HDR:     linearHDR(4, 4, 2),
		SDR:     uhdrgen.FromImage(gradient(4, 2), uhdrgen.ColorSpaceSRGB),
		Quality: 90,
	})

	var encErr *uhdrgen.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.ErrorIs(t, err, uhdrgen.ErrDimensionMismatch)
	assert.ErrorIs(t, err, uhdrgen.ErrEncoding)
	assert.Empty(t, enc.calls)
}

func TestOrchestrator_Encode_encoderFailure(t *testing.T) {
	cause := errors.New("codec exploded")
	enc := &fakeEncoder{err: cause}

	data, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), uhdrgen.HDROnly{HDR: linearHDR(2, 2, 2), Quality: 90})
	assert.Nil(t, data)

	var encErr *uhdrgen.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "codec exploded", encErr.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, uhdrgen.KindEncoding, uhdrgen.KindOf(err))

	enc = &fakeEncoder{out: []byte{}}
	_, err = uhdrgen.NewOrchestrator(enc).Encode(context.Background(), uhdrgen.HDROnly{HDR: linearHDR(2, 2, 2), Quality: 90})
	assert.ErrorIs(t, err, uhdrgen.ErrEncoding)
}

func TestOrchestrator_Encode_canceled(t *testing.T) {
	enc := &fakeEncoder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uhdrgen.NewOrchestrator(enc).Encode(ctx, uhdrgen.HDROnly{HDR: linearHDR(2, 2, 2), Quality: 90})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uhdrgen.KindCanceled, uhdrgen.KindOf(err))
	assert.Empty(t, enc.calls)
}

func TestOrchestrator_IsUltraHDRContainer(t *testing.T) {
	o := uhdrgen.NewOrchestrator(uhdrgen.NewEncoder())

	assert.False(t, o.IsUltraHDRContainer(nil))
	assert.False(t, o.IsUltraHDRContainer([]byte{0xFF, 0xD8, 0xFF}))
	assert.False(t, o.IsUltraHDRContainer(jpegBytes(t, gradient(8, 8))))

	data, err := o.Encode(context.Background(), uhdrgen.HDROnly{HDR: linearHDR(8, 8, 4), Quality: 90})
	require.NoError(t, err)
	assert.True(t, o.IsUltraHDRContainer(data))
}

// Untagged 4x4 image, HDR-only at quality 90.
func TestOrchestrator_Encode_untaggedHDROnly(t *testing.T) {
	o := uhdrgen.NewOrchestrator(uhdrgen.NewEncoder())
	hdr := uhdrgen.FromImage(gradient(4, 4), uhdrgen.ColorSpaceUnspecified)
	assert.Equal(t, uhdrgen.PixelFormatRGBA8888, uhdrgen.ResolvePixelFormat(hdr))

	data, err := o.Encode(context.Background(), uhdrgen.HDROnly{HDR: hdr, Quality: 90})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.True(t, o.IsUltraHDRContainer(data))
}

// Linear HDR with a distinct untagged SDR image, quality 100.
func TestOrchestrator_Encode_linearHDRWithSDR(t *testing.T) {
	hdr := linearHDR(4, 4, 4)
	sdr := uhdrgen.FromImage(gradient(4, 4), uhdrgen.ColorSpaceUnspecified)

	rec := &fakeEncoder{}
	_, err := uhdrgen.NewOrchestrator(rec).Encode(context.Background(), uhdrgen.HDRWithSDR{HDR: hdr, SDR: sdr, Quality: 100})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, uhdrgen.PixelFormatRGBAF16, rec.calls[0].buffers[0].Format)
	assert.Equal(t, uhdrgen.PixelFormatRGBA8888, rec.calls[0].buffers[1].Format)
	assert.Equal(t, 100, rec.calls[0].quality)

	o := uhdrgen.NewOrchestrator(uhdrgen.NewEncoder())
	data, err := o.Encode(context.Background(), uhdrgen.HDRWithSDR{HDR: hdr, SDR: sdr, Quality: 100})
	require.NoError(t, err)
	assert.True(t, o.IsUltraHDRContainer(data))
}

// Zero-area HDR image fails extraction before the encoder is reached.
func TestOrchestrator_Encode_zeroArea(t *testing.T) {
	enc := &fakeEncoder{}
	hdr := uhdrgen.NewFloatImage(0, 0, uhdrgen.ColorSpaceExtendedLinearSRGB, nil)

	data, err := uhdrgen.NewOrchestrator(enc).Encode(context.Background(), uhdrgen.HDROnly{HDR: hdr, Quality: 90})
	assert.Nil(t, data)
	assert.ErrorIs(t, err, uhdrgen.ErrDataExtraction)
	assert.Empty(t, enc.calls)
}

// Compressed pair goes straight to the encoder without pixel extraction.
func TestOrchestrator_Encode_compressedPair(t *testing.T) {
	sdrJPEG := jpegBytes(t, gradient(16, 16))
	gmJPEG := jpegBytes(t, image.NewGray(image.Rect(0, 0, 4, 4)))

	rec := &fakeEncoder{}
	_, err := uhdrgen.NewOrchestrator(rec).Encode(context.Background(), uhdrgen.CompressedSDRWithGainMap{SDRJPEG: sdrJPEG, GainMapJPEG: gmJPEG})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Empty(t, rec.calls[0].buffers)
	assert.Equal(t, [][]byte{sdrJPEG, gmJPEG}, rec.calls[0].blobs)

	o := uhdrgen.NewOrchestrator(uhdrgen.NewEncoder())
	data, err := o.Encode(context.Background(), uhdrgen.CompressedSDRWithGainMap{SDRJPEG: sdrJPEG, GainMapJPEG: gmJPEG})
	require.NoError(t, err)
	assert.True(t, o.IsUltraHDRContainer(data))
}
