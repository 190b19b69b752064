package jpegr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMPF_roundTrip(t *testing.T) {
	payload := buildMPF(12345, 678, 12000)
	require.Len(t, payload, mpfSize())

	info, err := parseMPF(payload)
	require.NoError(t, err)
	assert.Equal(t, mpfInfo{primarySize: 12345, secondarySize: 678, secondaryOffset: 12000}, info)

	_, err = parseMPF([]byte("MPF\x00II"))
	assert.Error(t, err)
}

func TestISOMetadata_roundTrip(t *testing.T) {
	meta := SingleChannelMetadata(1, 6.5, 0.5, 1.0/64)

	payload, err := isoPayload(meta)
	require.NoError(t, err)

	got, err := decodeISO(payload[len(isoPrefix):])
	require.NoError(t, err)
	assert.InDelta(t, 6.5, got.MaxContentBoost[0], 1e-3)
	assert.InDelta(t, 1, got.MinContentBoost[0], 1e-3)
	assert.InDelta(t, 0.5, got.Gamma[2], 1e-3)
	assert.InDelta(t, 1.0/64, got.OffsetSDR[1], 1e-4)
	assert.InDelta(t, 6.5, got.HDRCapacityMax, 1e-3)
}

func TestGainMapXMP_roundTrip(t *testing.T) {
	meta := SingleChannelMetadata(1, 4, 1, 1.0/64)

	got, err := parseGainMapXMP(gainMapXMP(meta))
	require.NoError(t, err)
	assert.InDelta(t, 4, got.MaxContentBoost[0], 1e-4)
	assert.InDelta(t, 1, got.Gamma[0], 1e-6)
	assert.Equal(t, jpegrVersion, got.Version)

	_, err = parseGainMapXMP([]byte("Exif\x00\x00"))
	assert.Error(t, err)
}

func TestStripAppSegments(t *testing.T) {
	src := testJPEG(t, 8, 8)

	var withApp []byte
	withApp = append(withApp, src[:2]...)
	withApp = append(withApp, 0xFF, markerAPP1, 0x00, 0x06, 'a', 'b', 'c', 'd')
	withApp = append(withApp, 0xFF, markerCOM, 0x00, 0x04, 'h', 'i')
	withApp = append(withApp, src[2:]...)

	stripped, err := stripAppSegments(withApp)
	require.NoError(t, err)

	srcStripped, err := stripAppSegments(src)
	require.NoError(t, err)
	assert.Equal(t, srcStripped, stripped)

	_, err = stripAppSegments([]byte{0x00, 0x01})
	assert.Error(t, err)
}

func TestSplit_withoutMPF(t *testing.T) {
	data, err := New().EncodeHDR(hdrGradient(8, 8), 90)
	require.NoError(t, err)

	res, err := Split(data)
	require.NoError(t, err)

	// Rebuild the container without MPF to exercise the EOI fallback.
	primary, err := stripAppSegments(res.Primary)
	require.NoError(t, err)

	res2, err := Split(append(primary, res.GainMap...))
	require.NoError(t, err)
	assert.Equal(t, res.GainMap, res2.GainMap)
	assert.Equal(t, res.Metadata.MaxContentBoost, res2.Metadata.MaxContentBoost)
}
