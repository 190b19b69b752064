package uhdrgen_test

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen"
)

func TestEncodeJPEG(t *testing.T) {
	hdr := linearHDR(8, 4, 3)

	sdr, err := uhdrgen.DeriveSDR(hdr, uhdrgen.DefaultToneCurve())
	require.NoError(t, err)

	data, err := uhdrgen.EncodeJPEG(sdr, 90)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)

	_, err = uhdrgen.EncodeJPEG(nil, 90)
	assert.ErrorIs(t, err, uhdrgen.ErrDataExtraction)
}
