package uhdrgen_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/uhdrgen"
)

type memAsset struct {
	hdr         bool
	data        []byte
	orientation uhdrgen.Orientation
	err         error
}

func (a memAsset) SupportsDynamicRange() bool { return a.hdr }

func (a memAsset) Open(context.Context) ([]byte, uhdrgen.Orientation, error) {
	return a.data, a.orientation, a.err
}

func TestAcquire(t *testing.T) {
	asset := memAsset{hdr: true, data: exrFile(t, 3, 2, false, ramp), orientation: uhdrgen.OrientationRight}

	hdr, sdr, err := uhdrgen.Acquire(context.Background(), asset, uhdrgen.DefaultToneCurve())
	require.NoError(t, err)
	require.NotNil(t, sdr)

	assert.Equal(t, 2, hdr.Width())
	assert.Equal(t, 3, hdr.Height())
	assert.Equal(t, uhdrgen.ColorSpaceExtendedLinearSRGB, hdr.ColorSpace())
	assert.Equal(t, hdr.Width(), sdr.Width())
	assert.Equal(t, hdr.Height(), sdr.Height())
	assert.Equal(t, uhdrgen.ColorSpaceSRGB, sdr.ColorSpace())
}

func TestAcquire_errors(t *testing.T) {
	var sdrPNG bytes.Buffer
	require.NoError(t, png.Encode(&sdrPNG, gradient(4, 4)))

	ctx := context.Background()
	curve := uhdrgen.DefaultToneCurve()

	_, _, err := uhdrgen.Acquire(ctx, nil, curve)
	assert.ErrorIs(t, err, uhdrgen.ErrUnsupportedDynamicRange)

	_, _, err = uhdrgen.Acquire(ctx, memAsset{hdr: false}, curve)
	assert.ErrorIs(t, err, uhdrgen.ErrUnsupportedDynamicRange)

	_, _, err = uhdrgen.Acquire(ctx, memAsset{hdr: true, err: errors.New("offline")}, curve)
	assert.ErrorIs(t, err, uhdrgen.ErrImageLoad)
	assert.Equal(t, uhdrgen.KindImageLoad, uhdrgen.KindOf(err))

	_, _, err = uhdrgen.Acquire(ctx, memAsset{hdr: true, err: context.Canceled}, curve)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uhdrgen.KindCanceled, uhdrgen.KindOf(err))

	_, _, err = uhdrgen.Acquire(ctx, memAsset{hdr: true, data: sdrPNG.Bytes()}, curve)
	assert.ErrorIs(t, err, uhdrgen.ErrUnsupportedDynamicRange)

	_, _, err = uhdrgen.Acquire(ctx, memAsset{hdr: true, data: []byte("garbage")}, curve)
	assert.ErrorIs(t, err, uhdrgen.ErrImageLoad)
}

func TestLocked(t *testing.T) {
	fake := &fakeEncoder{}
	enc := uhdrgen.Locked(fake)
	orch := uhdrgen.NewOrchestrator(enc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := orch.Encode(context.Background(), uhdrgen.HDROnly{HDR: linearHDR(2, 2, 2), Quality: 90})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, fake.calls, 8)
	assert.True(t, enc.IsUltraHDR([]byte("container")))
}

func TestFileAsset_SupportsDynamicRange(t *testing.T) {
	dir := t.TempDir()

	var sdrPNG bytes.Buffer
	require.NoError(t, png.Encode(&sdrPNG, gradient(2, 2)))

	assert.True(t, uhdrgen.FileAsset{Path: writeFile(t, dir, "a.exr", exrFile(t, 2, 2, false, ramp))}.SupportsDynamicRange())
	assert.True(t, uhdrgen.FileAsset{Path: writeFile(t, dir, "a.hdr", []byte("#?RADIANCE\n"))}.SupportsDynamicRange())
	assert.False(t, uhdrgen.FileAsset{Path: writeFile(t, dir, "a.png", sdrPNG.Bytes())}.SupportsDynamicRange())
	assert.False(t, uhdrgen.FileAsset{Path: writeFile(t, dir, "a.bin", []byte{1})}.SupportsDynamicRange())

	// Unreadable files are left to Open, which reports the read error.
	missing := uhdrgen.FileAsset{Path: filepath.Join(dir, "missing.exr")}
	assert.True(t, missing.SupportsDynamicRange())
	_, _, err := missing.Open(context.Background())
	assert.ErrorIs(t, err, uhdrgen.ErrImageLoad)
}
