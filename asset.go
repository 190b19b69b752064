package uhdrgen

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Asset is a source of HDR image data.
type Asset interface {
	// SupportsDynamicRange reports whether the asset holds HDR content.
	SupportsDynamicRange() bool
	// Open returns encoded image data and the orientation to display it with.
	Open(ctx context.Context) (data []byte, orientation Orientation, err error)
}

// FileAsset is an Asset backed by an image file.
type FileAsset struct {
	Path string
}

// SupportsDynamicRange sniffs the file signature for a format that decodes
// to an extended color space. An unreadable file reports true so that Open
// surfaces the read error.
func (a FileAsset) SupportsDynamicRange() bool {
	f, err := os.Open(a.Path)
	if err != nil {
		return true
	}
	defer f.Close()

	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return hdrSignature(head[:n])
}

// Open reads the file. Orientation is OrientationUp, as LoadImage applies
// EXIF orientation itself.
func (a FileAsset) Open(ctx context.Context) ([]byte, Orientation, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrImageLoad, "read %s: %v", a.Path, err)
	}
	return data, OrientationUp, nil
}

// IsHDR reports whether img carries an extended color space tag.
func IsHDR(img *Image) bool {
	if img == nil {
		return false
	}
	switch img.ColorSpace() {
	case ColorSpaceExtendedSRGB, ColorSpaceExtendedLinearSRGB:
		return true
	default:
		return false
	}
}

// Acquire loads an HDR image from asset and derives its SDR companion with curve.
// The SDR companion is best effort: sdr is nil when it could not be derived.
func Acquire(ctx context.Context, asset Asset, curve ToneCurve) (hdr, sdr *Image, err error) {
	if asset == nil || !asset.SupportsDynamicRange() {
		return nil, nil, ErrUnsupportedDynamicRange
	}
	data, orientation, err := asset.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrImageLoad) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, errors.Wrap(ErrImageLoad, err.Error())
	}
	hdr, err = LoadImage(data)
	if err != nil {
		return nil, nil, err
	}
	if !IsHDR(hdr) {
		return nil, nil, ErrUnsupportedDynamicRange
	}
	hdr = hdr.Oriented(orientation)

	sdr, err = DeriveSDR(hdr, curve)
	if err != nil {
		sdr = nil
	}
	return hdr, sdr, nil
}
