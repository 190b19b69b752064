package uhdrgen

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// EncodeJPEG renders an sRGB view of img as a baseline JPEG.
func EncodeJPEG(img *Image, quality int) ([]byte, error) {
	buf, err := ExtractPixels(img, PixelFormatRGBA8888)
	if err != nil {
		return nil, err
	}

	rgba := &image.RGBA{
		Pix:    buf.Pix,
		Stride: buf.Format.BytesPerRow(buf.Width),
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrapf(ErrEncoding, "jpeg: %v", err)
	}
	return out.Bytes(), nil
}
