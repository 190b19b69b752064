package uhdrgen

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"  // GIF decoder.
	_ "image/jpeg" // JPEG decoder.
	_ "image/png"  // PNG decoder.
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // BMP decoder.
	_ "golang.org/x/image/tiff" // TIFF decoder.
	_ "golang.org/x/image/webp" // WebP decoder.
)

var (
	radianceSigs = [][]byte{[]byte("#?RADIANCE"), []byte("#?RGBE")}
	exrSig       = []byte{0x76, 0x2f, 0x31, 0x01}
)

// LoadImageFile reads and decodes an image file, see LoadImage.
func LoadImageFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrImageLoad, "read %s: %v", path, err)
	}
	img, err := LoadImage(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return img, nil
}

// LoadImage decodes JPEG, PNG, GIF, TIFF, WebP and BMP as sRGB, and Radiance
// RGBE and OpenEXR as extended linear sRGB. JPEG EXIF orientation is applied.
func LoadImage(data []byte) (*Image, error) {
	var (
		img *Image
		err error
	)
	switch {
	case bytes.HasPrefix(data, exrSig):
		img, err = decodeEXR(data)
	case isRadiance(data):
		img, err = decodeRadiance(data)
	default:
		img, err = decodeRaster(data)
	}
	if err != nil {
		return nil, errors.Wrap(ErrImageLoad, err.Error())
	}
	if img.empty() {
		return nil, errors.Wrap(ErrImageLoad, "image is empty")
	}
	return img.Oriented(ExifOrientation(data)), nil
}

// hdrSignature reports whether data starts like a format LoadImage tags as HDR.
func hdrSignature(data []byte) bool {
	return bytes.HasPrefix(data, exrSig) || isRadiance(data)
}

func isRadiance(data []byte) bool {
	for _, sig := range radianceSigs {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

func decodeRaster(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return FromImage(img, ColorSpaceSRGB), nil
}

func decodeRadiance(data []byte) (*Image, error) {
	img, err := rgbe.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "radiance")
	}
	h, ok := img.(hdr.Image)
	if !ok {
		return nil, errors.Errorf("radiance: unexpected image type %T", img)
	}
	b := h.Bounds()
	w, ht := b.Dx(), b.Dy()
	pix := make([]float32, 0, w*ht*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := h.HDRAt(x, y).HDRRGBA()
			pix = append(pix, float32(r), float32(g), float32(bl), 1)
		}
	}
	return NewFloatImage(w, ht, ColorSpaceExtendedLinearSRGB, pix), nil
}

// ExifOrientation reads the orientation tag of a JPEG EXIF block,
// OrientationUp when absent or data is not a JPEG.
func ExifOrientation(data []byte) Orientation {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return OrientationUp
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return OrientationUp
		}
		marker := data[pos+1]
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		size := int(binary.BigEndian.Uint16(data[pos+2:]))
		if size < 2 || pos+2+size > len(data) {
			break
		}
		payload := data[pos+4 : pos+2+size]
		if marker == 0xE1 && bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
			return tiffOrientation(payload[6:])
		}
		pos += 2 + size
	}
	return OrientationUp
}

func tiffOrientation(tiff []byte) Orientation {
	if len(tiff) < 8 {
		return OrientationUp
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return OrientationUp
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd+2 > len(tiff) {
		return OrientationUp
	}
	n := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < n; i++ {
		e := ifd + 2 + i*12
		if e+12 > len(tiff) {
			break
		}
		if order.Uint16(tiff[e:]) == 0x0112 {
			o := Orientation(order.Uint16(tiff[e+8:]))
			if o < OrientationUp || o > OrientationLeft {
				return OrientationUp
			}
			return o
		}
	}
	return OrientationUp
}
