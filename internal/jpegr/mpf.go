package jpegr

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Multi-Picture Format (CIPA DC-007) index IFD with two images.
const (
	mpfPictures   = 2
	mpfTagCount   = 3
	mpfTagSize    = 12
	mpfEntrySize  = 16
	mpfHeaderSize = 8 // TIFF header: byte order, magic, IFD offset.

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag        = 0xB000
	mpfNumberOfImagesTag = 0xB001
	mpfEntryTag          = 0xB002

	mpfAttrPrimary = 0x030000
)

var (
	mpfSig       = []byte{'M', 'P', 'F', 0}
	mpfBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}
	mpfVersion   = []byte{'0', '1', '0', '0'}
)

// mpfSize is the APP2 payload size of the MPF segment.
func mpfSize() int {
	return len(mpfSig) + mpfHeaderSize + 2 + mpfTagCount*mpfTagSize + 4 + mpfPictures*mpfEntrySize
}

// buildMPF returns the MPF APP2 payload. secondaryOffset is relative to the
// TIFF header, which starts right after the MPF signature.
func buildMPF(primarySize, secondarySize, secondaryOffset int) []byte {
	b := make([]byte, 0, mpfSize())
	be := binary.BigEndian

	b = append(b, mpfSig...)
	b = append(b, mpfBigEndian...)
	b = be.AppendUint32(b, mpfHeaderSize) // index IFD follows the header
	b = be.AppendUint16(b, mpfTagCount)

	b = be.AppendUint16(b, mpfVersionTag)
	b = be.AppendUint16(b, mpfTypeUndefined)
	b = be.AppendUint32(b, uint32(len(mpfVersion)))
	b = append(b, mpfVersion...)

	b = be.AppendUint16(b, mpfNumberOfImagesTag)
	b = be.AppendUint16(b, mpfTypeLong)
	b = be.AppendUint32(b, 1)
	b = be.AppendUint32(b, mpfPictures)

	b = be.AppendUint16(b, mpfEntryTag)
	b = be.AppendUint16(b, mpfTypeUndefined)
	b = be.AppendUint32(b, mpfEntrySize*mpfPictures)
	b = be.AppendUint32(b, uint32(mpfHeaderSize+2+mpfTagCount*mpfTagSize+4))

	b = be.AppendUint32(b, 0) // no attribute IFD

	b = be.AppendUint32(b, mpfAttrPrimary)
	b = be.AppendUint32(b, uint32(primarySize))
	b = be.AppendUint32(b, 0)
	b = be.AppendUint32(b, 0) // dependent image entries

	b = be.AppendUint32(b, 0)
	b = be.AppendUint32(b, uint32(secondarySize))
	b = be.AppendUint32(b, uint32(secondaryOffset))
	b = be.AppendUint32(b, 0)

	return b
}

type mpfInfo struct {
	primarySize     int
	secondarySize   int
	secondaryOffset int
}

// parseMPF reads image sizes and the secondary offset from an MPF APP2 payload.
// Both byte orders are accepted.
func parseMPF(payload []byte) (mpfInfo, error) {
	if !bytes.HasPrefix(payload, mpfSig) || len(payload) < len(mpfSig)+mpfHeaderSize {
		return mpfInfo{}, errors.New("mpf signature missing")
	}
	tiff := payload[len(mpfSig):]

	var order binary.ByteOrder
	switch {
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	default:
		return mpfInfo{}, errors.New("mpf byte order invalid")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return mpfInfo{}, errors.New("mpf tiff magic invalid")
	}

	pos := int(order.Uint32(tiff[4:8]))
	if pos+2 > len(tiff) {
		return mpfInfo{}, errors.New("mpf ifd offset invalid")
	}
	tags := int(order.Uint16(tiff[pos:]))
	pos += 2
	entries := -1
	for i := 0; i < tags; i++ {
		if pos+mpfTagSize > len(tiff) {
			return mpfInfo{}, errors.New("mpf ifd truncated")
		}
		tag := order.Uint16(tiff[pos:])
		typ := order.Uint16(tiff[pos+2:])
		count := order.Uint32(tiff[pos+4:])
		if tag == mpfEntryTag && typ == mpfTypeUndefined && count >= mpfEntrySize {
			entries = int(order.Uint32(tiff[pos+8:]))
			break
		}
		pos += mpfTagSize
	}
	if entries < 0 || entries+mpfEntrySize*mpfPictures > len(tiff) {
		return mpfInfo{}, errors.New("mpf entry offset invalid")
	}

	var info mpfInfo
	for i := 0; i < mpfPictures; i++ {
		e := tiff[entries+i*mpfEntrySize:]
		attr := order.Uint32(e[0:])
		size := int(order.Uint32(e[4:]))
		offset := int(order.Uint32(e[8:]))
		if attr&mpfAttrPrimary != 0 {
			info.primarySize = size
		} else {
			info.secondarySize = size
			info.secondaryOffset = offset
		}
	}
	if info.primarySize == 0 || info.secondarySize == 0 {
		return mpfInfo{}, errors.New("mpf sizes missing")
	}
	return info, nil
}
