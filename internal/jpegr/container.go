package jpegr

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerAPP15 = 0xEF
	markerCOM   = 0xFE
)

var (
	exifSig = []byte("Exif\x00\x00")
	iccSig  = []byte("ICC_PROFILE\x00")
)

type segment struct {
	marker byte
	// start is the offset of the 0xFF marker byte, end is past the payload.
	start, end int
	payload    []byte
}

// walkHeader calls fn for every marker segment before the first SOS or EOI.
// Returning false from fn stops the walk.
func walkHeader(b []byte, fn func(s segment) bool) error {
	if !bytes.HasPrefix(b, []byte{markerStart, markerSOI}) || len(b) < 4 {
		return errors.New("invalid JPEG: SOI missing")
	}

	for i := 2; i+1 < len(b); {
		if b[i] != markerStart {
			i++
			continue
		}

		// Fill bytes may precede a marker.
		start := i
		for i < len(b) && b[i] == markerStart {
			i++
		}
		if i == len(b) {
			break
		}

		m := b[i]
		i++
		switch {
		case m == markerSOS, m == markerEOI:
			return nil
		case standalone(m):
			continue
		case i+2 > len(b):
			return errors.Errorf("truncated marker 0x%02X", m)
		}

		n := int(binary.BigEndian.Uint16(b[i:]))
		if n < 2 || i+n > len(b) {
			return errors.Errorf("bad length %d of marker 0x%02X", n, m)
		}
		if !fn(segment{marker: m, start: start, end: i + n, payload: b[i+2 : i+n]}) {
			return nil
		}
		i += n
	}
	return errors.New("invalid JPEG: no scan data")
}

// standalone reports markers that carry no length field: RSTn and TEM.
func standalone(m byte) bool {
	return m >= 0xD0 && m <= 0xD7 || m == 0x01
}

// appSegments returns copies of the APP1 and APP2 payloads in the JPEG header.
func appSegments(jpegData []byte) (app1, app2 [][]byte, err error) {
	err = walkHeader(jpegData, func(s segment) bool {
		switch s.marker {
		case markerAPP1:
			app1 = append(app1, bytes.Clone(s.payload))
		case markerAPP2:
			app2 = append(app2, bytes.Clone(s.payload))
		}
		return true
	})
	return app1, app2, err
}

// exifAndICC returns the EXIF APP1 payload and the ICC APP2 chunks, in order.
func exifAndICC(jpegData []byte) (exif []byte, icc [][]byte, err error) {
	app1, app2, err := appSegments(jpegData)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range app1 {
		if bytes.HasPrefix(p, exifSig) {
			exif = p
			break
		}
	}
	for _, p := range app2 {
		if bytes.HasPrefix(p, iccSig) && len(p) >= len(iccSig)+2 {
			icc = append(icc, p)
		}
	}
	return exif, icc, nil
}

// stripAppSegments drops APPn and COM segments, keeping tables and scan data.
func stripAppSegments(b []byte) ([]byte, error) {
	res := make([]byte, 0, len(b))
	res = append(res, b[:2]...)
	from := 2

	err := walkHeader(b, func(s segment) bool {
		if isAppOrCOM(s.marker) {
			res = append(res, b[from:s.start]...)
			from = s.end
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return append(res, b[from:]...), nil
}

func isAppOrCOM(m byte) bool {
	return m == markerCOM || m >= markerAPP0 && m <= markerAPP15
}

// writeAppSegment writes a marker with its big-endian length and payload.
func writeAppSegment(w *bytes.Buffer, marker byte, payload []byte) {
	hdr := []byte{markerStart, marker}
	w.Write(binary.BigEndian.AppendUint16(hdr, uint16(len(payload)+2)))
	w.Write(payload)
}

// appSize is the encoded size of an APPn segment, zero for an empty payload.
func appSize(payload []byte) int {
	if len(payload) == 0 {
		return 0
	}
	return len(payload) + 4
}

// assemble builds a JPEG/R container.
//
// Primary image: SOI, EXIF, container XMP, version-only ISO, MPF, ICC, then the
// stripped primary JPEG. Gain map image: SOI, hdrgm XMP, ISO metadata, then the
// stripped gain map JPEG.
func assemble(primaryJPEG, gainMapJPEG []byte, meta *GainMapMetadata) ([]byte, error) {
	exif, icc, err := exifAndICC(primaryJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "primary")
	}
	primary, err := stripAppSegments(primaryJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "primary")
	}
	gainMap, err := stripAppSegments(gainMapJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "gain map")
	}

	iso, err := isoPayload(meta)
	if err != nil {
		return nil, err
	}
	secXMP := gainMapXMP(meta)

	var second bytes.Buffer
	second.Write([]byte{markerStart, markerSOI})
	writeAppSegment(&second, markerAPP1, secXMP)
	writeAppSegment(&second, markerAPP2, iso)
	second.Write(gainMap[2:])

	var out bytes.Buffer
	out.Grow(len(primary) + second.Len() + 4096)
	out.Write([]byte{markerStart, markerSOI})
	if len(exif) > 0 {
		writeAppSegment(&out, markerAPP1, exif)
	}
	writeAppSegment(&out, markerAPP1, primaryXMP(second.Len()))
	writeAppSegment(&out, markerAPP2, isoVersionPayload())

	// TIFF header of the MPF payload: marker (2) + length (2) + "MPF\0" (4).
	tiffHeader := out.Len() + 4 + len(mpfSig)
	primarySize := out.Len() + appSize(make([]byte, mpfSize())) + len(primary) - 2
	for _, seg := range icc {
		primarySize += appSize(seg)
	}
	writeAppSegment(&out, markerAPP2, buildMPF(primarySize, second.Len(), primarySize-tiffHeader))

	for _, seg := range icc {
		writeAppSegment(&out, markerAPP2, seg)
	}
	out.Write(primary[2:])
	if out.Len() != primarySize {
		return nil, errors.Errorf("primary size mismatch: %d != %d", out.Len(), primarySize)
	}
	out.Write(second.Bytes())
	return out.Bytes(), nil
}
