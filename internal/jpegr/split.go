package jpegr

import (
	"bytes"

	"github.com/pkg/errors"
)

// SplitResult holds the parts of a JPEG/R container.
type SplitResult struct {
	Primary  []byte
	GainMap  []byte
	Metadata *GainMapMetadata
}

// Split separates a JPEG/R container into primary JPEG, gain map JPEG and metadata.
// The MPF index is preferred; without it the gain map is taken to start right
// after the primary EOI.
func Split(data []byte) (*SplitResult, error) {
	secondaryStart := -1
	err := walkHeader(data, func(s segment) bool {
		if s.marker != markerAPP2 || !bytes.HasPrefix(s.payload, mpfSig) {
			return true
		}
		info, err := parseMPF(s.payload)
		if err != nil {
			return true
		}
		// Offsets are relative to the TIFF header following the MPF signature.
		tiffHeader := s.start + 4 + len(mpfSig)
		start := tiffHeader + info.secondaryOffset
		if start > 0 && start+info.secondarySize <= len(data) {
			secondaryStart = start
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	if secondaryStart < 0 {
		end, err := findJPEGEnd(data)
		if err != nil {
			return nil, err
		}
		secondaryStart = end
	}

	if secondaryStart+2 > len(data) || data[secondaryStart] != markerStart || data[secondaryStart+1] != markerSOI {
		return nil, errors.New("gain map image not found")
	}

	res := &SplitResult{
		Primary: data[:secondaryStart],
		GainMap: data[secondaryStart:],
	}
	if res.Metadata, err = gainMapMetadata(res.GainMap); err != nil {
		return nil, err
	}
	return res, nil
}

// gainMapMetadata reads ISO 21496-1 metadata from a gain map JPEG, falling
// back to hdrgm XMP.
func gainMapMetadata(gainMap []byte) (*GainMapMetadata, error) {
	app1, app2, err := appSegments(gainMap)
	if err != nil {
		return nil, errors.Wrap(err, "gain map")
	}
	for _, p := range app2 {
		if bytes.HasPrefix(p, isoPrefix) && len(p) > len(isoPrefix)+4 {
			return decodeISO(p[len(isoPrefix):])
		}
	}
	for _, p := range app1 {
		if bytes.HasPrefix(p, xmpPrefix) {
			return parseGainMapXMP(p)
		}
	}
	return nil, errors.New("gain map metadata not found")
}

// findJPEGEnd returns the offset just past the EOI of the first image in data.
func findJPEGEnd(data []byte) (int, error) {
	scan := -1
	pos := 2
	err := walkHeader(data, func(s segment) bool {
		pos = s.end
		return true
	})
	if err != nil {
		return 0, err
	}
	// walkHeader stopped at SOS or EOI; find it after the last segment.
	for i := pos; i+1 < len(data); i++ {
		if data[i] == markerStart && (data[i+1] == markerSOS || data[i+1] == markerEOI) {
			scan = i
			break
		}
	}
	if scan < 0 {
		return 0, errors.New("invalid JPEG: no scan data")
	}
	if data[scan+1] == markerEOI {
		return scan + 2, nil
	}
	for i := scan + 2; i+1 < len(data); i++ {
		if data[i] == markerStart && data[i+1] == markerEOI {
			return i + 2, nil
		}
	}
	return 0, errors.New("invalid JPEG: EOI missing")
}
