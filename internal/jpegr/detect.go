package jpegr

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// IsUltraHDR reports whether data is a JPEG/R container: a JPEG followed by a
// second JPEG whose header carries hdrgm XMP or ISO 21496-1 gain map metadata.
// Malformed input is reported as false.
func IsUltraHDR(data []byte) bool {
	ok, err := DetectUltraHDR(bytes.NewReader(data))
	return err == nil && ok
}

// DetectUltraHDR performs a streaming check, reading only up to the gain map header.
func DetectUltraHDR(r io.Reader) (bool, error) {
	mr := markerReader{br: bufio.NewReader(r)}
	found, err := mr.findSOI()
	if err != nil || !found {
		return false, err
	}
	if err := mr.skipImage(); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	found, err = mr.findSOI()
	if err != nil || !found {
		return false, err
	}
	ok, err := mr.hasGainMapMetadata()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false, nil
	}
	return ok, err
}

type markerReader struct {
	br *bufio.Reader
}

func (m markerReader) findSOI() (bool, error) {
	var prev byte
	for {
		b, err := m.br.ReadByte()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if prev == markerStart && b == markerSOI {
			return true, nil
		}
		prev = b
	}
}

// next returns the next marker code, skipping fill bytes.
func (m markerReader) next() (byte, error) {
	for {
		b, err := m.br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != markerStart {
			continue
		}
		for {
			c, err := m.br.ReadByte()
			if err != nil {
				return 0, err
			}
			if c != markerStart {
				return c, nil
			}
		}
	}
}

func (m markerReader) length() (int, error) {
	var buf [2]byte
	if _, err := io.ReadFull(m.br, buf[:]); err != nil {
		return 0, err
	}
	n := int(buf[0])<<8 | int(buf[1])
	if n < 2 {
		return 0, errors.New("invalid segment length")
	}
	return n - 2, nil
}

func (m markerReader) discard(n int) error {
	_, err := m.br.Discard(n)
	return err
}

func (m markerReader) skipSegment() error {
	n, err := m.length()
	if err != nil {
		return err
	}
	return m.discard(n)
}

// skipImage consumes one JPEG image up to and including its EOI.
func (m markerReader) skipImage() error {
	for {
		marker, err := m.next()
		if err != nil {
			return err
		}
		switch {
		case marker == markerEOI:
			return nil
		case marker == markerSOS:
			return m.skipScans()
		case marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
		default:
			if err := m.skipSegment(); err != nil {
				return err
			}
		}
	}
}

// skipScans consumes entropy-coded data (and any further scans) up to EOI.
func (m markerReader) skipScans() error {
	for {
		marker, err := m.next()
		if err != nil {
			return err
		}
		if marker == markerEOI {
			return nil
		}
	}
}

func (m markerReader) hasGainMapMetadata() (bool, error) {
	for {
		marker, err := m.next()
		if err != nil {
			return false, err
		}
		switch {
		case marker == markerEOI, marker == markerSOS:
			return false, nil
		case marker == markerAPP1 || marker == markerAPP2:
			prefix := xmpPrefix
			if marker == markerAPP2 {
				prefix = isoPrefix
			}
			n, err := m.length()
			if err != nil {
				return false, err
			}
			head := make([]byte, min(n, len(prefix)))
			if _, err := io.ReadFull(m.br, head); err != nil {
				return false, err
			}
			if bytes.Equal(head, prefix) && (marker == markerAPP2 || bytes.Contains(m.peekSegment(n-len(head)), []byte("hdrgm:"))) {
				return true, nil
			}
			if err := m.discard(n - len(head)); err != nil {
				return false, err
			}
		case marker >= 0xD0 && marker <= 0xD7, marker == 0x01:
		default:
			if err := m.skipSegment(); err != nil {
				return false, err
			}
		}
	}
}

// peekSegment returns up to n buffered bytes without consuming them.
func (m markerReader) peekSegment(n int) []byte {
	if n > m.br.Size() {
		n = m.br.Size()
	}
	b, _ := m.br.Peek(n)
	return b
}
