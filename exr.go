package uhdrgen

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// OpenEXR scanline files, single part, uncompressed or ZIP(S) compressed.
const (
	exrFlagTiled     = 0x200
	exrFlagDeep      = 0x800
	exrFlagMultipart = 0x1000

	exrCompressionNone = 0
	exrCompressionZIPS = 2
	exrCompressionZIP  = 3

	exrPixelUint  = 0
	exrPixelHalf  = 1
	exrPixelFloat = 2

	// exrMaxPixels bounds the decoded raster to 1 GiB of float32 samples.
	exrMaxPixels = 1 << 26
	// exrMaxDeflateRatio is the largest expansion factor of a deflate stream.
	exrMaxDeflateRatio = 1032
)

type exrChannel struct {
	pixelType int32
	// plane is the index of the RGBA component the channel feeds, -1 for
	// luminance and -2 for ignored channels.
	plane int
}

func (c exrChannel) size() int {
	if c.pixelType == exrPixelHalf {
		return 2
	}
	return 4
}

type exrHeader struct {
	channels    []exrChannel
	minX, minY  int32
	maxX, maxY  int32
	compression byte
	hasWindow   bool
}

func (h *exrHeader) width() int  { return int(int64(h.maxX)-int64(h.minX)) + 1 }
func (h *exrHeader) height() int { return int(int64(h.maxY)-int64(h.minY)) + 1 }

// checkSize rejects data windows the remaining input cannot describe:
// every block needs an 8-byte offset and its pixel data, at most
// exrMaxDeflateRatio times smaller when compressed.
func (h *exrHeader) checkSize(remaining int) error {
	w, ht := h.width(), h.height()
	if w > exrMaxPixels/ht {
		return errors.Errorf("data window %dx%d exceeds %d pixels", w, ht, exrMaxPixels)
	}

	blocks := (ht + h.linesPerBlock() - 1) / h.linesPerBlock()
	if blocks*8 > remaining {
		return errors.Errorf("%d blocks need %d offset bytes, %d bytes left", blocks, blocks*8, remaining)
	}

	ratio := 1
	if h.compression != exrCompressionNone {
		ratio = exrMaxDeflateRatio
	}
	if need := h.bytesPerLine() * ht; need > remaining*ratio {
		return errors.Errorf("data window %dx%d needs %d bytes of pixel data, %d bytes left", w, ht, need, remaining)
	}
	return nil
}

func (h *exrHeader) linesPerBlock() int {
	if h.compression == exrCompressionZIP {
		return 16
	}
	return 1
}

func (h *exrHeader) bytesPerLine() int {
	n := 0
	for _, c := range h.channels {
		n += c.size() * h.width()
	}
	return n
}

// decodeEXR decodes a scanline OpenEXR file into a linear float image.
// Images without an alpha channel are opaque.
func decodeEXR(data []byte) (*Image, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "exr")
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "exr")
	}
	switch {
	case version&exrFlagTiled != 0:
		return nil, errors.New("exr: tiled images are not supported")
	case version&(exrFlagDeep|exrFlagMultipart) != 0:
		return nil, errors.New("exr: deep or multipart images are not supported")
	}

	h, err := readEXRHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, "exr")
	}

	if err := h.checkSize(r.Len()); err != nil {
		return nil, errors.Wrap(err, "exr")
	}

	w, ht := h.width(), h.height()
	pix := make([]float32, w*ht*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 1
	}

	lines := h.linesPerBlock()
	offsets := make([]uint64, (ht+lines-1)/lines)
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return nil, errors.Wrap(err, "exr offsets")
	}

	for _, off := range offsets {
		if off == 0 || off >= uint64(len(data)) {
			return nil, errors.New("exr: invalid block offset")
		}
		if err := decodeEXRBlock(h, data[off:], pix); err != nil {
			return nil, errors.Wrap(err, "exr")
		}
	}
	return NewFloatImage(w, ht, ColorSpaceExtendedLinearSRGB, pix), nil
}

func readEXRHeader(r *bytes.Reader) (*exrHeader, error) {
	h := &exrHeader{}
	for {
		name, err := readCString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readCString(r)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if size < 0 || int64(size) > int64(r.Len()) {
			return nil, errors.Errorf("attribute %s has invalid size %d", name, size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}

		switch {
		case name == "channels" && typ == "chlist":
			if h.channels, err = parseEXRChannels(payload); err != nil {
				return nil, err
			}
		case name == "dataWindow" && typ == "box2i" && len(payload) == 16:
			h.minX = int32(binary.LittleEndian.Uint32(payload[0:]))
			h.minY = int32(binary.LittleEndian.Uint32(payload[4:]))
			h.maxX = int32(binary.LittleEndian.Uint32(payload[8:]))
			h.maxY = int32(binary.LittleEndian.Uint32(payload[12:]))
			h.hasWindow = true
		case name == "compression" && len(payload) == 1:
			h.compression = payload[0]
		}
	}

	switch {
	case len(h.channels) == 0:
		return nil, errors.New("channels missing")
	case !h.hasWindow:
		return nil, errors.New("dataWindow missing")
	case h.width() <= 0 || h.height() <= 0:
		return nil, errors.Errorf("invalid dimensions %dx%d", h.width(), h.height())
	}
	switch h.compression {
	case exrCompressionNone, exrCompressionZIPS, exrCompressionZIP:
	default:
		return nil, errors.Errorf("unsupported compression %d", h.compression)
	}

	hasColor := false
	for _, c := range h.channels {
		if c.plane >= -1 && c.plane != 3 {
			hasColor = true
		}
	}
	if !hasColor {
		return nil, errors.New("R, G, B or Y channels missing")
	}
	return h, nil
}

func parseEXRChannels(data []byte) ([]exrChannel, error) {
	r := bytes.NewReader(data)
	var channels []exrChannel
	for {
		name, err := readCString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return channels, nil
		}
		// pixel type, pLinear + 3 reserved bytes, x and y sampling.
		var fields struct {
			PixelType int32
			Linear    [4]byte
			XSampling int32
			YSampling int32
		}
		if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
			return nil, err
		}
		if fields.PixelType < exrPixelUint || fields.PixelType > exrPixelFloat {
			return nil, errors.Errorf("channel %s has unsupported pixel type %d", name, fields.PixelType)
		}
		if fields.XSampling != 1 || fields.YSampling != 1 {
			return nil, errors.Errorf("channel %s is subsampled", name)
		}

		plane := -2
		switch strings.ToUpper(name) {
		case "R":
			plane = 0
		case "G":
			plane = 1
		case "B":
			plane = 2
		case "A":
			plane = 3
		case "Y":
			plane = -1
		}
		channels = append(channels, exrChannel{pixelType: fields.PixelType, plane: plane})
	}
}

// decodeEXRBlock reads one scanline block starting at data into pix.
func decodeEXRBlock(h *exrHeader, data []byte, pix []float32) error {
	if len(data) < 8 {
		return errors.New("block header truncated")
	}
	y := int(int32(binary.LittleEndian.Uint32(data[0:]))) - int(h.minY)
	size := int(int32(binary.LittleEndian.Uint32(data[4:])))
	if size < 0 || 8+size > len(data) {
		return errors.New("block truncated")
	}
	if y < 0 || y >= h.height() {
		return errors.Errorf("block line %d out of bounds", y)
	}

	lines := h.linesPerBlock()
	if y+lines > h.height() {
		lines = h.height() - y
	}
	raw, err := exrDecompress(h.compression, data[8:8+size], lines*h.bytesPerLine())
	if err != nil {
		return err
	}

	w := h.width()
	off := 0
	for row := 0; row < lines; row++ {
		line := pix[(y+row)*w*4:]
		for _, c := range h.channels {
			n := c.size()
			for x := 0; x < w; x++ {
				v := exrSample(c.pixelType, raw[off+x*n:])
				switch {
				case c.plane == -1:
					line[x*4], line[x*4+1], line[x*4+2] = v, v, v
				case c.plane >= 0:
					line[x*4+c.plane] = v
				}
			}
			off += w * n
		}
	}
	return nil
}

func exrSample(pixelType int32, b []byte) float32 {
	switch pixelType {
	case exrPixelHalf:
		return float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
	case exrPixelFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	default:
		return float32(binary.LittleEndian.Uint32(b))
	}
}

func exrDecompress(compression byte, data []byte, expected int) ([]byte, error) {
	if compression == exrCompressionNone || len(data) == expected {
		// Blocks that do not shrink are stored raw.
		if len(data) != expected {
			return nil, errors.Errorf("block has %d bytes, want %d", len(data), expected)
		}
		return data, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	buf := make([]byte, expected)
	if _, err := io.ReadFull(zr, buf); err != nil {
		return nil, errors.Wrap(err, "inflate block")
	}

	// Undo the delta predictor, then interleave the two halves.
	for i := 1; i < len(buf); i++ {
		buf[i] = buf[i] + buf[i-1] - 128
	}
	out := make([]byte, len(buf))
	half := (len(buf) + 1) / 2
	for i := range out {
		if i%2 == 0 {
			out[i] = buf[i/2]
		} else {
			out[i] = buf[half+i/2]
		}
	}
	return out, nil
}

func readCString(r *bytes.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}
