package uhdrgen

import (
	"sync"

	"github.com/vearutop/uhdrgen/internal/jpegr"
)

// Encoder is the JPEG/R encoding capability used by Orchestrator.
// Buffers passed in are not retained after a call returns.
type Encoder interface {
	EncodeHDR(hdr *RawPixelBuffer, quality int) ([]byte, error)
	EncodeHDRWithSDR(hdr, sdr *RawPixelBuffer, quality int) ([]byte, error)
	EncodeHDRWithCompressedSDR(hdr *RawPixelBuffer, sdrJPEG []byte) ([]byte, error)
	EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG []byte) ([]byte, error)
	IsUltraHDR(data []byte) bool
}

// EncoderOptions controls the built-in encoder.
type EncoderOptions = jpegr.Options

// GainMapMetadata describes how a gain map is applied to the base image.
type GainMapMetadata = jpegr.GainMapMetadata

// NewEncoder returns the built-in pure-Go encoder, safe for concurrent use.
func NewEncoder(opts ...func(o *EncoderOptions)) Encoder {
	return jpegrEncoder{enc: jpegr.New(opts...)}
}

type jpegrEncoder struct {
	enc *jpegr.Encoder
}

func toBuffer(b *RawPixelBuffer) *jpegr.Buffer {
	if b == nil {
		return nil
	}
	return &jpegr.Buffer{
		Format: jpegr.PixelFormat(b.Format),
		Width:  b.Width,
		Height: b.Height,
		Pix:    b.Pix,
	}
}

func (e jpegrEncoder) EncodeHDR(hdr *RawPixelBuffer, quality int) ([]byte, error) {
	return e.enc.EncodeHDR(toBuffer(hdr), quality)
}

func (e jpegrEncoder) EncodeHDRWithSDR(hdr, sdr *RawPixelBuffer, quality int) ([]byte, error) {
	return e.enc.EncodeHDRWithSDR(toBuffer(hdr), toBuffer(sdr), quality)
}

func (e jpegrEncoder) EncodeHDRWithCompressedSDR(hdr *RawPixelBuffer, sdrJPEG []byte) ([]byte, error) {
	return e.enc.EncodeHDRWithCompressedSDR(toBuffer(hdr), sdrJPEG)
}

func (e jpegrEncoder) EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG []byte) ([]byte, error) {
	return e.enc.EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG)
}

func (e jpegrEncoder) IsUltraHDR(data []byte) bool {
	return e.enc.IsUltraHDR(data)
}

// Locked serializes calls to an encoder that is not safe for concurrent use.
func Locked(enc Encoder) Encoder {
	return &lockedEncoder{enc: enc}
}

type lockedEncoder struct {
	mu  sync.Mutex
	enc Encoder
}

func (l *lockedEncoder) EncodeHDR(hdr *RawPixelBuffer, quality int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enc.EncodeHDR(hdr, quality)
}

func (l *lockedEncoder) EncodeHDRWithSDR(hdr, sdr *RawPixelBuffer, quality int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enc.EncodeHDRWithSDR(hdr, sdr, quality)
}

func (l *lockedEncoder) EncodeHDRWithCompressedSDR(hdr *RawPixelBuffer, sdrJPEG []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enc.EncodeHDRWithCompressedSDR(hdr, sdrJPEG)
}

func (l *lockedEncoder) EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enc.EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG)
}

func (l *lockedEncoder) IsUltraHDR(data []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.enc.IsUltraHDR(data)
}
