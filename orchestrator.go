package uhdrgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
)

// EncodeRequest is one of HDROnly, HDRWithSDR, HDRWithCompressedSDR or
// CompressedSDRWithGainMap.
type EncodeRequest interface {
	encodeRequest()
}

// HDROnly encodes an HDR image, the encoder derives the SDR base.
type HDROnly struct {
	HDR     *Image
	Quality int
}

// HDRWithSDR encodes an HDR image with a matching SDR rendition.
type HDRWithSDR struct {
	HDR     *Image
	SDR     *Image
	Quality int
}

// HDRWithCompressedSDR encodes an HDR image with an SDR JPEG used as the base image.
type HDRWithCompressedSDR struct {
	HDR     *Image
	SDRJPEG []byte
}

// CompressedSDRWithGainMap wraps an SDR JPEG and a gain map JPEG.
type CompressedSDRWithGainMap struct {
	SDRJPEG     []byte
	GainMapJPEG []byte
}

func (HDROnly) encodeRequest()                  {}
func (HDRWithSDR) encodeRequest()               {}
func (HDRWithCompressedSDR) encodeRequest()     {}
func (CompressedSDRWithGainMap) encodeRequest() {}

// OrchestratorOptions configures Orchestrator.
type OrchestratorOptions struct {
	// Logger receives debug traces of each step, discarded by default.
	Logger *slog.Logger
}

// Orchestrator normalizes images into raw buffers and dispatches encode requests.
// It keeps no per-request state and may be shared.
type Orchestrator struct {
	enc Encoder
	log *slog.Logger
}

// NewOrchestrator creates an orchestrator on top of enc.
func NewOrchestrator(enc Encoder, opts ...func(o *OrchestratorOptions)) *Orchestrator {
	o := OrchestratorOptions{}
	for _, f := range opts {
		f(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{enc: enc, log: o.Logger}
}

// Encode produces a JPEG/R container for req. No partial output is returned on failure.
// Pointers to variants are accepted and dereferenced, nil pointers are rejected.
func (o *Orchestrator) Encode(ctx context.Context, req EncodeRequest) ([]byte, error) {
	switch r := valueOf(req).(type) {
	case HDROnly:
		return o.encodeHDR(ctx, r)
	case HDRWithSDR:
		return o.encodeHDRWithSDR(ctx, r)
	case HDRWithCompressedSDR:
		return o.encodeHDRWithCompressedSDR(ctx, r)
	case CompressedSDRWithGainMap:
		return o.encodeCompressedPair(ctx, r)
	default:
		return nil, &EncodingError{Message: fmt.Sprintf("unsupported encode request %T", req)}
	}
}

func valueOf(req EncodeRequest) EncodeRequest {
	switch r := req.(type) {
	case *HDROnly:
		if r != nil {
			return *r
		}
	case *HDRWithSDR:
		if r != nil {
			return *r
		}
	case *HDRWithCompressedSDR:
		if r != nil {
			return *r
		}
	case *CompressedSDRWithGainMap:
		if r != nil {
			return *r
		}
	}
	return req
}

// IsUltraHDRContainer reports whether data is a JPEG/R container.
func (o *Orchestrator) IsUltraHDRContainer(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return o.enc.IsUltraHDR(data)
}

func (o *Orchestrator) encodeHDR(ctx context.Context, r HDROnly) ([]byte, error) {
	hdr, err := o.buffer(ctx, "hdr", r.HDR)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.log.DebugContext(ctx, "encoding", "variant", "hdr", "quality", r.Quality)
	return o.result(o.enc.EncodeHDR(hdr, r.Quality))
}

func (o *Orchestrator) encodeHDRWithSDR(ctx context.Context, r HDRWithSDR) ([]byte, error) {
	hdr, err := o.buffer(ctx, "hdr", r.HDR)
	if err != nil {
		return nil, err
	}
	sdr, err := o.buffer(ctx, "sdr", r.SDR)
	if err != nil {
		return nil, err
	}
	if err := sameDimensions(hdr, sdr); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.log.DebugContext(ctx, "encoding", "variant", "hdr+sdr", "quality", r.Quality)
	return o.result(o.enc.EncodeHDRWithSDR(hdr, sdr, r.Quality))
}

func (o *Orchestrator) encodeHDRWithCompressedSDR(ctx context.Context, r HDRWithCompressedSDR) ([]byte, error) {
	hdr, err := o.buffer(ctx, "hdr", r.HDR)
	if err != nil {
		return nil, err
	}
	if len(r.SDRJPEG) == 0 {
		return nil, &EncodingError{Message: "compressed SDR image is empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.log.DebugContext(ctx, "encoding", "variant", "hdr+compressed sdr", "sdr_bytes", len(r.SDRJPEG))
	return o.result(o.enc.EncodeHDRWithCompressedSDR(hdr, r.SDRJPEG))
}

func (o *Orchestrator) encodeCompressedPair(ctx context.Context, r CompressedSDRWithGainMap) ([]byte, error) {
	if len(r.SDRJPEG) == 0 || len(r.GainMapJPEG) == 0 {
		return nil, &EncodingError{Message: "compressed SDR image or gain map is empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.log.DebugContext(ctx, "encoding", "variant", "compressed pair",
		"sdr_bytes", len(r.SDRJPEG), "gain_map_bytes", len(r.GainMapJPEG))
	return o.result(o.enc.EncodeCompressedSDRWithGainMap(r.SDRJPEG, r.GainMapJPEG))
}

// buffer resolves the pixel format of img and extracts its raw buffer.
func (o *Orchestrator) buffer(ctx context.Context, role string, img *Image) (*RawPixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := ResolvePixelFormat(img)
	o.log.DebugContext(ctx, "resolved pixel format", "image", role, "format", f.String())

	buf, err := ExtractPixels(img, f)
	if err != nil {
		return nil, errors.WithMessage(err, role)
	}
	o.log.DebugContext(ctx, "extracted pixels", "image", role,
		"width", buf.Width, "height", buf.Height, "bytes", len(buf.Pix))
	return buf, nil
}

func (o *Orchestrator) result(data []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, &EncodingError{Message: err.Error(), Err: err}
	}
	if len(data) == 0 {
		return nil, &EncodingError{Message: "encoder returned no data"}
	}
	return data, nil
}

func sameDimensions(a, b *RawPixelBuffer) error {
	if a.Width != b.Width || a.Height != b.Height {
		return &EncodingError{
			Message: fmt.Sprintf("hdr %dx%d, sdr %dx%d", a.Width, a.Height, b.Width, b.Height),
			Err:     ErrDimensionMismatch,
		}
	}
	return nil
}
