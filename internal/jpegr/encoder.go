package jpegr

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// Encoder produces JPEG/R containers. It holds no mutable state and is safe
// for concurrent use.
type Encoder struct {
	opts Options
}

// New creates an encoder with default options adjusted by opts.
func New(opts ...func(o *Options)) *Encoder {
	o := Options{
		GainMapQuality: defaultGainMapQuality,
		GainMapScale:   defaultGainMapScale,
		GainMapGamma:   defaultGainMapGamma,
	}
	for _, f := range opts {
		f(&o)
	}
	if o.GainMapQuality <= 0 {
		o.GainMapQuality = defaultGainMapQuality
	}
	if o.GainMapScale < 1 {
		o.GainMapScale = 1
	}
	if o.GainMapGamma <= 0 {
		o.GainMapGamma = defaultGainMapGamma
	}
	if o.PairMetadata == nil {
		o.PairMetadata = DefaultPairMetadata()
	}
	return &Encoder{opts: o}
}

// Options returns the effective options.
func (e *Encoder) Options() Options {
	return e.opts
}

// EncodeHDR encodes a raw HDR buffer, deriving the SDR base by tone mapping.
func (e *Encoder) EncodeHDR(hdr *Buffer, quality int) ([]byte, error) {
	hdrLin, err := unpackLinear(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "hdr")
	}
	return e.encodeLinear(hdrLin, toneMap(hdrLin), quality)
}

// EncodeHDRWithSDR encodes a raw HDR buffer with a caller supplied SDR rendition.
func (e *Encoder) EncodeHDRWithSDR(hdr, sdr *Buffer, quality int) ([]byte, error) {
	hdrLin, err := unpackLinear(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "hdr")
	}
	sdrLin, err := unpackLinear(sdr)
	if err != nil {
		return nil, errors.Wrap(err, "sdr")
	}
	if err := sameSize(hdrLin.w, hdrLin.h, sdrLin.w, sdrLin.h); err != nil {
		return nil, err
	}
	return e.encodeLinear(hdrLin, sdrLin, quality)
}

// EncodeHDRWithCompressedSDR encodes a raw HDR buffer with an SDR JPEG that is
// used as the base image as is.
func (e *Encoder) EncodeHDRWithCompressedSDR(hdr *Buffer, sdrJPEG []byte) ([]byte, error) {
	hdrLin, err := unpackLinear(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "hdr")
	}
	_, icc, err := exifAndICC(sdrJPEG)
	if err != nil {
		return nil, errors.Wrap(err, "sdr jpeg")
	}
	sdrImg, err := jpeg.Decode(bytes.NewReader(sdrJPEG))
	if err != nil {
		return nil, errors.Wrap(err, "decode sdr jpeg")
	}
	b := sdrImg.Bounds()
	if err := sameSize(hdrLin.w, hdrLin.h, b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	sdrLin := linearFromImage(sdrImg, detectGamut(joinICCProfile(icc)))

	gainMap, err := e.gainMapJPEG(sdrLin, hdrLin)
	if err != nil {
		return nil, err
	}
	return assemble(sdrJPEG, gainMap.jpeg, gainMap.meta)
}

// EncodeCompressedSDRWithGainMap wraps an SDR JPEG and a gain map JPEG into a
// container, describing the gain map with the configured pair metadata.
func (e *Encoder) EncodeCompressedSDRWithGainMap(sdrJPEG, gainMapJPEG []byte) ([]byte, error) {
	if _, err := jpeg.DecodeConfig(bytes.NewReader(sdrJPEG)); err != nil {
		return nil, errors.Wrap(err, "sdr jpeg")
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(gainMapJPEG)); err != nil {
		return nil, errors.Wrap(err, "gain map jpeg")
	}
	meta := *e.opts.PairMetadata
	return assemble(sdrJPEG, gainMapJPEG, &meta)
}

// IsUltraHDR reports whether data is a JPEG/R container.
func (e *Encoder) IsUltraHDR(data []byte) bool {
	return IsUltraHDR(data)
}

type encodedGainMap struct {
	jpeg []byte
	meta *GainMapMetadata
}

func (e *Encoder) gainMapJPEG(sdr, hdr *linearImage) (encodedGainMap, error) {
	gm, meta, err := computeGainMap(sdr, hdr, e.opts.GainMapScale, e.opts.GainMapGamma)
	if err != nil {
		return encodedGainMap{}, errors.Wrap(err, "compute gain map")
	}
	data, err := encodeJPEG(gm, e.opts.GainMapQuality)
	if err != nil {
		return encodedGainMap{}, errors.Wrap(err, "encode gain map")
	}
	return encodedGainMap{jpeg: data, meta: meta}, nil
}

func (e *Encoder) encodeLinear(hdr, sdr *linearImage, quality int) ([]byte, error) {
	sdrImg := sdr.sdrImage()
	base, err := encodeJPEG(sdrImg, quality)
	if err != nil {
		return nil, errors.Wrap(err, "encode base image")
	}
	// Gains are computed against the quantized base so that a reader
	// reconstructs HDR from what it actually decodes.
	gainMap, err := e.gainMapJPEG(linearFromImage(sdrImg, colorGamutSRGB), hdr)
	if err != nil {
		return nil, err
	}
	return assemble(base, gainMap.jpeg, gainMap.meta)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sameSize(w1, h1, w2, h2 int) error {
	if w1 != w2 || h1 != h2 {
		return errors.Errorf("dimension mismatch: %dx%d vs %dx%d", w1, h1, w2, h2)
	}
	return nil
}
