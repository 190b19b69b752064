package jpegr

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/transfer"
)

const (
	isoFlagMultiChannel  = 1 << 7
	isoFlagUseBaseColor  = 1 << 6
	isoFlagCommonDenom   = 1 << 3
	isoFlagBackwardDirec = 1 << 2
)

// isoFractions is the rational form of gain map metadata used by ISO 21496-1.
// Gain and headroom values are log2 encoded.
type isoFractions struct {
	minN, maxN, baseOffN, altOffN [3]int32
	minD, maxD, baseOffD, altOffD [3]uint32
	gammaN, gammaD                [3]uint32
	baseHeadroomN, baseHeadroomD  uint32
	altHeadroomN, altHeadroomD    uint32
	backward, useBaseColorSpace   bool
}

// isoPayload returns the full APP2 payload: namespace, NUL and encoded metadata.
func isoPayload(meta *GainMapMetadata) ([]byte, error) {
	body, err := encodeISO(meta)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(isoPrefix)+len(body))
	out = append(out, isoPrefix...)
	return append(out, body...), nil
}

// isoVersionPayload is the version-only ISO block carried by the primary image.
func isoVersionPayload() []byte {
	out := make([]byte, 0, len(isoPrefix)+4)
	out = append(out, isoPrefix...)
	return append(out, 0, 0, 0, 0)
}

func encodeISO(meta *GainMapMetadata) ([]byte, error) {
	if meta == nil {
		return nil, errors.New("gain map metadata missing")
	}
	var f isoFractions
	if err := f.fromFloat(meta); err != nil {
		return nil, err
	}
	return f.marshal(), nil
}

func decodeISO(data []byte) (*GainMapMetadata, error) {
	var f isoFractions
	if err := f.unmarshal(data); err != nil {
		return nil, err
	}
	return f.toFloat(), nil
}

func (f *isoFractions) channels() int {
	for c := 1; c < 3; c++ {
		if f.minN[c] != f.minN[0] || f.minD[c] != f.minD[0] ||
			f.maxN[c] != f.maxN[0] || f.maxD[c] != f.maxD[0] ||
			f.gammaN[c] != f.gammaN[0] || f.gammaD[c] != f.gammaD[0] ||
			f.baseOffN[c] != f.baseOffN[0] || f.baseOffD[c] != f.baseOffD[0] ||
			f.altOffN[c] != f.altOffN[0] || f.altOffD[c] != f.altOffD[0] {
			return 3
		}
	}
	return 1
}

func (f *isoFractions) commonDenominator(channels int) (uint32, bool) {
	d := f.baseHeadroomD
	if f.altHeadroomD != d {
		return 0, false
	}
	for c := 0; c < channels; c++ {
		if f.minD[c] != d || f.maxD[c] != d || f.gammaD[c] != d || f.baseOffD[c] != d || f.altOffD[c] != d {
			return 0, false
		}
	}
	return d, true
}

func (f *isoFractions) marshal() []byte {
	channels := f.channels()
	var flags uint8
	if channels == 3 {
		flags |= isoFlagMultiChannel
	}
	if f.useBaseColorSpace {
		flags |= isoFlagUseBaseColor
	}
	if f.backward {
		flags |= isoFlagBackwardDirec
	}
	denom, common := f.commonDenominator(channels)
	if common {
		flags |= isoFlagCommonDenom
	}

	w := isoWriter{buf: make([]byte, 0, 128)}
	w.u16(0) // minimum version
	w.u16(0) // writer version
	w.u8(flags)

	if common {
		w.u32(denom)
		w.u32(f.baseHeadroomN)
		w.u32(f.altHeadroomN)
		for c := 0; c < channels; c++ {
			w.s32(f.minN[c])
			w.s32(f.maxN[c])
			w.u32(f.gammaN[c])
			w.s32(f.baseOffN[c])
			w.s32(f.altOffN[c])
		}
		return w.buf
	}

	w.u32(f.baseHeadroomN)
	w.u32(f.baseHeadroomD)
	w.u32(f.altHeadroomN)
	w.u32(f.altHeadroomD)
	for c := 0; c < channels; c++ {
		w.s32(f.minN[c])
		w.u32(f.minD[c])
		w.s32(f.maxN[c])
		w.u32(f.maxD[c])
		w.u32(f.gammaN[c])
		w.u32(f.gammaD[c])
		w.s32(f.baseOffN[c])
		w.u32(f.baseOffD[c])
		w.s32(f.altOffN[c])
		w.u32(f.altOffD[c])
	}
	return w.buf
}

func (f *isoFractions) unmarshal(data []byte) error {
	r := isoReader{buf: data}
	if minVersion := r.u16(); r.err == nil && minVersion != 0 {
		return errors.Errorf("unsupported iso min_version %d", minVersion)
	}
	r.u16() // writer version
	flags := r.u8()
	if r.err != nil {
		return r.err
	}
	channels := 1
	if flags&isoFlagMultiChannel != 0 {
		channels = 3
	}
	f.useBaseColorSpace = flags&isoFlagUseBaseColor != 0
	f.backward = flags&isoFlagBackwardDirec != 0

	if flags&isoFlagCommonDenom != 0 {
		d := r.u32()
		f.baseHeadroomD, f.altHeadroomD = d, d
		f.baseHeadroomN = r.u32()
		f.altHeadroomN = r.u32()
		for c := 0; c < channels; c++ {
			f.minN[c], f.minD[c] = r.s32(), d
			f.maxN[c], f.maxD[c] = r.s32(), d
			f.gammaN[c], f.gammaD[c] = r.u32(), d
			f.baseOffN[c], f.baseOffD[c] = r.s32(), d
			f.altOffN[c], f.altOffD[c] = r.s32(), d
		}
	} else {
		f.baseHeadroomN, f.baseHeadroomD = r.u32(), r.u32()
		f.altHeadroomN, f.altHeadroomD = r.u32(), r.u32()
		for c := 0; c < channels; c++ {
			f.minN[c], f.minD[c] = r.s32(), r.u32()
			f.maxN[c], f.maxD[c] = r.s32(), r.u32()
			f.gammaN[c], f.gammaD[c] = r.u32(), r.u32()
			f.baseOffN[c], f.baseOffD[c] = r.s32(), r.u32()
			f.altOffN[c], f.altOffD[c] = r.s32(), r.u32()
		}
	}
	if r.err != nil {
		return r.err
	}
	for c := channels; c < 3; c++ {
		f.minN[c], f.minD[c] = f.minN[0], f.minD[0]
		f.maxN[c], f.maxD[c] = f.maxN[0], f.maxD[0]
		f.gammaN[c], f.gammaD[c] = f.gammaN[0], f.gammaD[0]
		f.baseOffN[c], f.baseOffD[c] = f.baseOffN[0], f.baseOffD[0]
		f.altOffN[c], f.altOffD[c] = f.altOffN[0], f.altOffD[0]
	}
	if f.baseHeadroomD == 0 || f.altHeadroomD == 0 {
		return errors.New("iso metadata has zero denominator")
	}
	for c := 0; c < 3; c++ {
		if f.minD[c] == 0 || f.maxD[c] == 0 || f.gammaD[c] == 0 || f.baseOffD[c] == 0 || f.altOffD[c] == 0 {
			return errors.New("iso metadata has zero denominator")
		}
	}
	return nil
}

func (f *isoFractions) toFloat() *GainMapMetadata {
	m := &GainMapMetadata{Version: jpegrVersion, UseBaseCG: f.useBaseColorSpace}
	for c := 0; c < 3; c++ {
		m.MinContentBoost[c] = transfer.Exp2(float32(f.minN[c]) / float32(f.minD[c]))
		m.MaxContentBoost[c] = transfer.Exp2(float32(f.maxN[c]) / float32(f.maxD[c]))
		m.Gamma[c] = float32(f.gammaN[c]) / float32(f.gammaD[c])
		m.OffsetSDR[c] = float32(f.baseOffN[c]) / float32(f.baseOffD[c])
		m.OffsetHDR[c] = float32(f.altOffN[c]) / float32(f.altOffD[c])
	}
	m.HDRCapacityMin = transfer.Exp2(float32(f.baseHeadroomN) / float32(f.baseHeadroomD))
	m.HDRCapacityMax = transfer.Exp2(float32(f.altHeadroomN) / float32(f.altHeadroomD))
	return m
}

func (f *isoFractions) fromFloat(m *GainMapMetadata) error {
	f.backward = false
	f.useBaseColorSpace = m.UseBaseCG
	var err error
	for c := 0; c < 3; c++ {
		if f.maxN[c], f.maxD[c], err = signedFraction(transfer.Log2(m.MaxContentBoost[c])); err != nil {
			return errors.Wrap(err, "max content boost")
		}
		if f.minN[c], f.minD[c], err = signedFraction(transfer.Log2(m.MinContentBoost[c])); err != nil {
			return errors.Wrap(err, "min content boost")
		}
		if f.gammaN[c], f.gammaD[c], err = unsignedFraction(m.Gamma[c]); err != nil {
			return errors.Wrap(err, "gamma")
		}
		if f.baseOffN[c], f.baseOffD[c], err = signedFraction(m.OffsetSDR[c]); err != nil {
			return errors.Wrap(err, "sdr offset")
		}
		if f.altOffN[c], f.altOffD[c], err = signedFraction(m.OffsetHDR[c]); err != nil {
			return errors.Wrap(err, "hdr offset")
		}
	}
	if f.baseHeadroomN, f.baseHeadroomD, err = unsignedFraction(transfer.Log2(m.HDRCapacityMin)); err != nil {
		return errors.Wrap(err, "hdr capacity min")
	}
	if f.altHeadroomN, f.altHeadroomD, err = unsignedFraction(transfer.Log2(m.HDRCapacityMax)); err != nil {
		return errors.Wrap(err, "hdr capacity max")
	}
	return nil
}

func signedFraction(v float32) (int32, uint32, error) {
	num, den, ok := continuedFraction(math.Abs(float64(v)), math.MaxInt32)
	if !ok {
		return 0, 0, errors.Errorf("cannot represent %v as a signed fraction", v)
	}
	n := int32(num)
	if v < 0 {
		n = -n
	}
	return n, den, nil
}

func unsignedFraction(v float32) (uint32, uint32, error) {
	num, den, ok := continuedFraction(float64(v), math.MaxUint32)
	if !ok {
		return 0, 0, errors.Errorf("cannot represent %v as an unsigned fraction", v)
	}
	return num, den, nil
}

// continuedFraction approximates v with the best rational whose numerator
// stays within maxNum and denominator within uint32.
func continuedFraction(v float64, maxNum uint32) (uint32, uint32, bool) {
	if math.IsNaN(v) || v < 0 || v > float64(maxNum) {
		return 0, 0, false
	}
	maxDen := float64(math.MaxUint32)
	if v > 1 {
		maxDen = math.Floor(float64(maxNum) / v)
	}

	den, prevDen := uint32(1), uint32(0)
	rem := v - math.Floor(v)
	for iter := 0; iter < 39; iter++ {
		numF := float64(den) * v
		if numF > float64(maxNum) {
			return 0, 0, false
		}
		num := uint32(math.Round(numF))
		if numF == float64(num) || rem == 0 {
			return num, den, true
		}
		rem = 1 / rem
		nextDen := float64(prevDen) + math.Floor(rem)*float64(den)
		if nextDen > maxDen {
			return num, den, true
		}
		prevDen, den = den, uint32(nextDen)
		rem -= math.Floor(rem)
	}
	return uint32(math.Round(float64(den) * v)), den, true
}

type isoWriter struct {
	buf []byte
}

func (w *isoWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *isoWriter) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *isoWriter) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *isoWriter) s32(v int32)  { w.u32(uint32(v)) }

// isoReader reads big-endian fields, remembering the first error.
type isoReader struct {
	buf []byte
	pos int
	err error
}

func (r *isoReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = errors.New("iso metadata truncated")
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *isoReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *isoReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *isoReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *isoReader) s32() int32 { return int32(r.u32()) }
