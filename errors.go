package uhdrgen

import (
	"context"

	"github.com/pkg/errors"
)

// Sentinel errors, match with errors.Is.
var (
	ErrImageLoad               = errors.New("image load failed")
	ErrUnsupportedDynamicRange = errors.New("asset does not support dynamic range")
	// ErrPixelFormatUnresolved is reserved, ResolvePixelFormat never fails.
	ErrPixelFormatUnresolved = errors.New("pixel format unresolved")
	ErrDataExtraction        = errors.New("pixel data extraction failed")
	ErrEncoding              = errors.New("encoding failed")
	ErrSave                  = errors.New("save failed")
	ErrDimensionMismatch     = errors.New("image dimensions mismatch")
)

// EncodingError describes an encoder failure or an encode precondition violation.
type EncodingError struct {
	Message string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Message == "" {
		return ErrEncoding.Error()
	}
	return ErrEncoding.Error() + ": " + e.Message
}

// Is makes every EncodingError match ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Kind classifies errors for display.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindImageLoad
	KindUnsupportedDynamicRange
	KindPixelFormatUnresolved
	KindDataExtraction
	KindEncoding
	KindSave
	KindCanceled
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindImageLoad:
		return "image load"
	case KindUnsupportedDynamicRange:
		return "unsupported dynamic range"
	case KindPixelFormatUnresolved:
		return "pixel format unresolved"
	case KindDataExtraction:
		return "data extraction"
	case KindEncoding:
		return "encoding"
	case KindSave:
		return "save"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of err without inspecting its text.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrImageLoad):
		return KindImageLoad
	case errors.Is(err, ErrUnsupportedDynamicRange):
		return KindUnsupportedDynamicRange
	case errors.Is(err, ErrPixelFormatUnresolved):
		return KindPixelFormatUnresolved
	case errors.Is(err, ErrDataExtraction):
		return KindDataExtraction
	case errors.Is(err, ErrEncoding), errors.Is(err, ErrDimensionMismatch):
		return KindEncoding
	case errors.Is(err, ErrSave):
		return KindSave
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
