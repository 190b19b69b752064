// Package jpegr is a pure-Go UltraHDR (JPEG/R) encoder.
//
// It turns raw HDR/SDR pixel buffers or already compressed JPEGs into a JPEG/R
// container: an SDR base JPEG with a gain map JPEG attached through MPF, with
// gain map metadata carried both as Adobe hdrgm XMP and ISO 21496-1 binary.
// JPEG compression itself is delegated to image/jpeg.
package jpegr
