// Package uhdrgen generates UltraHDR (JPEG/R) still images.
//
// An HDR image, optionally with a matching SDR rendition, or an already
// compressed SDR and gain map pair is normalized into raw pixel buffers and
// handed to an Encoder that produces a single JPEG carrying an SDR base image,
// a gain map and gain map metadata.
package uhdrgen
