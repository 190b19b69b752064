package uhdrgen

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// GeneratorOptions configures Generator.
type GeneratorOptions struct {
	// Quality is the base image JPEG quality.
	Quality int
	// ToneCurve shapes SDR companions derived from HDR assets.
	ToneCurve ToneCurve
	// UseCompressedSDR passes SDR JPEG files to the encoder as is instead of
	// decoding them.
	UseCompressedSDR bool
	// Saver persists containers.
	Saver Saver
	// Logger receives request logs, discarded by default.
	Logger *slog.Logger
}

// Generator runs acquisition, encoding and persistence for a request.
type Generator struct {
	enc  Encoder
	opts GeneratorOptions
}

// Result is the outcome of a request run with Generator.Go.
type Result struct {
	Path string
	Err  error
}

// NewGenerator creates a generator using enc.
func NewGenerator(enc Encoder, opts ...func(o *GeneratorOptions)) *Generator {
	o := GeneratorOptions{
		Quality:   95,
		ToneCurve: DefaultToneCurve(),
	}
	for _, f := range opts {
		f(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{enc: enc, opts: o}
}

// FromAsset encodes an HDR asset, with its derived SDR companion when available,
// and saves the container into outDir.
func (g *Generator) FromAsset(ctx context.Context, asset Asset, outDir string) (string, error) {
	log, orch := g.request(ctx, "asset")

	hdr, sdr, err := Acquire(ctx, asset, g.opts.ToneCurve)
	if err != nil {
		log.WarnContext(ctx, "acquisition failed", "error", err)
		return "", err
	}

	var req EncodeRequest = HDROnly{HDR: hdr, Quality: g.opts.Quality}
	if sdr != nil {
		req = HDRWithSDR{HDR: hdr, SDR: sdr, Quality: g.opts.Quality}
	} else {
		log.InfoContext(ctx, "sdr companion unavailable, encoding hdr only")
	}
	return g.encodeAndSave(ctx, log, orch, req, outDir)
}

// FromFiles encodes an HDR image file with an optional SDR image file
// (empty sdrPath for none) and saves the container into outDir.
func (g *Generator) FromFiles(ctx context.Context, hdrPath, sdrPath, outDir string) (string, error) {
	log, orch := g.request(ctx, "files")

	hdr, err := LoadImageFile(hdrPath)
	if err != nil {
		return "", err
	}
	if !IsHDR(hdr) {
		return "", errors.Wrapf(ErrUnsupportedDynamicRange, "%s is not an HDR image", hdrPath)
	}
	log.DebugContext(ctx, "loaded hdr", "path", hdrPath,
		"width", hdr.Width(), "height", hdr.Height(), "color_space", hdr.ColorSpace().String())

	var req EncodeRequest = HDROnly{HDR: hdr, Quality: g.opts.Quality}
	if sdrPath != "" {
		data, err := os.ReadFile(sdrPath)
		if err != nil {
			return "", errors.Wrapf(ErrImageLoad, "read %s: %v", sdrPath, err)
		}
		if g.opts.UseCompressedSDR && isJPEG(data) {
			req = HDRWithCompressedSDR{HDR: hdr, SDRJPEG: data}
		} else {
			sdr, err := LoadImage(data)
			if err != nil {
				return "", errors.WithMessage(err, sdrPath)
			}
			req = HDRWithSDR{HDR: hdr, SDR: sdr, Quality: g.opts.Quality}
		}
	}
	return g.encodeAndSave(ctx, log, orch, req, outDir)
}

// FromCompressedPair wraps an SDR JPEG and a gain map JPEG and saves the
// container into outDir.
func (g *Generator) FromCompressedPair(ctx context.Context, sdrJPEG, gainMapJPEG []byte, outDir string) (string, error) {
	log, orch := g.request(ctx, "compressed pair")

	return g.encodeAndSave(ctx, log, orch, CompressedSDRWithGainMap{SDRJPEG: sdrJPEG, GainMapJPEG: gainMapJPEG}, outDir)
}

// Go runs fn on a new goroutine and delivers its single result on the returned channel.
func (g *Generator) Go(ctx context.Context, fn func(ctx context.Context) (string, error)) <-chan Result {
	res := make(chan Result, 1)
	go func() {
		defer close(res)

		path, err := fn(ctx)
		res <- Result{Path: path, Err: err}
	}()
	return res
}

func (g *Generator) request(ctx context.Context, source string) (*slog.Logger, *Orchestrator) {
	log := g.opts.Logger.With("request_id", uuid.NewString(), "source", source)
	log.DebugContext(ctx, "request started")

	return log, NewOrchestrator(g.enc, func(o *OrchestratorOptions) {
		o.Logger = log
	})
}

func (g *Generator) encodeAndSave(ctx context.Context, log *slog.Logger, orch *Orchestrator, req EncodeRequest, outDir string) (string, error) {
	data, err := orch.Encode(ctx, req)
	if err != nil {
		log.WarnContext(ctx, "encoding failed", "kind", KindOf(err).String(), "error", err)
		return "", err
	}

	path, err := g.opts.Saver.Save(data, outDir)
	if err != nil {
		log.WarnContext(ctx, "save failed", "error", err)
		return "", err
	}
	log.InfoContext(ctx, "container saved", "path", path, "bytes", len(data))
	return path, nil
}

func isJPEG(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
}
