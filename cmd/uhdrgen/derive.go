package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vearutop/uhdrgen"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var (
		sdrOut     string
		gainMapOut string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "derive <hdr-image>",
		Short: "Derive an SDR JPEG and a gain map JPEG from an HDR image",
		Long: "Derive an SDR rendition with the configured tone curve and a single-channel gain map\n" +
			"from the HDR to SDR luminance ratio. With --out the pair is also combined into an UltraHDR JPEG.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hdr, err := uhdrgen.LoadImageFile(args[0])
			if err != nil {
				return err
			}
			if !uhdrgen.IsHDR(hdr) {
				return errors.Wrapf(uhdrgen.ErrUnsupportedDynamicRange, "%s is not an HDR image", args[0])
			}

			sdr, err := uhdrgen.DeriveSDR(hdr, ctx.toneCurve())
			if err != nil {
				return err
			}
			gm, err := uhdrgen.DeriveGainMap(hdr, sdr, ctx.gainMapOptions())
			if err != nil {
				return err
			}

			sdrJPEG, err := uhdrgen.EncodeJPEG(sdr, ctx.cfg.Encoding.Quality)
			if err != nil {
				return err
			}
			gmJPEG, err := uhdrgen.EncodeJPEG(gm, ctx.cfg.GainMap.Quality)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range []struct {
				path string
				data []byte
			}{{sdrOut, sdrJPEG}, {gainMapOut, gmJPEG}} {
				if f.path == "" {
					continue
				}
				if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
					return errors.Wrapf(uhdrgen.ErrSave, "write %s: %v", f.path, err)
				}
				fmt.Fprintln(out, f.path)
			}

			if outDir == "" {
				return nil
			}
			path, err := ctx.generator(true).FromCompressedPair(cmd.Context(), sdrJPEG, gmJPEG, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&sdrOut, "sdr-out", "", "Write the SDR JPEG to this path")
	cmd.Flags().StringVar(&gainMapOut, "gainmap-out", "", "Write the gain map JPEG to this path")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Also save an UltraHDR JPEG into this directory")
	return cmd
}
