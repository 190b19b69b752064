package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vearutop/uhdrgen"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		sdrPath       string
		outDir        string
		hdrOnly       bool
		compressedSDR bool
	)

	cmd := &cobra.Command{
		Use:   "generate <hdr-image>",
		Short: "Encode an HDR image into an UltraHDR JPEG",
		Long: "Encode an HDR image (OpenEXR, Radiance or 16-bit raster) into an UltraHDR JPEG.\n" +
			"Without --sdr the SDR base image is derived from the HDR image with the configured tone curve.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := ctx.generator(compressedSDR)
			dir := ctx.outDir(outDir)

			var (
				path string
				err  error
			)
			switch {
			case sdrPath != "":
				path, err = gen.FromFiles(cmd.Context(), args[0], sdrPath, dir)
			case hdrOnly:
				path, err = gen.FromFiles(cmd.Context(), args[0], "", dir)
			default:
				path, err = gen.FromAsset(cmd.Context(), uhdrgen.FileAsset{Path: args[0]}, dir)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&sdrPath, "sdr", "", "SDR rendition of the same scene")
	cmd.Flags().BoolVar(&hdrOnly, "hdr-only", false, "Let the encoder tone map the SDR base image")
	cmd.Flags().BoolVar(&compressedSDR, "compressed-sdr", false, "Use a JPEG --sdr file as the base image without re-encoding")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	cmd.MarkFlagsMutuallyExclusive("sdr", "hdr-only")
	return cmd
}

func newPairCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "pair <sdr.jpg> <gainmap.jpg>",
		Short: "Combine an SDR JPEG and a gain map JPEG into an UltraHDR JPEG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sdr, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read sdr")
			}
			gm, err := os.ReadFile(args[1])
			if err != nil {
				return errors.Wrap(err, "read gain map")
			}

			path, err := ctx.generator(true).FromCompressedPair(cmd.Context(), sdr, gm, ctx.outDir(outDir))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	return cmd
}
