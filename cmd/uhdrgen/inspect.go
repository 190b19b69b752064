package main

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vearutop/uhdrgen/internal/jpegr"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "detect <file>...",
		Short:       "Report which files are UltraHDR JPEGs",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				ok, err := detectFile(path)
				if err != nil {
					return err
				}
				rows = append(rows, []string{path, yesNo(ok)})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "UltraHDR"}, rows, nil))
			return nil
		},
	}
}

func detectFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrap(err, "open")
	}
	defer f.Close()

	ok, err := jpegr.DetectUltraHDR(f)
	if err != nil {
		return false, errors.Wrapf(err, "detect %s", path)
	}
	return ok, nil
}

func newInspectCommand() *cobra.Command {
	var primaryOut, gainMapOut string

	cmd := &cobra.Command{
		Use:         "inspect <file>",
		Short:       "Show the parts and gain map metadata of an UltraHDR JPEG",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read")
			}
			if !jpegr.IsUltraHDR(data) {
				return errors.Errorf("%s is not an UltraHDR JPEG", args[0])
			}

			res, err := jpegr.Split(data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Part", "Bytes", "Width", "Height"},
				[][]string{partRow("primary", res.Primary), partRow("gain map", res.GainMap)},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			if res.Metadata != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Field", "Value"}, metadataRows(res.Metadata), nil))
			}

			if primaryOut != "" {
				if err := os.WriteFile(primaryOut, res.Primary, 0o644); err != nil {
					return errors.Wrap(err, "write primary")
				}
			}
			if gainMapOut != "" {
				if err := os.WriteFile(gainMapOut, res.GainMap, 0o644); err != nil {
					return errors.Wrap(err, "write gain map")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&primaryOut, "primary-out", "", "Write the primary JPEG to this path")
	cmd.Flags().StringVar(&gainMapOut, "gainmap-out", "", "Write the gain map JPEG to this path")
	return cmd
}

func partRow(name string, data []byte) []string {
	row := []string{name, strconv.Itoa(len(data)), "?", "?"}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		row[2], row[3] = strconv.Itoa(cfg.Width), strconv.Itoa(cfg.Height)
	}
	return row
}

func metadataRows(m *jpegr.GainMapMetadata) [][]string {
	return [][]string{
		{"version", m.Version},
		{"min content boost", floats(m.MinContentBoost)},
		{"max content boost", floats(m.MaxContentBoost)},
		{"gamma", floats(m.Gamma)},
		{"offset sdr", floats(m.OffsetSDR)},
		{"offset hdr", floats(m.OffsetHDR)},
		{"hdr capacity min", strconv.FormatFloat(float64(m.HDRCapacityMin), 'g', 5, 32)},
		{"hdr capacity max", strconv.FormatFloat(float64(m.HDRCapacityMax), 'g', 5, 32)},
		{"use base color gamut", yesNo(m.UseBaseCG)},
	}
}

func floats(v [3]float32) string {
	if v[0] == v[1] && v[1] == v[2] {
		return strconv.FormatFloat(float64(v[0]), 'g', 5, 32)
	}
	return fmt.Sprintf("%.5g, %.5g, %.5g", v[0], v[1], v[2])
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
