package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vearutop/uhdrgen"
	"github.com/vearutop/uhdrgen/internal/config"
	"github.com/vearutop/uhdrgen/internal/logging"
)

type commandContext struct {
	configFlag *string

	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "uhdrgen",
		Short:         "Generate UltraHDR JPEG images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newPairCommand(ctx))
	rootCmd.AddCommand(newDeriveCommand(ctx))
	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func (c *commandContext) ensureConfig() error {
	if c.cfg != nil {
		return nil
	}

	cfg, path, exists, err := config.Load(*c.configFlag)
	if err != nil {
		return err
	}

	log, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	if exists {
		log.Debug("config loaded", "path", path)
	}

	c.cfg = cfg
	c.log = log
	return nil
}

func (c *commandContext) toneCurve() uhdrgen.ToneCurve {
	var curve uhdrgen.ToneCurve
	for i, p := range c.cfg.Derive.ToneCurve {
		curve[i] = uhdrgen.CurvePoint{X: p[0], Y: p[1]}
	}
	return curve
}

func (c *commandContext) gainMapOptions() uhdrgen.GainMapOptions {
	d := c.cfg.Derive
	return uhdrgen.GainMapOptions{MinBoost: d.MinBoost, MaxBoost: d.MaxBoost, Gamma: d.Gamma, Offset: d.Offset}
}

func (c *commandContext) encoder() uhdrgen.Encoder {
	gm := c.gainMapOptions()

	return uhdrgen.NewEncoder(func(o *uhdrgen.EncoderOptions) {
		o.GainMapQuality = c.cfg.GainMap.Quality
		o.GainMapScale = c.cfg.GainMap.Scale
		o.GainMapGamma = c.cfg.GainMap.Gamma
		o.PairMetadata = gm.Metadata()
	})
}

func (c *commandContext) generator(useCompressedSDR bool) *uhdrgen.Generator {
	return uhdrgen.NewGenerator(c.encoder(), func(o *uhdrgen.GeneratorOptions) {
		o.Quality = c.cfg.Encoding.Quality
		o.ToneCurve = c.toneCurve()
		o.UseCompressedSDR = useCompressedSDR || c.cfg.Encoding.UseCompressedSDR
		o.Logger = c.log
	})
}

func (c *commandContext) outDir(flag string) string {
	if flag != "" {
		return flag
	}
	return c.cfg.Output.Dir
}
