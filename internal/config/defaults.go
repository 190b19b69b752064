package config

const (
	defaultConfigPath = "~/.config/uhdrgen/config.toml"
	projectConfigName = "uhdrgen.toml"

	defaultQuality        = 95
	defaultGainMapQuality = 85
	defaultGainMapScale   = 4
	defaultGainMapGamma   = 1.0
	defaultMinBoost       = 1.0
	defaultMaxBoost       = 4.0
	defaultDeriveGamma    = 0.5
	defaultDeriveOffset   = 1.0 / 64
	defaultOutputDir      = "."
	defaultLogFormat      = ""
	defaultLogLevel       = "info"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Encoding: Encoding{
			Quality: defaultQuality,
		},
		GainMap: GainMap{
			Quality: defaultGainMapQuality,
			Scale:   defaultGainMapScale,
			Gamma:   defaultGainMapGamma,
		},
		Derive: Derive{
			ToneCurve: [][2]float32{{0, 0}, {0.25, 0.25}, {0.5, 0.5}, {0.75, 0.75}, {1, 1}},
			MinBoost:  defaultMinBoost,
			MaxBoost:  defaultMaxBoost,
			Gamma:     defaultDeriveGamma,
			Offset:    defaultDeriveOffset,
		},
		Output: Output{
			Dir: defaultOutputDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
