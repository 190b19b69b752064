package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateDerive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEncoding() error {
	if c.Encoding.Quality < 1 || c.Encoding.Quality > 100 {
		return errors.New("encoding.quality must be between 1 and 100")
	}
	if c.GainMap.Quality < 1 || c.GainMap.Quality > 100 {
		return errors.New("gain_map.quality must be between 1 and 100")
	}
	if c.GainMap.Scale < 1 {
		return errors.New("gain_map.scale must be at least 1")
	}
	if c.GainMap.Gamma <= 0 {
		return errors.New("gain_map.gamma must be positive")
	}
	return nil
}

func (c *Config) validateDerive() error {
	d := c.Derive
	if len(d.ToneCurve) != 5 {
		return errors.Errorf("derive.tone_curve must have 5 points, got %d", len(d.ToneCurve))
	}
	for i, p := range d.ToneCurve {
		if p[0] < 0 || p[0] > 1 || p[1] < 0 || p[1] > 1 {
			return errors.Errorf("derive.tone_curve point %d must be within [0, 1]", i)
		}
		if i > 0 && (p[0] <= d.ToneCurve[i-1][0] || p[1] < d.ToneCurve[i-1][1]) {
			return errors.Errorf("derive.tone_curve point %d must be increasing", i)
		}
	}
	if d.MinBoost <= 0 || d.MaxBoost <= d.MinBoost {
		return errors.New("derive.min_boost must be positive and below derive.max_boost")
	}
	if d.Gamma <= 0 {
		return errors.New("derive.gamma must be positive")
	}
	if d.Offset < 0 {
		return errors.New("derive.offset must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return errors.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
