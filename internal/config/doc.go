// Package config loads uhdrgen settings from TOML.
//
// Values absent from the file keep the defaults returned by Default, so a
// partial file only needs the settings it changes. Use CreateSample to write a
// commented starting point.
package config
