package config

import (
	"errors"
	"fmt"
)

var supportedOutputFormats = map[string]struct{}{
	"mp3": {},
	"m4a": {},
	"ogg": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.DataDir == c.Paths.LibraryDir {
		return errors.New("paths.data_dir and paths.library_dir must differ")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.QuotaBytes < 0 {
		return errors.New("storage.quota_bytes must not be negative")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if _, ok := supportedOutputFormats[c.Audio.OutputFormat]; !ok {
		return fmt.Errorf("audio.output_format: unsupported format %q", c.Audio.OutputFormat)
	}
	if c.Audio.BitrateKbps <= 0 {
		return errors.New("audio.bitrate_kbps must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return errors.New("audio.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
