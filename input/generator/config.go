package generator

import (
	"github.com/c360/mediaflow/config"
	"github.com/c360/mediaflow/errors"
)

// Config holds configuration for the generator source
type Config struct {
	Count        int     `json:"count" yaml:"count"`                 // Frames to emit, 0 = unbounded
	FPS          float64 `json:"fps" yaml:"fps"`                     // Frame rate, 0 = as fast as possible
	FrameSize    int     `json:"frame_size" yaml:"frame_size"`       // Payload bytes per frame
	KeyInterval  int     `json:"key_interval" yaml:"key_interval"`   // Every Nth frame is a key frame, 0 = none
	MIME         string  `json:"mime" yaml:"mime"`                   // Media type announced on every record
	ConfigRecord bool    `json:"config_record" yaml:"config_record"` // Emit a leading codec-config record
}

// DefaultConfig returns a 30 fps, 100 frame raw video stream
func DefaultConfig() Config {
	return Config{
		Count:       100,
		FPS:         30,
		FrameSize:   4096,
		KeyInterval: 30,
		MIME:        "video/x-raw",
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	switch {
	case c.Count < 0:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "generator", "Validate", "count cannot be negative")
	case c.FPS < 0:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "generator", "Validate", "fps cannot be negative")
	case c.FrameSize <= 0:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "generator", "Validate", "frame_size must be positive")
	case c.KeyInterval < 0:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "generator", "Validate", "key_interval cannot be negative")
	case c.MIME == "":
		return errors.WrapInvalid(errors.ErrMissingConfig, "generator", "Validate", "mime is required")
	}
	return nil
}

// ConfigFromSettings reads a node settings map over the defaults
func ConfigFromSettings(settings map[string]any) (Config, error) {
	d := DefaultConfig()
	c := Config{
		Count:        config.GetInt(settings, "count", d.Count),
		FPS:          config.GetFloat64(settings, "fps", d.FPS),
		FrameSize:    config.GetInt(settings, "frame_size", d.FrameSize),
		KeyInterval:  config.GetInt(settings, "key_interval", d.KeyInterval),
		MIME:         config.GetString(settings, "mime", d.MIME),
		ConfigRecord: config.GetBool(settings, "config_record", d.ConfigRecord),
	}
	return c, c.Validate()
}
