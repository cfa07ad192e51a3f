package config

import (
	"errors"
	"fmt"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/rendition"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateRenditions(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "fs", "sqlite":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("storage.redis_db must be non-negative")
		}
	default:
		return fmt.Errorf("storage.backend %q must be fs, sqlite or redis", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if err := playlist.URITemplate(c.Encoding.BaseURITemplate).Validate(); err != nil {
		return fmt.Errorf("encoding.base_uri_template: %w", err)
	}
	if c.Encoding.CopyThresholdHeight < 0 {
		return errors.New("encoding.copy_threshold_height must be non-negative")
	}
	if c.Encoding.MaxParallel < 0 {
		return errors.New("encoding.max_parallel must be non-negative (0 means unlimited)")
	}
	if c.Encoding.SegmentDuration < 1 {
		return errors.New("encoding.segment_duration must be at least 1 second")
	}
	if c.Encoding.JobTimeout < 0 {
		return errors.New("encoding.job_timeout must be non-negative")
	}
	if c.Encoding.LockWait < 0 {
		return errors.New("encoding.lock_wait must be non-negative")
	}
	if _, err := rendition.ParseBitrate(c.Encoding.AudioBitrate); err != nil {
		return fmt.Errorf("encoding.audio_bitrate: %w", err)
	}
	switch domain.Accelerator(c.Encoding.HWAccel) {
	case domain.AccelNone, domain.AccelCUDA, domain.AccelVideoToolbox, domain.AccelVAAPI, domain.AccelQSV:
	default:
		if c.Encoding.HWAccel != "auto" {
			return fmt.Errorf("encoding.hw_accel %q is not supported", c.Encoding.HWAccel)
		}
	}
	return nil
}

func (c *Config) validateRenditions() error {
	names := make(map[string]bool, len(c.Renditions))
	for i, r := range c.Renditions {
		if r.Name == "" {
			return fmt.Errorf("renditions[%d].name must be set", i)
		}
		if names[r.Name] {
			return fmt.Errorf("renditions[%d].name %q is duplicated", i, r.Name)
		}
		names[r.Name] = true
		if _, _, err := domain.ParseFrameSize(r.FrameSize); err != nil {
			return fmt.Errorf("renditions[%d].frame_size: %w", i, err)
		}
		if _, err := rendition.ParseBitrate(r.Bitrate); err != nil {
			return fmt.Errorf("renditions[%d].bitrate: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be auto, console or json", c.Logging.Format)
	}
	return nil
}
