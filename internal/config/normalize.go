package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeRenditions()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(strings.TrimSpace(c.Paths.LockDir)); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = "fs"
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = defaultSQLitePath
	}
	var err error
	if c.Storage.SQLitePath, err = expandPath(strings.TrimSpace(c.Storage.SQLitePath)); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	c.Storage.RedisAddr = strings.TrimSpace(c.Storage.RedisAddr)
	if c.Storage.RedisAddr == "" {
		if value, ok := os.LookupEnv("HLSLADDER_REDIS_ADDR"); ok {
			c.Storage.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Storage.RedisPassword == "" {
		if value, ok := os.LookupEnv("HLSLADDER_REDIS_PASSWORD"); ok {
			c.Storage.RedisPassword = value
		}
	}
	c.Storage.RedisPrefix = strings.TrimSpace(c.Storage.RedisPrefix)
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = defaultRedisPrefix
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.BaseURITemplate = strings.TrimSpace(c.Encoding.BaseURITemplate)
	if c.Encoding.BaseURITemplate == "" {
		c.Encoding.BaseURITemplate = defaultBaseURITemplate
	}
	c.Encoding.HWAccel = strings.ToLower(strings.TrimSpace(c.Encoding.HWAccel))
	if c.Encoding.HWAccel == "" {
		c.Encoding.HWAccel = defaultHWAccel
	}
	if c.Encoding.SegmentDuration == 0 {
		c.Encoding.SegmentDuration = defaultSegmentDuration
	}
	c.Encoding.AudioBitrate = strings.TrimSpace(c.Encoding.AudioBitrate)
	if c.Encoding.AudioBitrate == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	if c.Encoding.FFmpegBinary == "" {
		c.Encoding.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoding.FFprobeBinary = strings.TrimSpace(c.Encoding.FFprobeBinary)
	if c.Encoding.FFprobeBinary == "" {
		c.Encoding.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeRenditions() {
	for i := range c.Renditions {
		r := &c.Renditions[i]
		r.Name = strings.TrimSpace(r.Name)
		r.FrameSize = strings.ToLower(strings.TrimSpace(r.FrameSize))
		r.Bitrate = strings.TrimSpace(r.Bitrate)
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	base := strings.Trim(strings.TrimSpace(c.Server.BasePath), "/")
	if base == "" {
		c.Server.BasePath = ""
		return
	}
	c.Server.BasePath = "/" + base
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
