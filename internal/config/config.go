package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/rendition"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and lock directories.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LockDir   string `toml:"lock_dir"`
}

// Storage selects and configures the manifest store.
type Storage struct {
	Backend       string `toml:"backend"`
	SQLitePath    string `toml:"sqlite_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// Encoding contains ladder conversion settings. JobTimeout and LockWait are
// seconds; zero disables them.
type Encoding struct {
	BaseURITemplate     string `toml:"base_uri_template"`
	CopyThresholdHeight int    `toml:"copy_threshold_height"`
	MaxParallel         int    `toml:"max_parallel"`
	HWAccel             string `toml:"hw_accel"`
	SegmentDuration     int    `toml:"segment_duration"`
	AudioBitrate        string `toml:"audio_bitrate"`
	JobTimeout          int    `toml:"job_timeout"`
	LockWait            int    `toml:"lock_wait"`
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
}

// Rendition is one configured ladder rung. Bitrate accepts "800000",
// "1200k" or "5M".
type Rendition struct {
	Name      string `toml:"name"`
	FrameSize string `toml:"frame_size"`
	Bitrate   string `toml:"bitrate"`
}

// Tracks controls extraction of embedded audio and subtitle streams after
// a conversion.
type Tracks struct {
	ExtractAudio     bool `toml:"extract_audio"`
	ExtractSubtitles bool `toml:"extract_subtitles"`
}

// Server contains the HTTP bind address and the path manifests are served under.
type Server struct {
	Bind     string `toml:"bind"`
	BasePath string `toml:"base_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for hlsladder.
type Config struct {
	Paths      Paths       `toml:"paths"`
	Storage    Storage     `toml:"storage"`
	Encoding   Encoding    `toml:"encoding"`
	Renditions []Rendition `toml:"renditions"`
	Tracks     Tracks      `toml:"tracks"`
	Server     Server      `toml:"server"`
	Logging    Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hlsladder/config.toml")
}

// Load parses and validates a configuration file. A missing file yields the
// defaults. The second return value is the resolved path and the third
// reports whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	cfg.Renditions = nil

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(cfg.Renditions) == 0 {
		cfg.Renditions = defaultRenditions()
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// EnsureDirectories creates the output and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LadderRenditions converts the configured renditions. Validate has already
// rejected unparsable bitrates.
func (c *Config) LadderRenditions() []domain.Rendition {
	out := make([]domain.Rendition, 0, len(c.Renditions))
	for _, r := range c.Renditions {
		bitrate, _ := rendition.ParseBitrate(r.Bitrate)
		out = append(out, domain.Rendition{
			Name:          r.Name,
			FrameSize:     r.FrameSize,
			TargetBitrate: bitrate,
		})
	}
	return out
}

// AudioBitrateBPS returns the audio bitrate in bits per second.
func (c *Config) AudioBitrateBPS() int {
	v, _ := rendition.ParseBitrate(c.Encoding.AudioBitrate)
	return v
}

func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Encoding.JobTimeout) * time.Second
}

func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Encoding.LockWait) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
