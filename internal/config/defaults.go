package config

const (
	defaultOutputDir         = "~/.local/share/hlsladder/output"
	defaultLockDir           = "~/.local/share/hlsladder/locks"
	defaultSQLitePath        = "~/.local/share/hlsladder/manifests.db"
	defaultRedisPrefix       = "hlsladder"
	defaultBaseURITemplate   = "http://localhost:8080/output/{videoId}"
	defaultCopyThreshold     = 1080
	defaultHWAccel           = "auto"
	defaultSegmentDuration   = 6
	defaultAudioBitrate      = "128k"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultBind              = "127.0.0.1:8080"
	defaultBasePath          = "/output"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultLockWaitSeconds   = 0
	defaultJobTimeoutSeconds = 0
)

// Default returns a configuration populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LockDir:   defaultLockDir,
		},
		Storage: Storage{
			Backend:     "fs",
			SQLitePath:  defaultSQLitePath,
			RedisPrefix: defaultRedisPrefix,
		},
		Encoding: Encoding{
			BaseURITemplate:     defaultBaseURITemplate,
			CopyThresholdHeight: defaultCopyThreshold,
			HWAccel:             defaultHWAccel,
			SegmentDuration:     defaultSegmentDuration,
			AudioBitrate:        defaultAudioBitrate,
			JobTimeout:          defaultJobTimeoutSeconds,
			LockWait:            defaultLockWaitSeconds,
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
		},
		Renditions: defaultRenditions(),
		Tracks: Tracks{
			ExtractAudio:     true,
			ExtractSubtitles: true,
		},
		Server: Server{
			Bind:     defaultBind,
			BasePath: defaultBasePath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

func defaultRenditions() []Rendition {
	return []Rendition{
		{Name: "1080p", FrameSize: "1920x1080", Bitrate: "5M"},
		{Name: "720p", FrameSize: "1280x720", Bitrate: "2800k"},
		{Name: "480p", FrameSize: "854x480", Bitrate: "1400k"},
		{Name: "360p", FrameSize: "640x360", Bitrate: "800k"},
	}
}
