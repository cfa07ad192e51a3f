package domain

import "context"

// SourceMetadata is produced once per source asset by probing.
type SourceMetadata struct {
	Width     int
	Height    int
	Bitrate   int
	Duration  float64
	Codec     string
	Audios    []AudioStream
	Subtitles []SubtitleStream
}

// AudioStream and SubtitleStream Index is the position among streams of the
// same kind, as used by ffmpeg's 0:a:N and 0:s:N selectors.
type AudioStream struct {
	Index    int
	Codec    string
	Language string
	Title    string
	Channels int
	Bitrate  int
	Default  bool
}

type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
	Title    string
	Forced   bool
	Default  bool
}

type EncodeMode string

const (
	ModeCopy     EncodeMode = "copy"
	ModeReencode EncodeMode = "reencode"
)

// EncodeJob is one unit of work submitted to the orchestrator.
type EncodeJob struct {
	ID         string
	Rendition  Rendition
	SourcePath string
	OutputDir  string
	Mode       EncodeMode
}

// EncodeResult is what the engine reports for a finished job.
type EncodeResult struct {
	VariantPath string
	Bandwidth   int
}

// EncodeOutcome is the settled result of one job. Err is nil on success.
type EncodeOutcome struct {
	JobID       string
	Rendition   Rendition
	Bandwidth   int
	VariantPath string
	Err         error
}

func (o EncodeOutcome) Succeeded() bool {
	return o.Err == nil
}

// Engine is the external transcoding engine boundary.
type Engine interface {
	Probe(ctx context.Context, path string) (SourceMetadata, error)
	Encode(ctx context.Context, job EncodeJob) (EncodeResult, error)
}

// MediaTrack describes an audio or subtitle track attached to a master manifest.
// Resource is the media the generated sub-manifest points at when
// SubManifestURI is empty.
type MediaTrack struct {
	ID             string
	Language       string
	Label          string
	IsDefault      bool
	SubManifestURI string
	Resource       string
	Duration       float64
}
