package transcode

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/eleven-am/hlsladder/internal/domain"
)

// NewJob builds the encode job for one planned rendition. The rendition is
// copied verbatim only when it is the source's own resolution, at or below
// copyThreshold, and the source is already h264; anything else is re-encoded.
func NewJob(r domain.Rendition, source domain.SourceMetadata, sourcePath, outputDir string, copyThreshold int) domain.EncodeJob {
	mode := domain.ModeReencode
	if r.IsOriginal && r.Height() <= copyThreshold && copyableCodec(source.Codec) {
		mode = domain.ModeCopy
	}

	return domain.EncodeJob{
		ID:         uuid.NewString(),
		Rendition:  r,
		SourcePath: sourcePath,
		OutputDir:  filepath.Join(outputDir, r.Name),
		Mode:       mode,
	}
}

// NewJobs builds one job per rendition, keeping the planner's order.
func NewJobs(renditions []domain.Rendition, source domain.SourceMetadata, sourcePath, outputDir string, copyThreshold int) []domain.EncodeJob {
	jobs := make([]domain.EncodeJob, 0, len(renditions))
	for _, r := range renditions {
		jobs = append(jobs, NewJob(r, source, sourcePath, outputDir, copyThreshold))
	}
	return jobs
}

// copyableCodec accepts an unknown codec so metadata from other probes
// does not force a re-encode.
func copyableCodec(codec string) bool {
	switch strings.ToLower(codec) {
	case "", "h264", "avc", "avc1":
		return true
	default:
		return false
	}
}
