package domain

type Accelerator string

const (
	AccelNone         Accelerator = "none"
	AccelCUDA         Accelerator = "cuda"
	AccelVideoToolbox Accelerator = "videotoolbox"
	AccelVAAPI        Accelerator = "vaapi"
	AccelQSV          Accelerator = "qsv"
)

// HWAccelConfig holds the ffmpeg flags for one h264 encoder. ScaleFilter is a
// format string taking width then height.
type HWAccelConfig struct {
	Accelerator  Accelerator
	DecodeFlags  []string
	EncodeFlags  []string
	Encoder      string
	Profile      string
	KeyframeFlag string
	ScaleFilter  string
}
