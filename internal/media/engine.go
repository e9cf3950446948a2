package media

import "context"

// ProbeResult is the authoritative description of an audio file. Durations
// cached elsewhere are refreshed from a probe after every mutation.
type ProbeResult struct {
	DurationSec float64
	MIMEType    string
	SizeBytes   int64
}

// SilencePeriod is one detected stretch of silence, in seconds from the start
// of the file.
type SilencePeriod struct {
	Start float64
	End   float64
}

// Duration returns the period length in seconds.
func (p SilencePeriod) Duration() float64 {
	return p.End - p.Start
}

// ConcatOptions configure final-episode concatenation output.
type ConcatOptions struct {
	BitrateKbps int
	Channels    int
}

// Engine abstracts the external audio tool the edit orchestrator and render
// assembler drive. The production implementation shells out to ffmpeg; tests
// substitute a fake.
type Engine interface {
	// Probe reports duration, mime type, and byte size.
	Probe(ctx context.Context, path string) (ProbeResult, error)

	// Trim exports the [startSec, endSec] range of src to dst.
	Trim(ctx context.Context, src, dst string, startSec, endSec float64) error

	// DetectSilence finds stretches quieter than noiseDB lasting at least
	// minDurationSec, without modifying src.
	DetectSilence(ctx context.Context, src string, minDurationSec float64, noiseDB int) ([]SilencePeriod, error)

	// RemoveSilence exports src to dst with silence cut out, using the same
	// thresholds as DetectSilence so the cuts match the detected periods.
	RemoveSilence(ctx context.Context, src, dst string, minDurationSec float64, noiseDB int) error

	// SuppressNoise applies spectral noise reduction with the given floor.
	SuppressNoise(ctx context.Context, src, dst string, noiseFloorDB int) error

	// CutRange removes [startSec, endSec] from src and exports the spliced
	// remainder to dst.
	CutRange(ctx context.Context, src, dst string, startSec, endSec float64) error

	// Concat joins srcs in order into one output at dst.
	Concat(ctx context.Context, srcs []string, dst string, opts ConcatOptions) error

	// RenderWaveform draws a waveform summary image of src to dst.
	RenderWaveform(ctx context.Context, src, dst string) error
}
