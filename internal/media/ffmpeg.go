package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"podstudio/internal/config"
	"podstudio/internal/services"
)

// FFmpegEngine implements Engine by shelling out to ffmpeg and ffprobe.
type FFmpegEngine struct {
	ffmpeg       string
	ffprobe      string
	execTimeout  time.Duration
	probeTimeout time.Duration
}

// NewFFmpegEngine builds an engine from audio configuration.
func NewFFmpegEngine(cfg config.Audio) *FFmpegEngine {
	return &FFmpegEngine{
		ffmpeg:       cfg.FFmpegBinary,
		ffprobe:      cfg.FFprobeBinary,
		execTimeout:  time.Duration(cfg.ExecTimeoutSeconds) * time.Second,
		probeTimeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
	}
}

// Trim exports the [startSec, endSec] range of src to dst.
func (e *FFmpegEngine) Trim(ctx context.Context, src, dst string, startSec, endSec float64) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-vn",
		dst,
	}
	return e.run(ctx, "trim", args)
}

// DetectSilence runs silencedetect and parses the reported periods from
// stderr. The source file is not modified.
func (e *FFmpegEngine) DetectSilence(ctx context.Context, src string, minDurationSec float64, noiseDB int) ([]SilencePeriod, error) {
	args := []string{
		"-hide_banner",
		"-i", src,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%s", noiseDB, formatSeconds(minDurationSec)),
		"-f", "null",
		"-",
	}
	output, err := e.capture(ctx, "silencedetect", args)
	if err != nil {
		return nil, err
	}
	return parseSilencePeriods(output), nil
}

// RemoveSilence exports src to dst with silence stripped using the same
// thresholds DetectSilence reports on.
func (e *FFmpegEngine) RemoveSilence(ctx context.Context, src, dst string, minDurationSec float64, noiseDB int) error {
	filter := fmt.Sprintf(
		"silenceremove=start_periods=1:start_duration=%[1]s:start_threshold=%[2]ddB:stop_periods=-1:stop_duration=%[1]s:stop_threshold=%[2]ddB",
		formatSeconds(minDurationSec), noiseDB,
	)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-af", filter,
		"-vn",
		dst,
	}
	return e.run(ctx, "remove-silence", args)
}

// SuppressNoise applies ffmpeg's afftdn spectral denoiser. Timing is
// unaffected, so callers copy the caption sidecar verbatim.
func (e *FFmpegEngine) SuppressNoise(ctx context.Context, src, dst string, noiseFloorDB int) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-af", fmt.Sprintf("afftdn=nf=%d", noiseFloorDB),
		"-vn",
		dst,
	}
	return e.run(ctx, "suppress-noise", args)
}

// CutRange removes [startSec, endSec] from src and splices the remainder.
func (e *FFmpegEngine) CutRange(ctx context.Context, src, dst string, startSec, endSec float64) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-filter_complex", cutRangeFilter(startSec, endSec),
		"-map", "[out]",
		"-vn",
		dst,
	}
	return e.run(ctx, "cut-range", args)
}

// Concat joins srcs in order into dst with the target bitrate and channels.
func (e *FFmpegEngine) Concat(ctx context.Context, srcs []string, dst string, opts ConcatOptions) error {
	if len(srcs) == 0 {
		return services.Wrap(services.ErrProcessing, "media", "concat", "no input files", nil)
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, src := range srcs {
		args = append(args, "-i", src)
	}
	args = append(args,
		"-filter_complex", concatFilter(len(srcs)),
		"-map", "[out]",
	)
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	if opts.BitrateKbps > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", opts.BitrateKbps))
	}
	args = append(args, dst)
	return e.run(ctx, "concat", args)
}

// RenderWaveform draws a waveform summary PNG.
func (e *FFmpegEngine) RenderWaveform(ctx context.Context, src, dst string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-filter_complex", "showwavespic=s=1200x240:colors=0x3b82f6",
		"-frames:v", "1",
		dst,
	}
	return e.run(ctx, "waveform", args)
}

// run executes ffmpeg, treating non-zero exit and timeouts as ErrProcessing.
func (e *FFmpegEngine) run(ctx context.Context, operation string, args []string) error {
	_, err := e.capture(ctx, operation, args)
	return err
}

func (e *FFmpegEngine) capture(ctx context.Context, operation string, args []string) (string, error) {
	runCtx := ctx
	if e.execTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.execTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, e.ffmpeg, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return "", services.Wrap(services.ErrProcessing, "media", operation, "ffmpeg timed out", runCtx.Err())
		}
		return "", services.Wrap(services.ErrProcessing, "media", operation,
			strings.TrimSpace(string(output)), err)
	}
	return string(output), nil
}

// cutRangeFilter builds the splice filter that drops [startSec, endSec] and
// concatenates the surrounding pieces.
func cutRangeFilter(startSec, endSec float64) string {
	if startSec <= 0 {
		return fmt.Sprintf("[0:a]atrim=start=%s,asetpts=PTS-STARTPTS[out]", formatSeconds(endSec))
	}
	return fmt.Sprintf(
		"[0:a]atrim=end=%s,asetpts=PTS-STARTPTS[a];[0:a]atrim=start=%s,asetpts=PTS-STARTPTS[b];[a][b]concat=n=2:v=0:a=1[out]",
		formatSeconds(startSec), formatSeconds(endSec),
	)
}

// concatFilter builds the n-input audio concat graph.
func concatFilter(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d:a]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[out]", n)
	return b.String()
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
