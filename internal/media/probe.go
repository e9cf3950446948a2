package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tcolgate/mp3"

	"podstudio/internal/services"
)

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe reports duration, mime type, and byte size for an audio file. When
// ffprobe is unavailable and the file is an mp3, duration is computed by
// walking the mp3 frames instead.
func (e *FFmpegEngine) Probe(ctx context.Context, path string) (ProbeResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrProcessing, "media", "probe", path, err)
	}

	result := ProbeResult{SizeBytes: info.Size(), MIMEType: mimeForExtension(path)}

	probeCtx := ctx
	if e.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	}
	cmd := exec.CommandContext(probeCtx, e.ffprobe, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) && strings.EqualFold(filepath.Ext(path), ".mp3") {
			duration, mp3Err := mp3FrameDuration(path)
			if mp3Err != nil {
				return ProbeResult{}, services.Wrap(services.ErrProcessing, "media", "probe", "mp3 fallback", mp3Err)
			}
			result.DurationSec = duration
			return result, nil
		}
		if probeCtx.Err() != nil {
			return ProbeResult{}, services.Wrap(services.ErrProcessing, "media", "probe", "ffprobe timed out", probeCtx.Err())
		}
		return ProbeResult{}, services.Wrap(services.ErrProcessing, "media", "probe", path, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return ProbeResult{}, services.Wrap(services.ErrProcessing, "media", "probe", "parse ffprobe output", err)
	}
	if parsed.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			result.DurationSec = duration
		}
	}
	if mime := mimeForFormatName(parsed.Format.FormatName); mime != "" {
		result.MIMEType = mime
	}
	return result, nil
}

// mp3FrameDuration sums frame durations the way a player would, so files with
// missing or wrong headers still probe correctly.
func mp3FrameDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}
	return total, nil
}

func mimeForFormatName(formatName string) string {
	// ffprobe reports comma-separated demuxer aliases, e.g. "mov,mp4,m4a,...".
	for _, name := range strings.Split(formatName, ",") {
		switch strings.TrimSpace(name) {
		case "mp3":
			return "audio/mpeg"
		case "ogg":
			return "audio/ogg"
		case "wav":
			return "audio/wav"
		case "flac":
			return "audio/flac"
		case "m4a", "mp4", "mov":
			return "audio/mp4"
		case "webm", "matroska":
			return "audio/webm"
		}
	}
	return ""
}

func mimeForExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
