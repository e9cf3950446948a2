package media

import (
	"strconv"
	"strings"
)

// parseSilencePeriods extracts silencedetect reports from ffmpeg output.
// Lines look like:
//
//	[silencedetect @ 0x...] silence_start: 2.01
//	[silencedetect @ 0x...] silence_end: 4.5 | silence_duration: 2.49
//
// A trailing silence_start without a matching end means silence runs to the
// end of the file; that open period is reported with End == Start so callers
// can close it against the probed duration if they care.
func parseSilencePeriods(output string) []SilencePeriod {
	var periods []SilencePeriod
	var pendingStart *float64

	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, "silence_start:"); idx >= 0 {
			value := firstField(line[idx+len("silence_start:"):])
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				start := parsed
				if start < 0 {
					start = 0
				}
				pendingStart = &start
			}
			continue
		}
		if idx := strings.Index(line, "silence_end:"); idx >= 0 && pendingStart != nil {
			value := firstField(line[idx+len("silence_end:"):])
			if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > *pendingStart {
				periods = append(periods, SilencePeriod{Start: *pendingStart, End: parsed})
			}
			pendingStart = nil
		}
	}

	if pendingStart != nil {
		periods = append(periods, SilencePeriod{Start: *pendingStart, End: *pendingStart})
	}
	return periods
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
