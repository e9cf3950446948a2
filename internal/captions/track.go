package captions

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Entry is one timed utterance of a caption track. Start and End are seconds
// from the beginning of the audio file, millisecond precision.
type Entry struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Track is an ordered sequence of caption entries, ascending by Start.
type Track struct {
	Entries []Entry
}

// SidecarExtension is the caption file extension written next to audio files.
const SidecarExtension = ".srt"

// SidecarPath derives the caption sidecar location for an audio file: same
// directory, same base name, caption extension.
func SidecarPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + SidecarExtension
}

// Parse reads SRT-formatted text into a Track. The parser is deliberately
// lenient: blocks missing an index line, a timing line, or text are dropped
// without error so a single hand-mangled block never loses the whole track.
func Parse(text string) Track {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")

	var entries []Entry
	for _, block := range blocks {
		if entry, ok := parseBlock(block); ok {
			entries = append(entries, entry)
		}
	}
	return Track{Entries: entries}
}

func parseBlock(block string) (Entry, bool) {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 {
		return Entry{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Entry{}, false
	}

	timing := lines[1]
	if !strings.Contains(timing, "-->") {
		return Entry{}, false
	}
	parts := strings.SplitN(timing, "-->", 2)
	start := TimeToSeconds(parts[0])
	end := TimeToSeconds(parts[1])

	text := strings.Join(lines[2:], "\n")
	return Entry{Index: index, Start: start, End: end, Text: text}, true
}

// Serialize renders the track in canonical SRT form, renumbering entries 1..N
// in their current order.
func Serialize(track Track) string {
	var b strings.Builder
	for i, entry := range track.Entries {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, SecondsToTime(entry.Start), SecondsToTime(entry.End), entry.Text)
		if i < len(track.Entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// TimeToSeconds converts an "HH:MM:SS,mmm" timestamp to seconds. Either comma
// or period is accepted as the millisecond separator. Malformed input parses
// as 0.
func TimeToSeconds(value string) float64 {
	value = strings.TrimSpace(strings.ReplaceAll(value, ".", ","))

	var millis int
	if idx := strings.LastIndex(value, ","); idx >= 0 {
		parsed, err := strconv.Atoi(strings.TrimSpace(value[idx+1:]))
		if err != nil {
			return 0
		}
		millis = parsed
		value = value[:idx]
	}

	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	minutes, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	seconds, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}

	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}

// SecondsToTime converts seconds to the canonical "HH:MM:SS,mmm" form. It is
// the exact inverse of TimeToSeconds at millisecond resolution. Negative
// input clamps to zero.
func SecondsToTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis %= 3_600_000
	minutes := totalMillis / 60_000
	totalMillis %= 60_000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
