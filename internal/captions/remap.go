package captions

// SilencePeriod is one detected stretch of silence in the source audio.
type SilencePeriod struct {
	Start float64
	End   float64
}

// RemapTrim adjusts a track for audio trimmed to [newStart, newEnd]. Entries
// fully outside the kept range are dropped; survivors shift left by newStart
// with their end clipped to the new duration.
func RemapTrim(track Track, newStart, newEnd float64) Track {
	duration := newEnd - newStart
	var entries []Entry
	for _, entry := range track.Entries {
		if entry.End <= newStart || entry.Start >= newEnd {
			continue
		}
		start := entry.Start - newStart
		if start < 0 {
			start = 0
		}
		end := entry.End - newStart
		if end > duration {
			end = duration
		}
		entries = append(entries, Entry{Index: entry.Index, Start: start, End: end, Text: entry.Text})
	}
	return Track{Entries: entries}
}

// RemapSilence adjusts a track for audio with the given silence periods cut
// out. Each entry shifts left by the cumulative silence removed at or before
// its start and end respectively; a period partially overlapping a boundary
// contributes only the overlapping portion. Entries squeezed to zero or
// negative length are dropped.
func RemapSilence(track Track, periods []SilencePeriod) Track {
	var entries []Entry
	for _, entry := range track.Entries {
		start := entry.Start - silenceBefore(periods, entry.Start)
		end := entry.End - silenceBefore(periods, entry.End)
		if end <= start {
			continue
		}
		entries = append(entries, Entry{Index: entry.Index, Start: start, End: end, Text: entry.Text})
	}
	return Track{Entries: entries}
}

func silenceBefore(periods []SilencePeriod, at float64) float64 {
	var total float64
	for _, p := range periods {
		if p.Start >= at {
			continue
		}
		end := p.End
		if end > at {
			end = at
		}
		if end > p.Start {
			total += end - p.Start
		}
	}
	return total
}

// RemapDeleteEntry drops the entry at position i (0-based within the track)
// and shifts every remaining entry that started at or after it left by the
// deleted entry's duration, floored at zero. Entries before the deleted one
// are unchanged. Out-of-range i returns the track unmodified.
func RemapDeleteEntry(track Track, i int) Track {
	if i < 0 || i >= len(track.Entries) {
		return track
	}
	removed := track.Entries[i]
	removedDuration := removed.End - removed.Start

	entries := make([]Entry, 0, len(track.Entries)-1)
	for pos, entry := range track.Entries {
		if pos == i {
			continue
		}
		if entry.Start >= removed.Start {
			entry.Start = max(0, entry.Start-removedDuration)
			entry.End = max(0, entry.End-removedDuration)
		}
		entries = append(entries, entry)
	}
	return Track{Entries: entries}
}
