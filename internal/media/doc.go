// Package media drives the external audio engine. The production engine is
// ffmpeg/ffprobe invoked with explicit argument lists and bounded execution
// timeouts; every operation writes to a caller-chosen destination and never
// modifies its source file.
package media
