// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe under a deadline and returns the parsed Result; Parse
// decodes captured output. Result helpers pick the primary video stream
// (skipping attached cover art) and resolve a usable duration.
package ffprobe
