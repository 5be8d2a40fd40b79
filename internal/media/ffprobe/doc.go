// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through a services.CommandRunner and returns a Result
// whose helpers expose stream counts, duration, and the video geometry and
// frame timing the subtitle compositor needs.
package ffprobe
