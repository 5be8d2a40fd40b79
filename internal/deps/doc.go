// Package deps checks that the external tools mediaframe shells out to
// (ffmpeg, ffprobe, uvx) can be resolved on PATH.
package deps
