// Package audio converts uploaded byte streams into mono sample buffers and
// encodes processed buffers back into files.
//
// WAV, MP3, FLAC, and Ogg Vorbis are decoded in-process with beep; any other
// container (m4a, webm, video files) is transcoded to WAV with ffmpeg first.
// Inputs are spooled to uniquely named temp files that are removed before a
// decode returns. Encoded output is returned as an Artifact whose Release
// method the caller invokes once the file has been consumed.
package audio
