// Package subtitles burns timed captions into video.
//
// Captions arrive in seconds or milliseconds and are normalized to seconds.
// For every frame the set of active captions is computed and runs of
// identical sets collapse into cues. Each cue becomes an ffmpeg drawtext
// filter gated on its frame range, the video is re-encoded without audio,
// and the original audio track is muxed back in. Compose walks the states
// Decoding, PerFrameOverlay, ReEncoding, Muxing and Done, moving to Failed
// on any error, and logs every transition.
package subtitles
