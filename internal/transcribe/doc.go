// Package transcribe converts speech to timestamped text.
//
// A Model wraps an Engine (whisperx via uvx, or an OpenAI-compatible HTTP
// endpoint). It is constructed and loaded once at process start, then shared
// read-only by concurrent requests. Transcriber refuses work until the model
// is ready, normalizes language hints, and optionally consults a transcript
// cache keyed by audio content.
package transcribe
