// Package pipeline runs one media operation per request.
//
// A Processor decodes the uploaded bytes, applies exactly one effect or
// analysis, and returns either structured data or an encoded artifact the
// caller must release. Uploads are spooled to uniquely named temp files that
// are removed before returning on every path. The transcription model handle
// is injected and shared read-only across concurrent requests.
package pipeline
