// Package services defines shared utilities consumed by the processing
// components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp operation kinds, stage names, and correlation
//     identifiers for logging.
//   - The error taxonomy markers plus the Wrap helper so every failure is
//     classifiable with errors.Is without losing its cause.
//   - A CommandRunner abstraction that makes external tool execution
//     (ffmpeg, ffprobe, uvx) testable.
package services
