// Package assemblyai is a minimal client for the AssemblyAI transcription
// API, used to caption uploaded videos. Timestamps arrive in milliseconds and
// are converted to seconds as soon as they are decoded.
package assemblyai
