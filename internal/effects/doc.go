// Package effects implements the audio transformations offered by the
// pipeline: bass boost and noise cancellation in the frequency domain, and
// pitch shifting and speed change via a phase vocoder.
//
// Every operation takes an audio.Buffer and returns a new one; inputs are
// never modified.
package effects
