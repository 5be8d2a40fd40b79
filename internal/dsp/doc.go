// Package dsp implements the spectral primitives the effects and speaker
// diarization build on: a padded real FFT, a centred short-time Fourier
// transform with overlap-add inversion, and mel-cepstral features.
//
// Transforms delegate to gonum's mixed-radix FFT. Windowing, framing, mel
// filter construction, and the orthonormal DCT are computed here.
package dsp
