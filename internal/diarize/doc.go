// Package diarize attributes transcript text to speakers.
//
// MFCC frames are clustered with seeded k-means, runs of identical labels
// become speaker segments, and transcript segments (or words) are assigned
// to the first speaker segment containing their start time.
package diarize
