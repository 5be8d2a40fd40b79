// Package language normalizes transcription language hints. Hints may be
// ISO 639 codes, BCP 47 tags such as "pt-BR", or English names, and are
// reduced to the base code that speech engines accept.
package language
