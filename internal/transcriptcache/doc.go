// Package transcriptcache persists transcripts in SQLite so repeated uploads
// of the same audio skip the speech engine. It satisfies transcribe.Cache.
package transcriptcache
