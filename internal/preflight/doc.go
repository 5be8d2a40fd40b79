// Package preflight provides readiness checks for the external tools,
// services and filesystem paths mediaframe depends on.
//
// The CLI "mediaframe status" command renders these results, and processing
// commands call RunAll before touching the filesystem so a misconfigured
// directory fails fast.
package preflight
