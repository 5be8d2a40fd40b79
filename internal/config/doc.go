// Package config loads, normalizes, and validates mediaframe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and ASSEMBLYAI_API_KEY. The Config type centralizes every
// knob the processing components and CLI need.
package config
