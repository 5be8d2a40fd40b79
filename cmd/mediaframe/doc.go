// Package main hosts the mediaframe CLI entrypoint and command graph.
//
// Each processing subcommand reads one local file, runs it through a
// pipeline.Processor and writes the resulting artifact under the configured
// output directory. The status and config commands report readiness and
// scaffold configuration. Configuration resolution and logging setup live in
// commandContext so subcommands only describe their flags and output.
package main
