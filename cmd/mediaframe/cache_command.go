package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediaframe/internal/transcriptcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show transcript cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTranscriptCache(cmd, ctx, func(store *transcriptcache.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, cacheStatus{
						Enabled:    true,
						Path:       store.Path(),
						Entries:    stats.Entries,
						AudioBytes: stats.AudioBytes,
						Hits:       stats.Hits,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Path:    %s\n", store.Path())
				fmt.Fprintf(out, "Entries: %s\n", humanize.Comma(int64(stats.Entries)))
				fmt.Fprintf(out, "Audio:   %s\n", humanize.Bytes(uint64(max(stats.AudioBytes, 0))))
				fmt.Fprintf(out, "Reuses:  %s\n", humanize.Comma(stats.Hits))
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached transcripts older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return withTranscriptCache(cmd, ctx, func(store *transcriptcache.Store) error {
				cutoff := time.Now().Add(-olderThan)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"removed": removed, "cutoff": cutoff.UTC()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cached transcript(s) created before %s\n",
					humanize.Comma(removed), humanize.Time(cutoff))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold; 0 removes every entry")
	return cmd
}

// withTranscriptCache opens the configured cache for fn. A disabled cache is
// reported rather than treated as an error.
func withTranscriptCache(cmd *cobra.Command, ctx *commandContext, fn func(*transcriptcache.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Transcription.CacheEnabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Transcript cache disabled (set transcription.cache_enabled)")
		return nil
	}
	store, err := transcriptcache.Open(cmd.Context(), cfg.TranscriptCachePath(), ctx.loggerValue())
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}
