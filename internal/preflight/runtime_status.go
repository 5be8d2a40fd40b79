package preflight

import (
	"context"
	"strings"

	"mediaframe/internal/config"
)

// CheckOpenAIFromConfig evaluates the OpenAI-compatible transcription
// endpoint when it is the configured engine.
func CheckOpenAIFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI transcription"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !strings.EqualFold(strings.TrimSpace(cfg.Transcription.Engine), "openai") {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Transcription.OpenAIAPIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	base := strings.TrimRight(cfg.Transcription.OpenAIBaseURL, "/")
	return CheckService(ctx, name, base+"/models", "Authorization", "Bearer "+cfg.Transcription.OpenAIAPIKey)
}

// CheckAssemblyAIFromConfig evaluates the AssemblyAI speech-to-text service
// used for video subtitles.
func CheckAssemblyAIFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "AssemblyAI"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Subtitles.AssemblyAIAPIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	base := strings.TrimRight(cfg.Subtitles.AssemblyAIBaseURL, "/")
	return CheckService(ctx, name, base+"/v2/transcript?limit=1", "Authorization", cfg.Subtitles.AssemblyAIAPIKey)
}
