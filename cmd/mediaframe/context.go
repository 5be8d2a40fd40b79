package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediaframe/internal/config"
	"mediaframe/internal/logging"
	"mediaframe/internal/notifications"
	"mediaframe/internal/pipeline"
	"mediaframe/internal/preflight"
	"mediaframe/internal/services"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	// run replaces the external tool runner in tests.
	run services.CommandRunner
	// processorOptions are appended when building a Processor in tests.
	processorOptions []pipeline.Option
	// notifier replaces the configured notification service in tests.
	notifier notifications.Service
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// newProcessor wires a pipeline.Processor. When withModel is set the
// transcription model is loaded first; the returned close function releases
// the transcript cache.
func (c *commandContext) newProcessor(ctx context.Context, withModel bool) (*pipeline.Processor, func() error, error) {
	noop := func() error { return nil }
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, noop, err
	}
	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		return nil, noop, fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
	}
	logger := c.loggerValue()

	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithCommandRunner(c.run)}
	closeFn := noop
	if withModel {
		transcriber, closeCache, err := pipeline.LoadTranscriber(ctx, cfg, c.run, logger)
		if err != nil {
			return nil, noop, err
		}
		opts = append(opts, pipeline.WithTranscriber(transcriber))
		closeFn = closeCache
	}
	opts = append(opts, c.processorOptions...)
	return pipeline.New(cfg, opts...), closeFn, nil
}

// notify delivers a notification and logs rather than returns delivery
// failures so they never mask the job outcome.
func (c *commandContext) notify(ctx context.Context, send func(notifications.Service) error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return
	}
	svc := c.notifier
	if svc == nil {
		svc = notifications.NewService(cfg)
	}
	if err := send(svc); err != nil {
		logging.WarnWithContext(ctx, logging.NewComponentLogger(c.loggerValue(), "cli"),
			"notification failed", "notification_failed",
			logging.String(logging.FieldImpact, "job outcome was not announced"),
			logging.Error(err),
		)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// formatError renders a failure with its taxonomy kind when one is known.
func formatError(err error) string {
	details := services.Details(err)
	if details.Kind == "" || details.Kind == "internal" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", details.Kind, details.Message)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
