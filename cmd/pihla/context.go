package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pihla/internal/config"
	"pihla/internal/journal"
	"pihla/internal/logging"
	"pihla/internal/pipeline"
	"pihla/internal/runlock"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.LogFilePattern,
		})
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// session bundles the resources a mutating command holds for its lifetime.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *runlock.Lock
	journal *journal.Store
}

// openSession loads config and logger, takes the run lock, and opens the
// journal when enabled. Journal failures are logged and the run continues
// without history.
func (c *commandContext) openSession(ctx context.Context) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, fmt.Errorf("%w; wait for it to finish or remove a stale lock only if no pihla process is running", err)
		}
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger, lock: lock}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
				logging.String("file", cfg.JournalPath()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
				logging.String(logging.FieldImpact, "this run is not recorded in history"),
			)
		} else {
			s.journal = store
			if n, err := store.MarkInterrupted(ctx); err == nil && n > 0 {
				logger.Info("previous runs marked interrupted", logging.Int64("runs", n))
			}
		}
	}
	return s, nil
}

func (s *session) runner() *pipeline.Runner {
	deps := pipeline.Deps{Logger: s.logger}
	if s.journal != nil {
		deps.Recorder = s.journal
	}
	return pipeline.NewRunner(s.cfg, deps)
}

func (s *session) Close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
	_ = s.lock.Release()
}

// openJournal opens the journal for read-only commands. It does not take the
// run lock.
func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, errors.New("run journal is disabled; set journal.enabled = true in the config")
	}
	return journal.Open(cfg)
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
