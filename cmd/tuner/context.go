package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tuner/internal/config"
	"tuner/internal/journal"
	"tuner/internal/logging"
	"tuner/internal/services/objectstore"
	"tuner/internal/services/records"
	"tuner/internal/services/remote"
	"tuner/internal/workflow"
)

type commandContext struct {
	configFlag *string
	userFlag   *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, userFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		userFlag:   userFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.userFlag != nil {
			if user := strings.TrimSpace(*c.userFlag); user != "" {
				cfg.User.ID = user
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// sessionHandle bundles a session with the resources closed alongside it.
type sessionHandle struct {
	cfg     *config.Config
	session *workflow.Session
	journal *journal.Store
}

func (h *sessionHandle) Close() {
	h.session.Close()
	if h.journal != nil {
		_ = h.journal.Close()
	}
}

// openSession wires the remote clients, object store and journal into a
// session for the configured user. withLock guards polling sessions.
func (c *commandContext) openSession(withLock bool) (*sessionHandle, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireUser(); err != nil {
		return nil, err
	}
	logger := c.loggerValue()

	objects, err := objectstore.New(cfg.Storage.BucketURL)
	if err != nil {
		return nil, err
	}

	var recorder workflow.Recorder
	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		logger.Info("action journal unavailable", logging.String("path", cfg.JournalPath()), logging.Error(err))
	} else {
		recorder = store
	}

	sessionCfg := workflow.SessionConfig{
		UserID:  cfg.User.ID,
		Service: remote.NewClient(remote.Config{BaseURL: cfg.Service.URL, Timeout: cfg.RequestTimeout()}),
		Objects: objects,
		Records: records.NewClient(records.Config{
			BaseURL: cfg.Records.URL,
			Table:   cfg.Records.Table,
			APIKey:  cfg.Records.APIKey,
			Timeout: cfg.RequestTimeout(),
		}),
		Recorder:      recorder,
		Logger:        logger,
		JobInterval:   cfg.JobPollInterval(),
		ModelInterval: cfg.ModelPollInterval(),
	}
	if withLock {
		sessionCfg.LockPath = cfg.SessionLockPath(cfg.User.ID)
	}
	session, err := workflow.NewSession(sessionCfg)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &sessionHandle{cfg: cfg, session: session, journal: store}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func requireArg(args []string, name string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
		return "", errors.New(name + " is required")
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
