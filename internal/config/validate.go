package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	if err := validateHTTPURL("service.url", c.Service.URL); err != nil {
		return err
	}
	if c.Service.RequestTimeout < 0 {
		return errors.New("service.request_timeout must not be negative (seconds, 0 uses the default)")
	}
	return nil
}

func (c *Config) validateRecords() error {
	if c.Records.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("records.url is required. Edit %s (create with 'tuner config init')", defaultPath)
	}
	if err := validateHTTPURL("records.url", c.Records.URL); err != nil {
		return err
	}
	if c.Records.Table == "" {
		return errors.New("records.table must be set")
	}
	return nil
}

func (c *Config) validatePolling() error {
	return ensurePositiveMap(map[string]int{
		"polling.job_interval":   c.Polling.JobInterval,
		"polling.model_interval": c.Polling.ModelInterval,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequireUser reports an error when no user identifier is configured.
func (c *Config) RequireUser() error {
	if c.User.ID == "" {
		return errors.New("user id is required. Pass --user, set TUNER_USER_ID, or set user.id in the config file")
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
