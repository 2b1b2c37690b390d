package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeUser()
	c.normalizeService()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeRecords()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeUser() {
	c.User.ID = strings.TrimSpace(c.User.ID)
	if c.User.ID == "" {
		if value, ok := os.LookupEnv("TUNER_USER_ID"); ok {
			c.User.ID = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv("TUNER_SERVICE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Service.URL = value
	}
	c.Service.URL = strings.TrimRight(strings.TrimSpace(c.Service.URL), "/")
	if c.Service.URL == "" {
		c.Service.URL = defaultServiceURL
	}
}

func (c *Config) normalizeStorage() error {
	bucket := strings.TrimRight(strings.TrimSpace(c.Storage.BucketURL), "/")
	if bucket == "" {
		bucket = defaultBucketURL
	}
	if !strings.Contains(bucket, "://") {
		expanded, err := expandPath(bucket)
		if err != nil {
			return fmt.Errorf("storage.bucket_url: %w", err)
		}
		bucket = "file://" + expanded
	}
	c.Storage.BucketURL = bucket
	return nil
}

func (c *Config) normalizeRecords() {
	if c.Records.APIKey == "" {
		if value, ok := os.LookupEnv("TUNER_RECORDS_API_KEY"); ok {
			c.Records.APIKey = value
		}
	}
	c.Records.URL = strings.TrimRight(strings.TrimSpace(c.Records.URL), "/")
	c.Records.APIKey = strings.TrimSpace(c.Records.APIKey)
	c.Records.Table = strings.TrimSpace(c.Records.Table)
	if c.Records.Table == "" {
		c.Records.Table = defaultRecordsTable
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
