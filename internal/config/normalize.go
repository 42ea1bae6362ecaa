package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	if value, ok := os.LookupEnv("STUDIOFLOW_POSTGRES_URL"); ok && strings.TrimSpace(value) != "" {
		c.Store.PostgresURL = value
	}
	c.Store.PostgresURL = strings.TrimSpace(c.Store.PostgresURL)
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
	}
	var err error
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	if c.Store.MaxConns == 0 {
		c.Store.MaxConns = defaultMaxConns
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("STUDIOFLOW_TOKEN_SECRET"); ok && value != "" {
		c.API.TokenSecret = value
	}
	if c.API.TokenTTLMinutes == 0 {
		c.API.TokenTTLMinutes = defaultTokenTTLMinutes
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("STUDIOFLOW_NTFY_URL"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyURL = value
	}
	c.Notifications.NtfyURL = strings.TrimRight(strings.TrimSpace(c.Notifications.NtfyURL), "/")
	c.Notifications.TopicPrefix = strings.Trim(strings.TrimSpace(c.Notifications.TopicPrefix), "-")
	if c.Notifications.TopicPrefix == "" {
		c.Notifications.TopicPrefix = defaultTopicPrefix
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("STUDIOFLOW_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
