package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Ledger.UnitsPerStage < 1 {
		return errors.New("ledger.units_per_stage must be >= 1")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set when store.driver is sqlite")
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			return errors.New("store.postgres_url must be set when store.driver is postgres (or set STUDIOFLOW_POSTGRES_URL)")
		}
	default:
		return fmt.Errorf("store.driver must be %s or %s, got %q", DriverSQLite, DriverPostgres, c.Store.Driver)
	}
	if c.Store.MaxConns < 1 {
		return errors.New("store.max_conns must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.TokenTTLMinutes < 0 {
		return errors.New("api.token_ttl_minutes must be >= 0")
	}
	return nil
}

// RequireTokenSecret reports an error when the API cannot sign or verify tokens.
func (c *Config) RequireTokenSecret() error {
	if len(c.API.TokenSecret) < 16 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("api.token_secret must be at least 16 characters. Set STUDIOFLOW_TOKEN_SECRET or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	url := c.Notifications.NtfyURL
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("notifications.ntfy_url must be an http(s) URL, got %q", url)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
