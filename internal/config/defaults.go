package config

const (
	defaultConfigPath          = "~/.config/studioflow/config.toml"
	defaultDataDir             = "~/.local/share/studioflow"
	defaultLogDir              = "~/.local/share/studioflow/logs"
	defaultSQLiteFile          = "studioflow.db"
	defaultStoreDriver         = DriverSQLite
	defaultMaxConns            = 8
	defaultAPIBind             = "127.0.0.1:7620"
	defaultTokenTTLMinutes     = 720
	defaultTopicPrefix         = "studioflow"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLedgerUnitsPerStage = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Driver:   defaultStoreDriver,
			MaxConns: defaultMaxConns,
		},
		API: API{
			Bind:            defaultAPIBind,
			TokenTTLMinutes: defaultTokenTTLMinutes,
		},
		Notifications: Notifications{
			TopicPrefix:    defaultTopicPrefix,
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ledger: Ledger{
			UnitsPerStage: defaultLedgerUnitsPerStage,
		},
	}
}
