package config

import (
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Storage
		Snapshots
		Generator
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Storage struct {
		DataDir         string // Directory holding one database file per catalog
		DefaultDatabase string
	}
	Snapshots struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
		Dir      string
	}
	Generator struct {
		APIKey  string
		BaseURL string // Override for OpenAI-compatible endpoints
		Model   string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("default_database", DefaultDatabaseName)
	v.SetDefault("snapshots_enabled", false)
	v.SetDefault("snapshots_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("snapshots_dir", DefaultSnapshotsDir)
	v.SetDefault("generator_api_key", "")
	v.SetDefault("generator_base_url", "")
	v.SetDefault("generator_model", "gpt-4o-mini")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Storage: Storage{
			DataDir:         v.GetString("DATA_DIR"),
			DefaultDatabase: v.GetString("DEFAULT_DATABASE"),
		},
		Snapshots: Snapshots{
			Enabled:  v.GetBool("SNAPSHOTS_ENABLED"),
			Schedule: v.GetString("SNAPSHOTS_SCHEDULE"),
			Dir:      v.GetString("SNAPSHOTS_DIR"),
		},
		Generator: Generator{
			APIKey:  v.GetString("GENERATOR_API_KEY"),
			BaseURL: v.GetString("GENERATOR_BASE_URL"),
			Model:   v.GetString("GENERATOR_MODEL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
