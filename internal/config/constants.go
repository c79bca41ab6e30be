package config

const (
	DefaultDataDir      = "./data"
	DefaultDatabaseName = "default"
	DefaultSnapshotsDir = "./backups"
)
