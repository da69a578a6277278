package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

// Backend names accepted by the "backend" key
const (
	BackendSQLite    = "sqlite"
	BackendDatasette = "datasette"
)

// Global configuration variables
var (
	// OverwriteFiles controls whether existing output files should be overwritten
	OverwriteFiles bool
)

// Database holds the settings of the local SQLite backend
type Database struct {
	Path        string
	Driver      string
	ForeignKeys bool
	BusyTimeout time.Duration
	JournalMode string
	CreateDirs  bool
}

// Datasette holds the settings of the remote Datasette backend
type Datasette struct {
	URL               string
	Database          string
	Token             string
	RequestsPerSecond int
}

// SetDefaults registers the default value of every configuration key
func SetDefaults() {
	viper.SetDefault("backend", BackendSQLite)
	viper.SetDefault("OverwriteFiles", false)

	viper.SetDefault("database.path", "./dbupload.db")
	viper.SetDefault("database.driver", datastore.DriverModernc)
	viper.SetDefault("database.foreign_keys", true)
	viper.SetDefault("database.busy_timeout", "5s")
	viper.SetDefault("database.journal_mode", "")
	viper.SetDefault("database.create_dirs", true)

	viper.SetDefault("datasette.url", "")
	viper.SetDefault("datasette.database", "")
	viper.SetDefault("datasette.token", "")
	viper.SetDefault("datasette.rps", datastore.DefaultRequestsPerSecond)
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()
	OverwriteFiles = viper.GetBool("OverwriteFiles")
}

// SetOverwriteFiles sets the OverwriteFiles flag
func SetOverwriteFiles(overwrite bool) {
	OverwriteFiles = overwrite
}

// Backend returns the configured backend name
func Backend() string {
	return viper.GetString("backend")
}

// GetDatabase reads the database section
func GetDatabase() Database {
	return Database{
		Path:        viper.GetString("database.path"),
		Driver:      viper.GetString("database.driver"),
		ForeignKeys: viper.GetBool("database.foreign_keys"),
		BusyTimeout: viper.GetDuration("database.busy_timeout"),
		JournalMode: viper.GetString("database.journal_mode"),
		CreateDirs:  viper.GetBool("database.create_dirs"),
	}
}

// StoreOptions converts the section into SQLiteStore options
func (d Database) StoreOptions() datastore.Options {
	return datastore.Options{
		Driver:      d.Driver,
		ForeignKeys: d.ForeignKeys,
		BusyTimeout: d.BusyTimeout,
		JournalMode: d.JournalMode,
		CreateDirs:  d.CreateDirs,
	}
}

// GetDatasette reads the datasette section
func GetDatasette() Datasette {
	return Datasette{
		URL:               viper.GetString("datasette.url"),
		Database:          viper.GetString("datasette.database"),
		Token:             viper.GetString("datasette.token"),
		RequestsPerSecond: viper.GetInt("datasette.rps"),
	}
}
