package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/dbupload/internal/config"
	"github.com/lepinkainen/dbupload/internal/datastore"
	"github.com/lepinkainen/dbupload/internal/tui"
)

const appDescription = "Create SQLite tables, upload records from JSON, YAML or CSV files and query them back."

var (
	openStore     = newStore
	browseResults = tui.Browse

	stdout io.Writer = os.Stdout
)

// CLI represents the complete command structure for the dbupload application
type CLI struct {
	// Global flags
	Config  string `help:"Path to config file (defaults to ./config.yaml when present)" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	// Storage flags, empty values keep the configured setting
	DB      string `name:"db" help:"Path to SQLite database file" type:"path"`
	Driver  string `help:"SQLite driver: sqlite (pure Go) or sqlite3 (cgo)"`
	Backend string `help:"Storage backend: sqlite or datasette"`

	// Datasette flags
	DatasetteURL   string `name:"datasette-url" help:"Base URL of the Datasette instance"`
	DatasetteDB    string `name:"datasette-db" help:"Datasette database name"`
	DatasetteToken string `name:"datasette-token" help:"Datasette API token" env:"DATASETTE_TOKEN"`

	CreateTable CreateTableCmd `cmd:"" name:"create-table" help:"Create a table from a schema file or column flags"`
	Upload      UploadCmd      `cmd:"" help:"Upload records from a JSON, YAML or CSV file"`
	Query       QueryCmd       `cmd:"" help:"Query rows from a table"`
	Demo        DemoCmd        `cmd:"" help:"Create a users table, upload sample users and print them"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	// Parse command line with Kong
	ctx := kong.Parse(&cli,
		kong.Name("dbupload"),
		kong.Description(appDescription),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	if err := initConfig(cli.Config); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	// Execute the selected command
	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig loads defaults, the optional config file and environment variables.
// A missing default config file is not an error; a missing --config file is.
func initConfig(configFile string) error {
	config.SetDefaults()

	// Enable environment variable support, e.g. DBUPLOAD_DATABASE_PATH
	viper.SetEnvPrefix("dbupload")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("datasette.token", "DATASETTE_TOKEN"); err != nil {
		return fmt.Errorf("failed to bind environment variable: %w", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("Config file not found, using defaults")
	} else {
		slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
	}

	// Initialize global config
	config.InitConfig()
	return nil
}

// updateGlobalConfig applies CLI flags on top of the file and environment settings
func updateGlobalConfig(cli *CLI) {
	overrides := []struct {
		key   string
		value string
	}{
		{"database.path", cli.DB},
		{"database.driver", cli.Driver},
		{"backend", cli.Backend},
		{"datasette.url", cli.DatasetteURL},
		{"datasette.database", cli.DatasetteDB},
		{"datasette.token", cli.DatasetteToken},
	}
	for _, o := range overrides {
		if o.value != "" {
			viper.Set(o.key, o.value)
		}
	}
}

// newStore builds the configured backend. The store is returned unconnected.
func newStore() (datastore.Store, error) {
	switch backend := strings.ToLower(config.Backend()); backend {
	case config.BackendSQLite, "":
		db := config.GetDatabase()
		if db.Path == "" {
			return nil, fmt.Errorf("database path is required (provide via --db flag or database.path in config)")
		}
		slog.Debug("Using SQLite backend", "path", db.Path, "driver", db.Driver)
		return datastore.NewSQLiteStoreWithOptions(db.Path, db.StoreOptions()), nil
	case config.BackendDatasette:
		ds := config.GetDatasette()
		if ds.URL == "" || ds.Database == "" {
			return nil, fmt.Errorf("datasette URL and database are required (provide via --datasette-url/--datasette-db flags or datasette.url/datasette.database in config)")
		}
		slog.Debug("Using Datasette backend", "url", ds.URL, "database", ds.Database)
		return datastore.NewDatasetteClient(ds.URL, ds.Database, ds.Token, ds.RequestsPerSecond), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, config.BackendSQLite, config.BackendDatasette)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Logs go to stderr so query output on stdout stays pipeable
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
