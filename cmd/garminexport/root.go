package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgoulah/garminexport/internal/config"
	"github.com/jgoulah/garminexport/internal/database"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "garminexport",
	Short: "Export GarminStats measurements from InfluxDB to a ZIP of CSV files",
	Long: `garminexport queries every measurement in an InfluxDB database for a date range
and writes one CSV per measurement into a ZIP archive under /tmp.

Connection settings come from INFLUXDB_HOST, INFLUXDB_PORT, INFLUXDB_USERNAME,
INFLUXDB_PASSWORD, INFLUXDB_DATABASE and INFLUXDB_ENDPOINT_IS_HTTP, over the
optional config file.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "export history database (default is ./exports.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and applies the environment on top
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return config.Config{}, err
	}

	cfg, err = cfg.ApplyEnv(os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}

	return cfg, cfg.Validate()
}

// getDBPath returns the history database path, preferring the flag over the config
func getDBPath(cfg config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if cfg.HistoryDB != "" {
		return cfg.HistoryDB
	}
	return config.DefaultHistoryDB
}

// openDB opens the history database
func openDB(cfg config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
