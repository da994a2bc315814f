package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cardvault/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"

	// Storage
	DataDir              string `env:"DATA_DIR" envDefault:"data"`
	SnapshotFile         string `env:"SNAPSHOT_FILE" envDefault:"economy.json.zst"`
	BackupDir            string `env:"BACKUP_DIR"` // Defaults to DATA_DIR/backups
	BackupRetention      int    `env:"BACKUP_RETENTION" envDefault:"24"`
	RestoreFailurePolicy string `env:"RESTORE_FAILURE_POLICY" envDefault:"abort"` // "abort" or "empty"

	// Catalog
	CatalogPath string `env:"CATALOG_PATH"` // Empty uses the built-in catalog

	// Economy rules
	StartingBalance     int64 `env:"STARTING_BALANCE" envDefault:"50000"`
	InventoryCapacity   int   `env:"INVENTORY_CAPACITY" envDefault:"10"`
	LevelXPThreshold    int64 `env:"LEVEL_XP_THRESHOLD" envDefault:"100"`
	LevelUpCoinReward   int64 `env:"LEVEL_UP_COIN_REWARD" envDefault:"1000"`
	LevelUpPointsReward int64 `env:"LEVEL_UP_POINTS_REWARD" envDefault:"10"`

	// Timers
	AuctionDuration  time.Duration `env:"AUCTION_DURATION" envDefault:"10m"`
	AntiSnipeWindow  time.Duration `env:"ANTI_SNIPE_WINDOW" envDefault:"30s"`
	TradeExpiry      time.Duration `env:"TRADE_EXPIRY" envDefault:"60s"`
	IncomeInterval   time.Duration `env:"INCOME_INTERVAL" envDefault:"1h"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"5m"`
	BackupInterval   time.Duration `env:"BACKUP_INTERVAL" envDefault:"6h"`
	ReaperInterval   time.Duration `env:"REAPER_INTERVAL" envDefault:"5s"`

	// Balance history journal
	HistoryDriver string `env:"HISTORY_DRIVER" envDefault:"none"` // "none", "postgres" or "sqlite"
	DatabaseURL   string `env:"DATABASE_URL"`
	DatabaseName  string `env:"DATABASE_NAME"`
	SQLitePath    string `env:"SQLITE_PATH"` // Defaults to DATA_DIR/history.db

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS"` // Empty disables event forwarding

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"cardvault"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"60000"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load parses configuration from the environment without touching the global instance
func Load() (*Config, error) {
	return load()
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	if c.InventoryCapacity <= 0 {
		return fmt.Errorf("INVENTORY_CAPACITY must be positive")
	}
	if c.LevelXPThreshold <= 0 {
		return fmt.Errorf("LEVEL_XP_THRESHOLD must be positive")
	}
	if c.LevelUpCoinReward < 0 || c.LevelUpPointsReward < 0 {
		return fmt.Errorf("level up rewards cannot be negative")
	}
	for name, d := range map[string]time.Duration{
		"AUCTION_DURATION":  c.AuctionDuration,
		"TRADE_EXPIRY":      c.TradeExpiry,
		"INCOME_INTERVAL":   c.IncomeInterval,
		"AUTOSAVE_INTERVAL": c.AutosaveInterval,
		"BACKUP_INTERVAL":   c.BackupInterval,
		"REAPER_INTERVAL":   c.ReaperInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.AntiSnipeWindow < 0 {
		return fmt.Errorf("ANTI_SNIPE_WINDOW cannot be negative")
	}

	switch c.RestoreFailurePolicy {
	case "abort", "empty":
	default:
		return fmt.Errorf("RESTORE_FAILURE_POLICY must be 'abort' or 'empty', got %q", c.RestoreFailurePolicy)
	}

	switch c.HistoryDriver {
	case "none", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when HISTORY_DRIVER=postgres")
		}
		// If DatabaseName is provided, ensure it's not empty
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	default:
		return fmt.Errorf("unknown HISTORY_DRIVER %q", c.HistoryDriver)
	}
	return nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// SnapshotPath returns the canonical snapshot location
func (c *Config) SnapshotPath() string {
	if filepath.IsAbs(c.SnapshotFile) {
		return c.SnapshotFile
	}
	return filepath.Join(c.DataDir, c.SnapshotFile)
}

// BackupPath returns the directory holding timestamped snapshot copies
func (c *Config) BackupPath() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(c.DataDir, "backups")
}

// SQLiteFile returns the sqlite history journal location
func (c *Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "history.db")
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		LogLevel:             "debug",
		LogFormat:            "text",
		DataDir:              os.TempDir(),
		SnapshotFile:         "economy-test.json.zst",
		BackupRetention:      5,
		RestoreFailurePolicy: "abort",
		StartingBalance:      50000,
		InventoryCapacity:    10,
		LevelXPThreshold:     100,
		LevelUpCoinReward:    1000,
		LevelUpPointsReward:  10,
		AuctionDuration:      10 * time.Minute,
		AntiSnipeWindow:      30 * time.Second,
		TradeExpiry:          60 * time.Second,
		IncomeInterval:       time.Hour,
		AutosaveInterval:     5 * time.Minute,
		BackupInterval:       6 * time.Hour,
		ReaperInterval:       5 * time.Second,
		HistoryDriver:        "none",
		OTelExporterType:     "none",
		OTelServiceName:      "cardvault-test",
	}
}
