package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/go-co-op/gocron"

	ports "vendas/internal/sheets"
)

// Backend names accepted by DATA_BACKEND and MIRROR_UPSTREAM.
const (
	BackendSheets = "sheets"
	BackendExcel  = "excel"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port            string
	ReloadRateLimit int // manual reloads per minute per client
	LogLevel        string

	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	LedgerSheetName       string
	TargetsSheetName      string

	// Local sources
	WorkbookPath  string
	MemoryDataDir string
	SQLiteDBPath  string

	// Dataset cache
	CacheTTL        time.Duration
	SourceTimeout   time.Duration
	DisplayTimezone string

	// AMQP
	AMQPURL      string
	AMQPExchange string

	// Mirror worker
	MirrorUpstream string
	MirrorSchedule string
	MirrorInterval time.Duration
}

func Load() *Config {
	defaults := ports.DefaultSheetNames()
	credentialsFile := getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	if credentialsFile == "" {
		credentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ReloadRateLimit: getEnvInt("RELOAD_RATE_LIMIT", 6),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: credentialsFile,
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		LedgerSheetName:       getEnv("LEDGER_SHEET_NAME", defaults.Ledger),
		TargetsSheetName:      getEnv("TARGETS_SHEET_NAME", defaults.Targets),

		WorkbookPath:  getEnv("WORKBOOK_PATH", "./data/vendas.xlsx"),
		MemoryDataDir: getEnv("MEMORY_DATA_DIR", "./data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/vendas.db"),

		CacheTTL:        getEnvDuration("CACHE_TTL", 10*time.Minute),
		SourceTimeout:   getEnvDuration("SOURCE_TIMEOUT", 20*time.Second),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "America/Sao_Paulo"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vendas.dataset"),

		MirrorUpstream: getEnv("MIRROR_UPSTREAM", BackendSheets),
		MirrorSchedule: getEnv("MIRROR_SCHEDULE", ""),
		MirrorInterval: getEnvDuration("MIRROR_INTERVAL", 10*time.Minute),
	}

	return cfg
}

// SheetNames returns the configured ledger and targets sheet names.
func (c *Config) SheetNames() ports.SheetNames {
	return ports.SheetNames{Ledger: c.LedgerSheetName, Targets: c.TargetsSheetName}.WithDefaults()
}

// Location resolves DisplayTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DisplayTimezone)
}

// SlogLevel maps LogLevel onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendSheets, BackendExcel, BackendMemory, BackendSQLite}
	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	errors = append(errors, c.validateSource(c.DataBackend)...)

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.SourceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid source timeout %v: must be at least 1 second", c.SourceTimeout))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.DisplayTimezone, err))
	}
	if c.ReloadRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid reload rate limit %d: must be at least 1 per minute", c.ReloadRateLimit))
	}

	errors = append(errors, c.validateAMQP()...)

	return combine(errors)
}

// ValidateWorker checks the settings the mirror worker needs on top of the
// shared ones.
func (c *Config) ValidateWorker() error {
	var errors []string

	validUpstreams := []string{BackendSheets, BackendExcel, BackendMemory}
	if !oneOf(c.MirrorUpstream, validUpstreams) {
		errors = append(errors, fmt.Sprintf("invalid mirror upstream '%s': must be one of %v", c.MirrorUpstream, validUpstreams))
	}
	errors = append(errors, c.validateSource(c.MirrorUpstream)...)
	errors = append(errors, c.validateSource(BackendSQLite)...)

	if c.MirrorSchedule != "" {
		if _, err := gocron.NewScheduler(time.UTC).Cron(c.MirrorSchedule).Do(func() {}); err != nil {
			errors = append(errors, fmt.Sprintf("invalid mirror schedule '%s': %v", c.MirrorSchedule, err))
		}
	} else if c.MirrorInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 minute", c.MirrorInterval))
	}
	if c.SourceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid source timeout %v: must be at least 1 second", c.SourceTimeout))
	}

	errors = append(errors, c.validateAMQP()...)

	return combine(errors)
}

func (c *Config) validateSource(backend string) []string {
	var errors []string
	switch backend {
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
		if (c.GoogleOAuthClientFile == "") != (c.GoogleOAuthTokenFile == "") {
			errors = append(errors, "GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE must be set together")
		}
	case BackendExcel:
		if c.WorkbookPath == "" {
			errors = append(errors, "workbook path cannot be empty when using excel backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, list []string) bool {
	for _, s := range list {
		if v == s {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
