package backend

import (
	"fmt"

	"vendas/internal/config"
)

// FromAppConfig builds the backend config for DATA_BACKEND.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return forType(appConfig, appConfig.DataBackend)
}

// UpstreamFromAppConfig builds the backend config for MIRROR_UPSTREAM.
func UpstreamFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg, err := forType(appConfig, appConfig.MirrorUpstream)
	if err != nil {
		return Config{}, err
	}
	if cfg.Type == SQLiteBackend {
		return Config{}, fmt.Errorf("mirror upstream cannot be the sqlite mirror itself")
	}
	return cfg, nil
}

func forType(appConfig *config.Config, name string) (Config, error) {
	backendType := BackendType(name)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", name)
	}

	return Config{
		Type:  backendType,
		Names: appConfig.SheetNames(),

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
		GoogleCredentialsJSON: appConfig.GoogleCredentialsJSON,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,

		WorkbookPath:  appConfig.WorkbookPath,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.MemoryDataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case ExcelBackend:
		if c.WorkbookPath == "" {
			return fmt.Errorf("workbook path is required for excel backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, ExcelBackend, MemoryBackend, SQLiteBackend}
}
