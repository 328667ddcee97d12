package backend

import (
	"fmt"

	"dailyledger/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SnapshotFile: appConfig.SnapshotFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Mirror:       MirrorMode(appConfig.MirrorMode),
		Sink:         SinkType(appConfig.MirrorSink),
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleSheetName:       appConfig.GoogleSheetName,
		GoogleCredentialsJSON: appConfig.GoogleCredentialsJSON,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,

		GCSBucket: appConfig.GCSBucket,
		GCSPrefix: appConfig.GCSPrefix,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case FileBackend:
		if c.SnapshotFile == "" {
			return fmt.Errorf("snapshot file is required for file backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	switch c.Mirror {
	case MirrorOff, "":
	case MirrorQueued:
		if c.AMQPURL == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL and queue are required for queued mirroring")
		}
	case MirrorDirect:
		return c.validateSink()
	default:
		return fmt.Errorf("invalid mirror mode: %s", c.Mirror)
	}
	return nil
}

func (c Config) validateSink() error {
	switch c.Sink {
	case MemorySink:
	case SheetsSink:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets sink")
		}
	case GCSSink:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs sink")
		}
	default:
		return fmt.Errorf("invalid sink type: %s", c.Sink)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend}
}
