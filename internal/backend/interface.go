package backend

import (
	"context"

	"dailyledger/internal/remote"
	"dailyledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult is the snapshot store selected by DATA_BACKEND.
type StoreResult struct {
	Store   storage.SnapshotStore
	Cleanup CleanupFunc
}

// WriterResult is a mirror destination. Writer is nil when mirroring is off.
type WriterResult struct {
	Writer  remote.DocumentWriter
	Cleanup CleanupFunc
}

// Factory creates stores and mirror writers based on configuration
type Factory interface {
	// CreateStore opens the snapshot store for the session
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)

	// CreateSink opens the remote sink the documents finally land in
	CreateSink(ctx context.Context, config Config) (*WriterResult, error)

	// CreateMirror returns what the app pushes to: the sink itself, the
	// queue in front of it, or nothing
	CreateMirror(ctx context.Context, config Config) (*WriterResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Snapshot store
	Type         BackendType
	SnapshotFile string
	SQLiteDBPath string

	// Mirror
	Mirror       MirrorMode
	Sink         SinkType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// GCS specific
	GCSBucket string
	GCSPrefix string
}

// BackendType represents the type of snapshot store
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

type MirrorMode string

const (
	MirrorOff    MirrorMode = "off"
	MirrorDirect MirrorMode = "direct"
	MirrorQueued MirrorMode = "amqp"
)

type SinkType string

const (
	MemorySink SinkType = "memory"
	SheetsSink SinkType = "sheets"
	GCSSink    SinkType = "gcs"
)
