package backend

import (
	"context"
	"fmt"

	"dailyledger/internal/amqp"
	"dailyledger/internal/log"
	"dailyledger/internal/remote/gcs"
	"dailyledger/internal/remote/memory"
	"dailyledger/internal/remote/sheets"
	"dailyledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite snapshot store", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	case FileBackend:
		store, err := storage.NewFileStore(config.SnapshotFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file snapshot store", "path", config.SnapshotFile)
		return &StoreResult{Store: store}, nil

	case MemoryBackend:
		f.logger.WarnContext(ctx, "Using in-memory snapshot store, state is lost on exit")
		return &StoreResult{Store: storage.NewMemoryStore()}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateSink implements Factory.CreateSink
func (f *DefaultFactory) CreateSink(ctx context.Context, config Config) (*WriterResult, error) {
	if err := config.validateSink(); err != nil {
		return nil, err
	}

	switch config.Sink {
	case SheetsSink:
		cli, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleCredentialsJSON,
			CredentialsFile: config.GoogleCredentialsFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return &WriterResult{Writer: cli}, nil

	case GCSSink:
		cli, err := gcs.New(ctx, config.GCSBucket, config.GCSPrefix, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized GCS sink", "bucket", config.GCSBucket)
		return &WriterResult{Writer: cli, Cleanup: cli.Close}, nil

	default:
		f.logger.InfoContext(ctx, "Initialized in-memory sink")
		return &WriterResult{Writer: memory.New()}, nil
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*WriterResult, error) {
	switch config.Mirror {
	case MirrorOff, "":
		f.logger.InfoContext(ctx, "Remote mirror disabled")
		return &WriterResult{}, nil

	case MirrorDirect:
		return f.CreateSink(ctx, config)

	case MirrorQueued:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			// the ledger works without the mirror
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without mirror", log.FieldError, err)
			return &WriterResult{}, nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP mirror",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return &WriterResult{Writer: client, Cleanup: client.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported mirror mode: %s", config.Mirror)
	}
}
