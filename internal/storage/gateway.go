// Package storage persists the application snapshot. A Gateway encodes the
// state and hands the bytes to a SnapshotStore (file, SQLite or memory).
package storage

import (
	"context"
	"errors"
	"fmt"

	"dailyledger/internal/core"
	"dailyledger/internal/log"
)

// ErrNotFound is returned by a SnapshotStore that holds nothing yet.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore keeps exactly one opaque snapshot. Save replaces it whole.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// SaveCounter is implemented by stores that count their writes.
type SaveCounter interface {
	Saves(ctx context.Context) (int64, error)
}

var (
	_ SaveCounter = (*MemoryStore)(nil)
	_ SaveCounter = (*SQLiteStore)(nil)
)

type Gateway struct {
	store  SnapshotStore
	logger *log.Logger
}

func NewGateway(store SnapshotStore, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Discard()
	}
	return &Gateway{
		store:  store,
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Load returns the stored state. ok is false when nothing is stored or the
// snapshot is corrupt; corruption is logged, never returned. err is only set
// when the store itself could not be read, so a transient I/O failure is not
// mistaken for an empty device.
func (g *Gateway) Load(ctx context.Context) (state core.AppState, ok bool, err error) {
	data, err := g.store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		g.logger.InfoContext(ctx, "No snapshot stored", log.FieldOperation, log.OpLoad)
		return core.AppState{}, false, nil
	}
	if err != nil {
		return core.AppState{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	state, err = DecodeSnapshot(data)
	if err != nil {
		g.logger.WarnContext(ctx, "Discarding unreadable snapshot",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err.Error(),
			"bytes", len(data))
		return core.AppState{}, false, nil
	}

	g.logger.DebugContext(ctx, "Snapshot loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldLedgerSize, len(state.Transactions),
		log.FieldDay, state.Session.LastActiveDate.String())
	return state, true, nil
}

// Save overwrites the stored snapshot with s.
func (g *Gateway) Save(ctx context.Context, s core.AppState) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := g.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Saves returns the store's write count. ok is false when the store does not
// keep one.
func (g *Gateway) Saves(ctx context.Context) (n int64, ok bool, err error) {
	c, ok := g.store.(SaveCounter)
	if !ok {
		return 0, false, nil
	}
	n, err = c.Saves(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("count saves: %w", err)
	}
	return n, true, nil
}
