// Package worker runs the consumer side of the queued mirror: documents
// published by the app are written to the configured sink here.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"dailyledger/internal/log"
	"dailyledger/internal/remote"
)

// MirrorWorker writes queued documents to the remote sink.
type MirrorWorker struct {
	sink   remote.DocumentWriter
	logger *log.Logger

	written atomic.Int64
	failed  atomic.Int64
}

func NewMirrorWorker(sink remote.DocumentWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleDocument processes a single document delivered by the queue.
// A returned error makes the consumer drop the message.
func (w *MirrorWorker) HandleDocument(ctx context.Context, doc remote.Document) error {
	if err := doc.Validate(); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("invalid document: %w", err)
	}

	w.logger.DebugContext(ctx, "Processing mirror document",
		log.FieldOperation, log.OpConsume,
		log.FieldTransactionID, doc.ID,
		log.FieldUserID, doc.UserID)

	if err := w.sink.Put(ctx, doc); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("write %s: %w", doc.Key(), err)
	}
	w.written.Add(1)

	w.logger.InfoContext(ctx, "Mirror document written",
		log.FieldTransactionID, doc.ID,
		log.FieldTransactionType, doc.Type)
	return nil
}

// Stats reports written and failed documents since start.
func (w *MirrorWorker) Stats() (written, failed int64) {
	return w.written.Load(), w.failed.Load()
}
