package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dailyledger/internal/core"
	"dailyledger/internal/log"
	"dailyledger/internal/remote"
)

const defaultMirrorTimeout = 10 * time.Second

// MirrorDispatcher pushes each recorded transaction to a remote writer on
// its own goroutine. Failures are logged and counted, never retried and
// never reported back to the session.
type MirrorDispatcher struct {
	writer  remote.DocumentWriter
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex // guards userID and closed together with wg.Add
	userID string
	closed bool
	wg     sync.WaitGroup

	sent   atomic.Int64
	failed atomic.Int64
}

var _ Mirror = (*MirrorDispatcher)(nil)

func NewMirrorDispatcher(writer remote.DocumentWriter, timeout time.Duration, logger *log.Logger) *MirrorDispatcher {
	if timeout <= 0 {
		timeout = defaultMirrorTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorDispatcher{
		writer:  writer,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentMirror),
	}
}

// SetUser sets the namespace for subsequent documents. An empty id turns
// mirroring off until the next sign-in.
func (d *MirrorDispatcher) SetUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userID = userID
}

// Mirror schedules the push and returns at once.
func (d *MirrorDispatcher) Mirror(tx core.Transaction) {
	if d == nil || d.writer == nil {
		return
	}

	d.mu.RLock()
	userID, closed := d.userID, d.closed
	if userID == "" || closed {
		d.mu.RUnlock()
		d.logger.Debug("Mirror skipped",
			log.FieldTransactionID, tx.ID,
			"signed_in", userID != "",
			"closed", closed)
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	doc := remote.NewDocument(userID, tx)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.writer.Put(ctx, doc); err != nil {
			d.failed.Add(1)
			d.logger.Error("Mirror write failed",
				log.FieldOperation, log.OpMirror,
				log.FieldTransactionID, doc.ID,
				log.FieldUserID, doc.UserID,
				log.FieldError, err.Error())
			return
		}
		d.sent.Add(1)
	}()
}

// Close stops accepting work and waits for in-flight pushes or ctx.
func (d *MirrorDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many pushes succeeded and failed so far.
func (d *MirrorDispatcher) Stats() (sent, failed int64) {
	return d.sent.Load(), d.failed.Load()
}
