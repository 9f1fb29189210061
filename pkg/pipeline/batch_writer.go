package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc performs database writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter buffers writes and commits them in batches, one transaction per
// batch. Batches are committed in submission order by a single goroutine.
type BatchWriter struct {
	mu     sync.Mutex
	buf    []WriteFunc
	size   int
	ticker *time.Ticker
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	commitCh chan []WriteFunc
	db       *sql.DB

	// OnError receives every failed or dropped batch.
	OnError func(error)
	// OnCommit is called after a batch of n writes is committed.
	OnCommit func(n int)

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter creates a writer that flushes every size writes and, when
// interval > 0, at least once per interval. A nil db runs writes with a nil tx.
func NewBatchWriter(db *sql.DB, size int, interval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]WriteFunc, 0, size),
		size:     size,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []WriteFunc, 1),
		db:       db,
	}

	bw.wg.Add(1)
	go bw.committer()

	if interval > 0 {
		bw.ticker = time.NewTicker(interval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues a write. It blocks while the committer is behind.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// flushLocked hands the buffer to the committer. bw.mu must be held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.size)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.execute(batch); err != nil {
			bw.fail(err)
			continue
		}
		if bw.OnCommit != nil {
			bw.OnCommit(len(batch))
		}
	}
}

func (bw *BatchWriter) execute(batch []WriteFunc) error {
	if bw.db == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// not bw.ctx: pending batches still commit while the writer closes
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close flushes pending writes, waits for them to commit and returns the
// first error seen by the writer.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.commitCh)
	bw.wg.Wait()

	return bw.Err()
}

// Err returns the first asynchronous error, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is the typed error of BatchWriter operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
