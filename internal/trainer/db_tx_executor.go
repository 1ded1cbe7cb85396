package trainer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"knc/internal/logging"
	"knc/internal/sample/model"
)

// function to bulk insert samples
type appendSamplesFn func(context.Context, []model.Sample) error

func newDBTxExecutor(opts dbTxExecutorOptions, shutdownCh chan<- error) *dbTxExecutor {
	return &dbTxExecutor{opts: opts, shutdownCh: shutdownCh}
}

type dbTxExecutorOptions struct {
	dbFlushSize int
	dbFlushTime time.Duration
}

// dbTxExecutor accumulates incoming samples and inserts them in bulk
// into persistent storage, either when the buffer fills up or on a ticker.
type dbTxExecutor struct {
	mtx sync.RWMutex

	opts dbTxExecutorOptions
	buf  []model.Sample

	shutdownCh chan<- error
}

// shutdown urgently persists everything left in the buffer.
func (tx *dbTxExecutor) shutdown(appendFn appendSamplesFn) error {
	tx.mtx.Lock()
	defer tx.mtx.Unlock()
	if err := appendFn(context.Background(), tx.buf); err != nil {
		return fmt.Errorf("txExecutor: append many operation failed: %v", err)
	}
	tx.buf = tx.buf[:0]
	return nil
}

// append adds a sample to the buffer and triggers a bulk insert when the
// buffer reaches the configured flush size.
func (tx *dbTxExecutor) append(ctx context.Context, sample model.Sample, appendFn appendSamplesFn) {
	tx.mtx.Lock()
	if tx.buf == nil {
		tx.buf = []model.Sample{}
	}

	tx.buf = append(tx.buf, sample)
	bufLen := len(tx.buf)
	tx.mtx.Unlock()

	if tx.opts.dbFlushSize > 0 && bufLen >= tx.opts.dbFlushSize {
		go tx.bulkAppend(ctx, appendFn)
	}
}

func (tx *dbTxExecutor) bulkAppend(ctx context.Context, appendFn appendSamplesFn) {
	logger := logging.FromContext(ctx)

	tx.mtx.Lock()
	tmpBuf := make([]model.Sample, len(tx.buf))
	copy(tmpBuf, tx.buf)
	tx.buf = tx.buf[:0]
	tx.mtx.Unlock()

	if err := appendFn(context.Background(), tmpBuf); err != nil {
		logger.Errorf("txExecutor: append many operation failed: %v", err)
	}
}

// flusher periodically moves buffered samples into the database.
func (tx *dbTxExecutor) flusher(ctx context.Context, appendFn appendSamplesFn) {
	defer func() {
		tx.shutdownCh <- tx.shutdown(appendFn)
	}()
	ticker := time.NewTicker(tx.opts.dbFlushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tx.bulkAppend(ctx, appendFn)
		case <-ctx.Done():
			return
		}
	}
}
