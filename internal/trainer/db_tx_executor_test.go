package trainer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"knc/internal/geom"
	"knc/internal/sample/model"
)

func TestDbTxExecutorFlusher(t *testing.T) {
	tests := []struct {
		name           string
		expectedLen    int
		expectedBufLen int
		waitingTime    time.Duration
		batch          []model.Sample
	}{
		{
			name:        "positive_flusher",
			waitingTime: 1 * time.Second,
			batch: []model.Sample{
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now()),
			},
			expectedLen:    5,
			expectedBufLen: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			shutdownCh := make(chan error, 1)
			txExecutor := newDBTxExecutor(dbTxExecutorOptions{dbFlushTime: 1 * time.Second}, shutdownCh)
			length := 0
			bit := int64(0)
			ctx, cancel := context.WithCancel(context.TODO())
			txExecutor.buf = test.batch
			go txExecutor.flusher(ctx, func(ctx context.Context, samples []model.Sample) error {
				if atomic.LoadInt64(&bit) == 0 {
					length = len(samples)
					atomic.StoreInt64(&bit, 1)
				}
				return nil
			})

			time.Sleep(test.waitingTime * 2)
			cancel()
			<-shutdownCh

			if length != test.expectedLen {
				t.Errorf(
					"calling the flusher method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}

			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the shutdown method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}

func TestDbTxExecutorAppend(t *testing.T) {
	tests := []struct {
		name        string
		items       []model.Sample
		expectedLen int
	}{
		{
			name: "positive_append_one",
			items: []model.Sample{
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
			},
			expectedLen: 1,
		},
		{
			name: "positive_append_many",
			items: []model.Sample{
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 2, time.Now()),
			},
			expectedLen: 3,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := newDBTxExecutor(dbTxExecutorOptions{}, make(chan error, 1))
			for _, item := range test.items {
				txExecutor.append(context.Background(), item, func(ctx context.Context, samples []model.Sample) error {
					return nil
				})
			}
			if len(txExecutor.buf) != test.expectedLen {
				t.Errorf(
					"calling the append method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedLen,
				)
			}
		})
	}
}
