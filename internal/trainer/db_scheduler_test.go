package trainer

import (
	"context"
	"errors"
	"testing"
	"time"

	"knc/internal/geom"
	sampleDb "knc/internal/sample/database"
	"knc/internal/sample/model"
)

func TestProcessOverSizeSamples(t *testing.T) {
	tests := []struct {
		name           string
		maxItemsStored int
		expectedErr    error
		expectedLen    int
		batch          []model.Sample
	}{
		{
			name:           "positive_process_over_size_samples",
			maxItemsStored: 3,
			batch: []model.Sample{
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now().Add(time.Second)),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now().Add(2*time.Second)),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now().Add(3*time.Second)),
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 1, time.Now().Add(4*time.Second)),
			},
			expectedLen: 2,
			expectedErr: nil,
		},
		{
			name:           "negative_process_over_size_samples",
			maxItemsStored: 3,
			batch: []model.Sample{
				model.NewSample("test-data", geom.Point{1, 1, 1, 1}, 0, time.Now()),
			},
			expectedLen: 0,
			expectedErr: errors.New("test error"),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var deleted []model.Sample
			scheduler := &dbScheduler{opts: dbSchedulerConfig{maxItemsStored: test.maxItemsStored}}
			err := scheduler.processOverSizeSamples(
				"test-samples",
				func(s string, fn sampleDb.FilterFn) ([]model.Sample, error) {
					return test.batch, test.expectedErr
				},
				func(ctx context.Context, samples []model.Sample) error {
					deleted = samples
					return nil
				},
			)
			if test.expectedErr != nil && err == nil {
				t.Errorf("calling the processOverSizeSamples method, error got: %v, expected: %v", err, test.expectedErr)
			}
			if err == nil && len(deleted) != test.expectedLen {
				t.Errorf(
					"calling the processOverSizeSamples method, the length of deleted data got: %v, expected: %v",
					len(deleted),
					test.expectedLen,
				)
			}
			// the oldest samples must be the ones deleted
			if err == nil && len(deleted) > 0 {
				for i := range deleted {
					if !deleted[i].CreatedAt.Equal(test.batch[i].CreatedAt) {
						t.Errorf("expected the oldest samples to be deleted first")
					}
				}
			}
		})
	}
}

func TestProcessOutdatedSamples(t *testing.T) {
	now := time.Now()
	batch := []model.Sample{
		model.NewSample("test-data", geom.Point{1, 1}, 0, now.Add(-2*time.Hour)),
		model.NewSample("test-data", geom.Point{1, 1}, 1, now.Add(-90*time.Minute)),
		model.NewSample("test-data", geom.Point{1, 1}, 1, now),
	}

	var deleted []model.Sample
	scheduler := &dbScheduler{opts: dbSchedulerConfig{maxStorageTime: time.Hour}}
	err := scheduler.processOutdatedSamples(
		"test-samples",
		func(s string, fn sampleDb.FilterFn) ([]model.Sample, error) {
			var outdated []model.Sample
			for _, sample := range batch {
				if fn(sample) {
					outdated = append(outdated, sample)
				}
			}
			return outdated, nil
		},
		func(ctx context.Context, samples []model.Sample) error {
			deleted = samples
			return nil
		},
	)
	if err != nil {
		t.Fatalf("the error should not be returned, got: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("calling the processOutdatedSamples method, deleted got: %v, expected: %v", len(deleted), 2)
	}
}
