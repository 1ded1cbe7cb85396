package trainer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"knc/internal/logging"
	sampleDb "knc/internal/sample/database"
	"knc/internal/sample/model"
)

type dbSchedulerConfig struct {
	maxItemsStored int
	maxStorageTime time.Duration
	rebuildDBTime  time.Duration
}

func newDBScheduler(db *sampleDb.DB, config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{sampleDb: db, opts: config}
}

// dbScheduler keeps the stored training data within the configured
// retention bounds: it drops samples that are too old and trims datasets
// that grew over the size limit.
type dbScheduler struct {
	opts     dbSchedulerConfig
	sampleDb *sampleDb.DB
}

// function for deleting a group of samples
type deleteSamplesFn func(context.Context, []model.Sample) error

// function for fetching samples of one dataset
type fetchSamplesByDatasetFn func(string, sampleDb.FilterFn) ([]model.Sample, error)

type fetchKeysFn func() ([]string, error)

type countByDatasetFn func(string) (int, error)

// processOutdatedSamples fetches the samples of the dataset that outlived
// the storage time and deletes them in bulk.
func (s *dbScheduler) processOutdatedSamples(
	datasetID string,
	fetchFn fetchSamplesByDatasetFn,
	deleteFn deleteSamplesFn,
) error {
	samples, err := fetchFn(datasetID, func(sample model.Sample) bool {
		return time.Since(sample.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return fmt.Errorf("unable find samples by dataset %s: %v", datasetID, err)
	}

	if err := deleteFn(context.Background(), samples); err != nil {
		return fmt.Errorf("unable delete outdated samples of dataset %s: %v", datasetID, err)
	}
	return nil
}

// processOverSizeSamples fetches all samples of the dataset, sorts them by
// creation time and deletes the oldest ones over the size limit.
func (s *dbScheduler) processOverSizeSamples(
	datasetID string,
	fetchFn fetchSamplesByDatasetFn,
	deleteFn deleteSamplesFn,
) error {
	samples, err := fetchFn(datasetID, nil)
	if err != nil {
		return fmt.Errorf("unable find samples by dataset %s: %v", datasetID, err)
	}

	if len(samples) <= s.opts.maxItemsStored {
		return nil
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].CreatedAt.UnixNano() < samples[j].CreatedAt.UnixNano()
	})

	if err := deleteFn(context.Background(), samples[:len(samples)-s.opts.maxItemsStored]); err != nil {
		return fmt.Errorf("unable delete oversize samples of dataset %s: %v", datasetID, err)
	}
	return nil
}

func (s *dbScheduler) rebuildOutdated(
	keysFn fetchKeysFn,
	fetchFn fetchSamplesByDatasetFn,
	deleteFn deleteSamplesFn,
) error {
	keys, err := keysFn()
	if err != nil {
		return fmt.Errorf("unable to fetch dataset keys: %v", err)
	}
	for i := range keys {
		if err := s.processOutdatedSamples(keys[i], fetchFn, deleteFn); err != nil {
			return fmt.Errorf("unable process samples: %v", err)
		}
	}
	return nil
}

func (s *dbScheduler) rebuildSize(keysFn fetchKeysFn, countFn countByDatasetFn) error {
	keys, err := keysFn()
	if err != nil {
		return fmt.Errorf("unable fetch keys: %v", err)
	}
	for i := range keys {
		length, err := countFn(keys[i])
		if err != nil {
			return fmt.Errorf("unable count by dataset %s: %v", keys[i], err)
		}
		if length > s.opts.maxItemsStored {
			if err := s.processOverSizeSamples(keys[i], s.sampleDb.FindByDataset, s.sampleDb.DeleteMany); err != nil {
				return fmt.Errorf("unable process samples: %v", err)
			}
		}
	}

	return nil
}

// schedule runs the retention passes on a ticker until the context ends.
func (s *dbScheduler) schedule(
	ctx context.Context,
	keysFn fetchKeysFn,
	countFn countByDatasetFn,
	fetchFn fetchSamplesByDatasetFn,
	deleteFn deleteSamplesFn,
) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(s.opts.rebuildDBTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.opts.maxItemsStored > 0 {
				if err := s.rebuildSize(keysFn, countFn); err != nil {
					logger.Errorf("unable db rebuild size: %v", err)
				}
			}
			if s.opts.maxStorageTime > 0 {
				if err := s.rebuildOutdated(keysFn, fetchFn, deleteFn); err != nil {
					logger.Errorf("unable db rebuild outdated: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
