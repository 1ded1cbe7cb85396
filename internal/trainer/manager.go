package trainer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"knc/internal/classifier"
	"knc/internal/database"
	"knc/internal/geom"
	"knc/internal/logging"
	sampleDb "knc/internal/sample/database"
	"knc/internal/sample/model"
	"knc/pkg/iqueue"
)

const (
	defaultDbFlushTime   = 5 * time.Second
	defaultDbFlushSize   = 64
	defaultRebuildDBTime = 5 * time.Minute
)

// Contract for returning the Manager instance
type ProvideFn func(chan<- error) (Manager, error)

// Manager defines the behavior of the background training service.
type Manager interface {
	CollectPredictor
	// Start method of the service
	Run(context.Context) error
	// Method for stopping the service
	Stop()
}

// Collector defines the behavior of the service for accepting training data
type Collector interface {
	// The method accepts samples from outside and writes them to the queue
	Collect(in ...model.Sample) error
}

// Predictor defines the behavior of the service for classification only
type Predictor interface {
	// Predict classifies the queries against the dataset's training set
	Predict(datasetID string, queries []geom.Point) ([]classifier.Label, error)
}

// Evaluator defines the behavior of the service for scoring a labeled set
type Evaluator interface {
	// Evaluate returns the accuracy of predictions against the true labels
	Evaluate(datasetID string, queries []geom.Point, truth []classifier.Label) (float64, error)
}

// SampleProvider defines the behavior for reading back stored samples
type SampleProvider interface {
	// Samples returns the stored samples of the dataset in fit order
	Samples(datasetID string) ([]model.Sample, error)
}

// Aggregation interface for Collector, Predictor and Evaluator
type CollectPredictor interface {
	Collector
	Predictor
	Evaluator
	SampleProvider
}

// function for getting all samples
type fetchSamplesFn func(context.Context, sampleDb.FilterFn) ([]model.Sample, error)

// General structure for aggregation of dependency pulling functions
type pullDependencies struct {
	fetchSamples          fetchSamplesFn
	fetchSamplesByDataset fetchSamplesByDatasetFn
	deleteSamples         deleteSamplesFn
	appendSamples         appendSamplesFn
	fetchKeys             fetchKeysFn
	countByDataset        countByDatasetFn
}

type Options struct {
	maxItemsStored int
	maxStorageTime time.Duration
	dbFlushTime    time.Duration
	dbFlushSize    int
	rebuildDBTime  time.Duration
	deps           pullDependencies
}

type Option func(*manager)

func WithDBFlushTime(t time.Duration) Option {
	return func(m *manager) {
		m.opts.dbFlushTime = t
	}
}

func WithDBFlushSize(n int) Option {
	return func(m *manager) {
		m.opts.dbFlushSize = n
	}
}

func WithRebuildDBTime(t time.Duration) Option {
	return func(m *manager) {
		m.opts.rebuildDBTime = t
	}
}

func WithMaxItemsStored(n int) Option {
	return func(m *manager) {
		m.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(m *manager) {
		m.opts.maxStorageTime = t
	}
}

// New returns the trainer manager
func New(
	db *database.DB,
	provideClassifierFn classifier.ProvideFn,
	shutdownCh chan<- error,
	opts ...Option,
) (*manager, error) {
	if provideClassifierFn == nil {
		return nil, fmt.Errorf("classifier provide function is not created")
	}

	m := &manager{
		sampleDB:            sampleDb.New(db),
		collectCh:           make(chan model.Sample, 1),
		shutDownCh:          shutdownCh,
		classifierProvideFn: provideClassifierFn,
		classifiers:         map[string]classifier.Classifier{},
		stale:               map[string]bool{},
		queue:               map[string]*iqueue.Queue{},
		opts: Options{
			dbFlushTime:   defaultDbFlushTime,
			dbFlushSize:   defaultDbFlushSize,
			rebuildDBTime: defaultRebuildDBTime,
		},
	}

	for _, f := range opts {
		f(m)
	}

	m.opts.deps = pullDependencies{
		fetchSamples:          m.sampleDB.FindAll,
		fetchSamplesByDataset: m.sampleDB.FindByDataset,
		deleteSamples:         m.sampleDB.DeleteMany,
		appendSamples:         m.sampleDB.AppendMany,
		fetchKeys:             m.sampleDB.Keys,
		countByDataset:        m.sampleDB.CountByDataset,
	}

	m.dbScheduler = newDBScheduler(m.sampleDB, dbSchedulerConfig{
		maxItemsStored: m.opts.maxItemsStored,
		maxStorageTime: m.opts.maxStorageTime,
		rebuildDBTime:  m.opts.rebuildDBTime,
	})

	m.dbTxExecutor = newDBTxExecutor(
		dbTxExecutorOptions{
			dbFlushSize: m.opts.dbFlushSize,
			dbFlushTime: m.opts.dbFlushTime,
		},
		shutdownCh,
	)

	return m, nil
}

// manager owns a classifier per dataset. Incoming samples flow through a
// per-dataset queue into the buffered db writer and mark the dataset stale;
// a stale dataset is refitted wholesale from storage before the next
// Predict or Evaluate.
type manager struct {
	mtx sync.RWMutex

	opts Options

	sampleDB     *sampleDb.DB
	dbTxExecutor *dbTxExecutor
	dbScheduler  *dbScheduler

	// Queue for new samples to be persisted
	queue  map[string]*iqueue.Queue
	recvWg sync.WaitGroup
	// New samples channel for processing
	collectCh chan model.Sample
	// Channel to shutdown the application
	shutDownCh chan<- error

	closed bool

	// The factory returns an unfitted classifier instance
	classifierProvideFn classifier.ProvideFn
	// Created classifiers
	classifiers map[string]classifier.Classifier
	// Datasets with collected samples not yet reflected in the classifier
	stale map[string]bool

	cancel func()
}

// Run starts the collect pipeline, the db flusher and the retention
// scheduler, then loads the stored datasets into memory.
func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.collector(ctx)
	go m.dbTxExecutor.flusher(ctx, m.opts.deps.appendSamples)
	go m.dbScheduler.schedule(
		ctx,
		m.opts.deps.fetchKeys,
		m.opts.deps.countByDataset,
		m.opts.deps.fetchSamplesByDataset,
		m.opts.deps.deleteSamples,
	)

	if err := m.bulkLoad(ctx); err != nil {
		return fmt.Errorf("can not start trainer manager: %w", err)
	}

	return nil
}

// Stop the manager
func (m *manager) Stop() {
	m.cancel()
}

// Collect adds samples to the processing queue
func (m *manager) Collect(in ...model.Sample) error {
	m.mtx.RLock()
	if m.closed {
		m.mtx.RUnlock()
		return fmt.Errorf("error send to collect, shutting down")
	}
	for i := range in {
		m.collectCh <- in[i]
	}
	m.mtx.RUnlock()
	return nil
}

// Predict classifies the queries using the dataset's fitted classifier
func (m *manager) Predict(datasetID string, queries []geom.Point) ([]classifier.Label, error) {
	c, err := m.ensureFitted(datasetID)
	if err != nil {
		return nil, err
	}
	return c.Predict(queries)
}

// Evaluate scores the dataset's classifier against a labeled set
func (m *manager) Evaluate(datasetID string, queries []geom.Point, truth []classifier.Label) (float64, error) {
	c, err := m.ensureFitted(datasetID)
	if err != nil {
		return 0, err
	}
	return c.Evaluate(queries, truth)
}

// Samples returns the stored training samples of the dataset in fit order.
func (m *manager) Samples(datasetID string) ([]model.Sample, error) {
	m.dbTxExecutor.bulkAppend(context.Background(), m.opts.deps.appendSamples)
	samples, err := m.opts.deps.fetchSamplesByDataset(datasetID, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching samples of dataset %s: %w", datasetID, err)
	}
	sortSamples(samples)
	return samples, nil
}

// bulkLoad fits a classifier for every dataset found in storage
func (m *manager) bulkLoad(ctx context.Context) error {
	data, err := m.opts.deps.fetchSamples(ctx, nil)
	if err != nil {
		return fmt.Errorf("error fetching all samples: %w", err)
	}

	grouped := map[string][]model.Sample{}
	for _, dat := range data {
		grouped[dat.DatasetID] = append(grouped[dat.DatasetID], dat)
	}

	for datasetID, list := range grouped {
		if _, err := m.fitSamples(datasetID, list); err != nil {
			return fmt.Errorf("unable to fit dataset %s: %w", datasetID, err)
		}
	}

	return nil
}

// ensureFitted returns the dataset's classifier, refitting it from storage
// when it does not exist yet or stale samples were collected since the
// last fit.
func (m *manager) ensureFitted(datasetID string) (classifier.Classifier, error) {
	m.mtx.RLock()
	if m.closed {
		m.mtx.RUnlock()
		return nil, fmt.Errorf("error to predict, shutting down")
	}
	c, ok := m.classifiers[datasetID]
	stale := m.stale[datasetID]
	m.mtx.RUnlock()

	if ok && !stale && c.Len() > 0 {
		return c, nil
	}

	// make buffered samples visible before refitting
	m.dbTxExecutor.bulkAppend(context.Background(), m.opts.deps.appendSamples)

	samples, err := m.opts.deps.fetchSamplesByDataset(datasetID, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching samples of dataset %s: %w", datasetID, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no training data", classifier.ErrNotFitted, datasetID)
	}

	return m.fitSamples(datasetID, samples)
}

// fitSamples fits the dataset's classifier with the given samples,
// replacing whatever it was fitted with before.
func (m *manager) fitSamples(datasetID string, samples []model.Sample) (classifier.Classifier, error) {
	sortSamples(samples)

	features := make([]geom.Point, len(samples))
	labels := make([]classifier.Label, len(samples))
	for i := range samples {
		features[i] = samples[i].Vec
		labels[i] = samples[i].Label
	}

	m.mtx.Lock()
	c, ok := m.classifiers[datasetID]
	if !ok {
		newClassifier, err := m.classifierProvideFn()
		if err != nil {
			m.mtx.Unlock()
			return nil, fmt.Errorf("can not create classifier instance: %w", err)
		}
		c = newClassifier
		m.classifiers[datasetID] = newClassifier
	}
	m.mtx.Unlock()

	if err := c.Fit(features, labels); err != nil {
		return nil, fmt.Errorf("unable to fit classifier of dataset %s: %w", datasetID, err)
	}

	m.mtx.Lock()
	m.stale[datasetID] = false
	m.mtx.Unlock()

	return c, nil
}

// process persists the sample and marks its dataset for refitting
func (m *manager) process(ctx context.Context, sample model.Sample) error {
	m.dbTxExecutor.append(ctx, sample, m.opts.deps.appendSamples)

	m.mtx.Lock()
	m.stale[sample.DatasetID] = true
	m.mtx.Unlock()

	return nil
}

func (m *manager) receive(ctx context.Context, q *iqueue.Queue) {
	logger := logging.FromContext(ctx)
	defer m.recvWg.Done()
	for {
		recv, ok := <-q.Receive()
		if !ok {
			return
		}
		if err := m.process(ctx, recv.(model.Sample)); err != nil {
			logger.Errorf("unable processed data: %v", err)
		}
	}
}

func (m *manager) worker(ctx context.Context, queue *iqueue.Queue) {
	m.recvWg.Add(1)
	go m.receive(ctx, queue)
}

// collector routes incoming samples into per-dataset queues. On shutdown
// the queues are closed and drained before the shutdown channel is notified.
func (m *manager) collector(ctx context.Context) {
	for {
		select {
		case in := <-m.collectCh:
			q, ok := m.queue[in.DatasetID]
			if !ok {
				queue := iqueue.New()
				go queue.Loop()
				m.worker(ctx, queue)
				m.queue[in.DatasetID] = queue
				q = queue
			}
			q.Send(in)
		case <-ctx.Done():
			m.mtx.Lock()
			m.closed = true
			m.mtx.Unlock()
			for _, q := range m.queue {
				q.Close()
			}
			m.recvWg.Wait()
			m.shutDownCh <- nil
			return
		}
	}
}

// sortSamples orders samples by creation time with the id as a tie break,
// so the training order is reproducible across restarts.
func sortSamples(samples []model.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		ti, tj := samples[i].CreatedAt.UnixNano(), samples[j].CreatedAt.UnixNano()
		if ti == tj {
			return samples[i].ID.String() < samples[j].ID.String()
		}
		return ti < tj
	})
}
