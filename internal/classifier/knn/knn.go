package knn

import (
	"fmt"
	"runtime"
	"sync"

	"knc/internal/classifier"
	"knc/internal/geom"
	"knc/pkg/pqueue"

	"golang.org/x/sync/errgroup"
)

var _ classifier.Classifier = (*knn)(nil)

const MinKNum = 1

type Option func(*knn)

func WithKNum(k int) Option {
	return func(c *knn) {
		c.kNum = k
	}
}

func WithDistance(f classifier.PointsDistanceFn) Option {
	return func(c *knn) {
		c.distFunc = f
	}
}

func WithMetric(d DistanceFuncType) Option {
	return func(c *knn) {
		c.opts.metricFuncType = d
	}
}

func WithWorkerNum(n int) Option {
	return func(c *knn) {
		c.opts.workerNum = n
	}
}

var defaultOptions = Options{metricFuncType: DistanceFuncTypeEuclidean}

type Options struct {
	metricFuncType DistanceFuncType
	workerNum      int
}

func New(opts ...Option) (*knn, error) {
	c := &knn{
		kNum: 5,
		opts: defaultOptions,
	}
	for _, f := range opts {
		f(c)
	}
	if c.kNum < MinKNum {
		return nil, fmt.Errorf("%w: k must be positive, got %d", classifier.ErrInvalidConfig, c.kNum)
	}
	if c.opts.workerNum <= 0 {
		c.opts.workerNum = runtime.NumCPU()
	}
	if c.distFunc == nil {
		distFunc, err := DistanceFuncFor(c.opts.metricFuncType)
		if err != nil {
			return nil, fmt.Errorf("unable creating knn instance, %w", err)
		}
		c.distFunc = distFunc
	}
	return c, nil
}

// knn is a brute-force k-nearest-neighbors classifier. Fit stores the
// training set, Predict scans it for every query. Training data is written
// only by Fit and is read-only afterwards, so queries fan out without locks.
type knn struct {
	mtx  sync.RWMutex
	opts Options
	kNum int

	distFunc classifier.PointsDistanceFn

	features []geom.Point
	labels   []classifier.Label
	dims     int
	fitted   bool
}

func (c *knn) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.features)
}

func (c *knn) Reset() {
	c.mtx.Lock()
	c.features = nil
	c.labels = nil
	c.dims = 0
	c.fitted = false
	c.mtx.Unlock()
}

// Fit stores a copy of the training set. Calling Fit again discards the
// previously stored data.
func (c *knn) Fit(features []geom.Point, labels []classifier.Label) error {
	if len(features) != len(labels) {
		return fmt.Errorf(
			"%w: features num %d is not equal labels num %d",
			classifier.ErrInvalidInput, len(features), len(labels),
		)
	}
	if len(labels) == 0 {
		return fmt.Errorf("%w: training set is empty", classifier.ErrInvalidInput)
	}

	dims := features[0].Dimensions()
	featuresCopy := make([]geom.Point, len(features))
	for i := range features {
		if features[i].Dimensions() != dims {
			return fmt.Errorf(
				"unable to fit point %d with dim %d, expected %d: %w",
				i, features[i].Dimensions(), dims, geom.ErrDimNotEqual,
			)
		}
		featuresCopy[i] = features[i].Copy()
	}
	labelsCopy := make([]classifier.Label, len(labels))
	copy(labelsCopy, labels)

	c.mtx.Lock()
	c.features = featuresCopy
	c.labels = labelsCopy
	c.dims = dims
	c.fitted = true
	c.mtx.Unlock()

	return nil
}

// Predict classifies every query against the stored training set. Queries
// are processed concurrently, the output order matches the input order.
func (c *knn) Predict(queries []geom.Point) ([]classifier.Label, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if !c.fitted {
		return nil, classifier.ErrNotFitted
	}

	out := make([]classifier.Label, len(queries))
	errGrp := errgroup.Group{}
	rate := make(chan struct{}, c.opts.workerNum)
	for i, q := range queries {
		i, q := i, q
		errGrp.Go(func() error {
			rate <- struct{}{}
			defer func() { <-rate }()
			label, err := c.classify(q)
			if err != nil {
				return err
			}
			out[i] = label
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate runs Predict over queries and returns the fraction of
// predictions matching truth, a value in [0, 1].
func (c *knn) Evaluate(queries []geom.Point, truth []classifier.Label) (float64, error) {
	if len(queries) != len(truth) {
		return 0, fmt.Errorf(
			"%w: queries num %d is not equal truth labels num %d",
			classifier.ErrInvalidInput, len(queries), len(truth),
		)
	}
	if len(truth) == 0 {
		return 0, fmt.Errorf("%w: evaluation set is empty", classifier.ErrInvalidInput)
	}
	predicted, err := c.Predict(queries)
	if err != nil {
		return 0, err
	}
	var matched int
	for i := range predicted {
		if predicted[i] == truth[i] {
			matched++
		}
	}
	return float64(matched) / float64(len(truth)), nil
}

// classify finds the k nearest training points and returns the majority
// label among them. The selection queue keeps insertion order under equal
// distances, so ties at the k-th boundary go to the lower training index.
func (c *knn) classify(q geom.Point) (classifier.Label, error) {
	if q.Dimensions() != c.dims {
		return 0, fmt.Errorf(
			"unable to classify point with dim %d, expected %d: %w",
			q.Dimensions(), c.dims, geom.ErrDimNotEqual,
		)
	}

	k := c.kNum
	if k > len(c.features) {
		k = len(c.features)
	}

	pq := pqueue.New(pqueue.WithCap(uint(k)))
	for i := range c.features {
		distance, err := c.distFunc(q.Points(), c.features[i].Points())
		if err != nil {
			return 0, fmt.Errorf(
				"unable to compute distance between %v and %v: %w",
				q.Points(), c.features[i].Points(), err,
			)
		}
		pq.Push(c.labels[i], distance)
	}

	nn := make([]classifier.Label, pq.Len())
	for i, label := range pq.PopAll() {
		nn[i] = label.(classifier.Label)
	}
	return vote(nn), nil
}

// vote returns the most frequent label; equally frequent labels are
// broken by the smaller label value.
func vote(labels []classifier.Label) classifier.Label {
	counts := map[classifier.Label]int{}
	for _, label := range labels {
		counts[label]++
	}
	var (
		winner classifier.Label
		best   int
	)
	for label, num := range counts {
		if num > best || (num == best && label < winner) {
			winner = label
			best = num
		}
	}
	return winner
}
