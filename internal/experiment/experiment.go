package experiment

import (
	"fmt"
	"math"
	"sync"

	"knc/internal/classifier"
	"knc/internal/geom"
	"knc/internal/sample/model"
	"knc/pkg/rworker"

	"github.com/valyala/fastrand"
)

const (
	MinTrials    = 1
	defaultRatio = 0.2
)

// Summary aggregates the accuracy of the repeated trials.
type Summary struct {
	Trials int     `json:"trials"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type Option func(*Runner)

func WithWorkerNum(n int) Option {
	return func(r *Runner) {
		r.workerNum = n
	}
}

func NewRunner(provideFn classifier.ProvideFn, opts ...Option) (*Runner, error) {
	if provideFn == nil {
		return nil, fmt.Errorf("classifier provide function is not created")
	}
	r := &Runner{provideFn: provideFn, workerNum: 4}
	for _, f := range opts {
		f(r)
	}
	return r, nil
}

// Runner repeatedly splits a labeled sample set into disjoint train and
// test parts, fits a fresh classifier on the train part and evaluates it
// on the test part. It aggregates accuracy across the trials; the
// classifier itself exposes no aggregation.
type Runner struct {
	provideFn classifier.ProvideFn
	workerNum int
}

func (r *Runner) Run(samples []model.Sample, trials int, testRatio float64) (*Summary, error) {
	if trials < MinTrials {
		return nil, fmt.Errorf("trials num must be positive, got %d", trials)
	}
	if testRatio == 0 {
		testRatio = defaultRatio
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, fmt.Errorf("test ratio must be in (0, 1), got %f", testRatio)
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("unable to split %d samples into train and test parts", len(samples))
	}

	var wg sync.WaitGroup
	accuracies := make([]float64, trials)
	rate := make(chan struct{}, r.workerNum)
	errCh := make(chan error, 1)

	for i := 0; i < trials; i++ {
		i := i
		rworker.Job(&wg, func() error {
			accuracy, err := r.trial(samples, testRatio)
			if err != nil {
				return err
			}
			accuracies[i] = accuracy
			return nil
		}, rate, errCh)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, fmt.Errorf("experiment trial failed: %w", err)
	default:
	}

	return summarize(accuracies), nil
}

// trial shuffles the samples, splits them by the test ratio and runs one
// fit/evaluate cycle on a fresh classifier.
func (r *Runner) trial(samples []model.Sample, testRatio float64) (float64, error) {
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		idx[i], idx[j] = idx[j], idx[i]
	}

	testNum := int(float64(len(samples)) * testRatio)
	if testNum == 0 {
		testNum = 1
	}
	if testNum == len(samples) {
		testNum = len(samples) - 1
	}

	testFeatures := make([]geom.Point, 0, testNum)
	testLabels := make([]classifier.Label, 0, testNum)
	trainFeatures := make([]geom.Point, 0, len(samples)-testNum)
	trainLabels := make([]classifier.Label, 0, len(samples)-testNum)
	for pos, i := range idx {
		if pos < testNum {
			testFeatures = append(testFeatures, samples[i].Vec)
			testLabels = append(testLabels, samples[i].Label)
			continue
		}
		trainFeatures = append(trainFeatures, samples[i].Vec)
		trainLabels = append(trainLabels, samples[i].Label)
	}

	c, err := r.provideFn()
	if err != nil {
		return 0, fmt.Errorf("can not create classifier instance: %w", err)
	}
	if err := c.Fit(trainFeatures, trainLabels); err != nil {
		return 0, fmt.Errorf("unable to fit trial classifier: %w", err)
	}
	return c.Evaluate(testFeatures, testLabels)
}

func summarize(accuracies []float64) *Summary {
	s := &Summary{
		Trials: len(accuracies),
		Min:    math.MaxFloat64,
	}
	var sum float64
	for _, a := range accuracies {
		sum += a
		if a < s.Min {
			s.Min = a
		}
		if a > s.Max {
			s.Max = a
		}
	}
	s.Mean = sum / float64(len(accuracies))

	var sqDiff float64
	for _, a := range accuracies {
		sqDiff += (a - s.Mean) * (a - s.Mean)
	}
	s.Std = math.Sqrt(sqDiff / float64(len(accuracies)))

	return s
}
