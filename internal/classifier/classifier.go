package classifier

import (
	"errors"

	"knc/internal/geom"
)

// Label is a class identifier. When votes tie, the smaller label wins.
type Label int

type ProvideFn func() (Classifier, error)

type PointsDistanceFn func(vec, vec1 []float64) (float64, error)

// Classifier is a supervised model with a two state lifecycle: it is
// created unfitted and serves Predict/Evaluate only after Fit.
// A repeated Fit replaces the previous training data wholesale.
type Classifier interface {
	Reset()
	Len() int
	Fit(features []geom.Point, labels []Label) error
	Predict(queries []geom.Point) ([]Label, error)
	Evaluate(queries []geom.Point, truth []Label) (float64, error)
}

var (
	// ErrInvalidConfig is returned at construction time for a bad k or
	// an unknown distance function.
	ErrInvalidConfig = errors.New("invalid classifier config")
	// ErrInvalidInput is returned for mismatched feature/label lengths
	// or an empty training set.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFitted is returned by Predict/Evaluate before Fit.
	ErrNotFitted = errors.New("classifier is not fitted")
)

// IsDimMismatch reports whether err is a vector dimension mismatch.
func IsDimMismatch(err error) bool {
	return errors.Is(err, geom.ErrDimNotEqual)
}
