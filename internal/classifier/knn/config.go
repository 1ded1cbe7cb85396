package knn

import (
	"fmt"

	"knc/internal/classifier"
	"knc/internal/geom"
)

type DistanceFuncType string

const (
	DistanceFuncTypeEuclidean DistanceFuncType = "EUCLIDEAN"
	DistanceFuncTypeManhattan DistanceFuncType = "MANHATTAN"
	DistanceFuncTypeChebyshev DistanceFuncType = "CHEBYSHEV"
	DistanceFuncTypeHamming   DistanceFuncType = "HAMMING"
)

type Config struct {
	KNum           int              `envconfig:"KNC_KNN_K_NUM" default:"5"`
	MetricFuncType DistanceFuncType `envconfig:"KNC_KNN_DISTANCE_FUNC" default:"EUCLIDEAN"`
	WorkerNum      int              `envconfig:"KNC_KNN_WORKER_NUM"`
}

// DistanceFuncFor resolves a metric name to its distance function.
// Resolution happens once, at classifier construction.
func DistanceFuncFor(d DistanceFuncType) (classifier.PointsDistanceFn, error) {
	switch d {
	case DistanceFuncTypeEuclidean:
		return geom.EuclideanDistance, nil
	case DistanceFuncTypeManhattan:
		return geom.ManhattanDistance, nil
	case DistanceFuncTypeChebyshev:
		return geom.ChebyshevDistance, nil
	case DistanceFuncTypeHamming:
		return geom.HammingDistance, nil
	default:
		return nil, fmt.Errorf("%w: unknown distance function: %s", classifier.ErrInvalidConfig, d)
	}
}
