package model

import (
	"time"

	"knc/internal/classifier"
	"knc/internal/geom"

	"github.com/google/uuid"
)

// Sample is a single labeled training point owned by a dataset.
type Sample struct {
	ID        uuid.UUID        `json:"id"`
	DatasetID string           `json:"datasetId"`
	Vec       geom.Point       `json:"vector"`
	Label     classifier.Label `json:"label"`
	CreatedAt time.Time        `json:"createdAt"`
}

func NewSample(datasetID string, vec geom.Point, label classifier.Label, createdAt time.Time) Sample {
	return Sample{
		ID:        uuid.New(),
		DatasetID: datasetID,
		Vec:       vec,
		Label:     label,
		CreatedAt: createdAt,
	}
}

func (s Sample) Point() geom.Point {
	return s.Vec
}

func (s Sample) Time() time.Time {
	return s.CreatedAt
}
