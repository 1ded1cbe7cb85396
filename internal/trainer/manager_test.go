package trainer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"knc/internal/classifier"
	"knc/internal/classifier/knn"
	"knc/internal/database"
	"knc/internal/geom"
	sampleDb "knc/internal/sample/database"
	"knc/internal/sample/model"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	boltDB, err := bolt.Open(filepath.Join(t.TempDir(), "knc-test.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltDB.Close() })
	return &database.DB{DB: boltDB}
}

func provideKNN() (classifier.Classifier, error) {
	return knn.New(knn.WithKNum(1))
}

func TestManagerPredictFromStoredSamples(t *testing.T) {
	db := newTestDB(t)

	now := time.Now()
	samples := []model.Sample{
		model.NewSample("test-dataset", geom.Point{0, 0}, 0, now),
		model.NewSample("test-dataset", geom.Point{10, 10}, 1, now.Add(time.Second)),
	}
	require.NoError(t, sampleDb.New(db).AppendMany(context.Background(), samples))

	m, err := New(db, provideKNN, make(chan error, 2))
	require.NoError(t, err)

	got, err := m.Predict("test-dataset", []geom.Point{{1, 1}, {9, 9}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{0, 1}, got)

	accuracy, err := m.Evaluate("test-dataset", []geom.Point{{1, 1}, {9, 9}}, []classifier.Label{0, 1})
	require.NoError(t, err)
	require.Equal(t, 1.0, accuracy)
}

func TestManagerPredictUnknownDataset(t *testing.T) {
	m, err := New(newTestDB(t), provideKNN, make(chan error, 2))
	require.NoError(t, err)

	_, err = m.Predict("missing", []geom.Point{{1, 1}})
	require.ErrorIs(t, err, classifier.ErrNotFitted)
}

func TestManagerCollectRefits(t *testing.T) {
	db := newTestDB(t)
	shutdownCh := make(chan error, 2)

	m, err := New(db, provideKNN, shutdownCh, WithDBFlushTime(50*time.Millisecond), WithDBFlushSize(100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Run(ctx))

	now := time.Now()
	require.NoError(t, m.Collect(
		model.NewSample("test-dataset", geom.Point{0}, 7, now),
		model.NewSample("test-dataset", geom.Point{100}, 9, now.Add(time.Second)),
	))

	require.Eventually(t, func() bool {
		got, err := m.Predict("test-dataset", []geom.Point{{1}})
		return err == nil && len(got) == 1 && got[0] == 7
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-shutdownCh
}

func TestSortSamplesIsReproducible(t *testing.T) {
	now := time.Now()
	a := model.NewSample("d", geom.Point{1}, 0, now)
	b := model.NewSample("d", geom.Point{2}, 1, now)
	c := model.NewSample("d", geom.Point{3}, 2, now.Add(-time.Second))

	first := []model.Sample{a, b, c}
	second := []model.Sample{b, c, a}
	sortSamples(first)
	sortSamples(second)

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("sortSamples is not reproducible: %v vs %v", first[i].ID, second[i].ID)
		}
	}
	if !first[0].CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("expected the oldest sample first")
	}
}
