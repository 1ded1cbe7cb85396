package knn

import (
	"testing"

	"knc/internal/classifier"
	"knc/internal/geom"

	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "zero_k", opts: []Option{WithKNum(0)}},
		{name: "negative_k", opts: []Option{WithKNum(-3)}},
		{name: "unknown_metric", opts: []Option{WithMetric("COSINE")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.opts...)
			require.Error(t, err)
			require.ErrorIs(t, err, classifier.ErrInvalidConfig)
		})
	}
}

func TestFitInvalidInput(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	err = c.Fit([]geom.Point{{1, 2}, {3, 4}}, []classifier.Label{0})
	require.ErrorIs(t, err, classifier.ErrInvalidInput)

	err = c.Fit(nil, nil)
	require.ErrorIs(t, err, classifier.ErrInvalidInput)

	err = c.Fit([]geom.Point{{1, 2}, {3, 4, 5}}, []classifier.Label{0, 1})
	require.ErrorIs(t, err, geom.ErrDimNotEqual)
}

func TestPredictBeforeFit(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.Predict([]geom.Point{{1, 2}})
	require.ErrorIs(t, err, classifier.ErrNotFitted)

	_, err = c.Evaluate([]geom.Point{{1, 2}}, []classifier.Label{0})
	require.ErrorIs(t, err, classifier.ErrNotFitted)
}

func TestPredictNearestNeighbor(t *testing.T) {
	c, err := New(WithKNum(1))
	require.NoError(t, err)
	require.NoError(t, c.Fit(
		[]geom.Point{{0, 0}, {10, 10}},
		[]classifier.Label{0, 1},
	))

	got, err := c.Predict([]geom.Point{{1, 1}, {9, 9}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{0, 1}, got)
}

func TestPredictMajorityVote(t *testing.T) {
	c, err := New(WithKNum(3))
	require.NoError(t, err)
	require.NoError(t, c.Fit(
		[]geom.Point{{0}, {1}, {2}, {3}, {10}},
		[]classifier.Label{0, 0, 1, 1, 1},
	))

	// three nearest to 0.5 are 0, 1 and 2 with labels {0, 0, 1}
	got, err := c.Predict([]geom.Point{{0.5}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{0}, got)
}

func TestPredictTieBreaks(t *testing.T) {
	t.Run("boundary_tie_lower_index_wins", func(t *testing.T) {
		c, err := New(WithKNum(1))
		require.NoError(t, err)
		require.NoError(t, c.Fit(
			[]geom.Point{{1}, {1}},
			[]classifier.Label{3, 7},
		))
		got, err := c.Predict([]geom.Point{{1}})
		require.NoError(t, err)
		require.Equal(t, []classifier.Label{3}, got)
	})

	t.Run("vote_tie_smaller_label_wins", func(t *testing.T) {
		c, err := New(WithKNum(2))
		require.NoError(t, err)
		require.NoError(t, c.Fit(
			[]geom.Point{{0}, {2}},
			[]classifier.Label{1, 0},
		))
		got, err := c.Predict([]geom.Point{{1}})
		require.NoError(t, err)
		require.Equal(t, []classifier.Label{0}, got)
	})
}

func TestPredictClampsKToTrainingSize(t *testing.T) {
	c, err := New(WithKNum(100))
	require.NoError(t, err)
	require.NoError(t, c.Fit(
		[]geom.Point{{0}, {1}, {100}},
		[]classifier.Label{1, 1, 0},
	))

	// k exceeds the training set, so every query sees the overall majority
	got, err := c.Predict([]geom.Point{{0}, {50}, {1000}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{1, 1, 1}, got)
}

func TestPredictDimensionMismatch(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Fit([]geom.Point{{1, 2}, {3, 4}}, []classifier.Label{0, 1}))

	_, err = c.Predict([]geom.Point{{1, 2, 3}})
	require.ErrorIs(t, err, geom.ErrDimNotEqual)
}

func TestPredictOutputLenAndDeterminism(t *testing.T) {
	c, err := New(WithKNum(3), WithMetric(DistanceFuncTypeManhattan))
	require.NoError(t, err)
	require.NoError(t, c.Fit(
		[]geom.Point{{0, 0}, {1, 1}, {2, 2}, {5, 5}, {6, 6}, {7, 7}},
		[]classifier.Label{0, 0, 0, 1, 1, 1},
	))

	queries := []geom.Point{{0.5, 0.5}, {6.5, 6.5}, {3, 3}, {4, 4}}
	first, err := c.Predict(queries)
	require.NoError(t, err)
	require.Len(t, first, len(queries))

	for i := 0; i < 10; i++ {
		again, err := c.Predict(queries)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEvaluate(t *testing.T) {
	c, err := New(WithKNum(1))
	require.NoError(t, err)

	features := []geom.Point{{0, 0}, {1, 1}, {10, 10}, {11, 11}}
	labels := []classifier.Label{0, 0, 1, 1}
	require.NoError(t, c.Fit(features, labels))

	t.Run("self_match_is_perfect", func(t *testing.T) {
		accuracy, err := c.Evaluate(features, labels)
		require.NoError(t, err)
		require.Equal(t, 1.0, accuracy)
	})

	t.Run("partial_match", func(t *testing.T) {
		accuracy, err := c.Evaluate(
			[]geom.Point{{0, 0}, {10, 10}},
			[]classifier.Label{0, 0},
		)
		require.NoError(t, err)
		require.Equal(t, 0.5, accuracy)
	})

	t.Run("length_mismatch", func(t *testing.T) {
		_, err := c.Evaluate([]geom.Point{{0, 0}}, []classifier.Label{0, 1})
		require.ErrorIs(t, err, classifier.ErrInvalidInput)
	})

	t.Run("empty_set", func(t *testing.T) {
		_, err := c.Evaluate(nil, nil)
		require.ErrorIs(t, err, classifier.ErrInvalidInput)
	})
}

func TestRefitReplacesTrainingSet(t *testing.T) {
	c, err := New(WithKNum(1))
	require.NoError(t, err)

	require.NoError(t, c.Fit([]geom.Point{{0}}, []classifier.Label{0}))
	got, err := c.Predict([]geom.Point{{0}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{0}, got)

	require.NoError(t, c.Fit([]geom.Point{{0}}, []classifier.Label{9}))
	got, err = c.Predict([]geom.Point{{0}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{9}, got)
	require.Equal(t, 1, c.Len())
}

func TestHammingMetricClassification(t *testing.T) {
	c, err := New(WithKNum(1), WithMetric(DistanceFuncTypeHamming))
	require.NoError(t, err)
	require.NoError(t, c.Fit(
		[]geom.Point{{1, 1, 1, 1}, {0, 0, 0, 0}},
		[]classifier.Label{1, 0},
	))

	got, err := c.Predict([]geom.Point{{1, 1, 1, 0}, {0, 0, 0, 1}})
	require.NoError(t, err)
	require.Equal(t, []classifier.Label{1, 0}, got)
}

func TestVote(t *testing.T) {
	tests := []struct {
		name     string
		labels   []classifier.Label
		expected classifier.Label
	}{
		{name: "single", labels: []classifier.Label{4}, expected: 4},
		{name: "majority", labels: []classifier.Label{2, 1, 2}, expected: 2},
		{name: "tie_smaller_wins", labels: []classifier.Label{3, 1, 3, 1}, expected: 1},
		{name: "all_tied", labels: []classifier.Label{5, 2, 9}, expected: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, vote(test.labels))
		})
	}
}
