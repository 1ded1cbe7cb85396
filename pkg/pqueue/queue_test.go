package pqueue

import (
	"testing"
)

func TestQueuePushPopAll(t *testing.T) {
	tests := []struct {
		name     string
		cap      uint
		input    []float64
		expected []float64
	}{
		{
			name:     "positive_ordering",
			cap:      3,
			input:    []float64{5, 1, 4, 2, 3},
			expected: []float64{1, 2, 3},
		},
		{
			name:     "positive_under_cap",
			cap:      10,
			input:    []float64{2, 1},
			expected: []float64{1, 2},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			q := New(WithCap(test.cap))
			for _, p := range test.input {
				q.Push(p, p)
			}
			got := q.PopAll()
			if len(got) != len(test.expected) {
				t.Fatalf("queue length got: %v, expected: %v", len(got), len(test.expected))
			}
			for i := range got {
				if got[i].(float64) != test.expected[i] {
					t.Errorf("queue item %d got: %v, expected: %v", i, got[i], test.expected[i])
				}
			}
		})
	}
}

func TestQueueEqualPriorityKeepsInsertionOrder(t *testing.T) {
	q := New(WithCap(2))
	q.Push("first", 1)
	q.Push("second", 1)
	q.Push("third", 1)
	got := q.PopAll()
	if got[0].(string) != "first" || got[1].(string) != "second" {
		t.Errorf("equal priorities reordered, got: %v", got)
	}
}
