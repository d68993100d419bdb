package workpool

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSortStableMatchesSequentialSort(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	items := make([]int, 2000)
	for i := range items {
		items[i] = r.Intn(50)
	}
	want := append([]int(nil), items...)
	sort.Ints(want)

	p := New(8)
	SortStable(p, items, func(a, b int) bool { return a < b })

	for i := range items {
		if items[i] != want[i] {
			t.Fatalf("index %d: got %d, want %d", i, items[i], want[i])
		}
	}
}

func TestSortStablePreservesEqualOrder(t *testing.T) {
	type pair struct {
		key, seq int
	}
	const n = 500
	items := make([]pair, n)
	for i := range items {
		items[i] = pair{key: i % 5, seq: i}
	}

	p := New(8)
	SortStable(p, items, func(a, b pair) bool { return a.key < b.key })

	for key := 0; key < 5; key++ {
		lastSeq := -1
		for _, it := range items {
			if it.key != key {
				continue
			}
			if it.seq < lastSeq {
				t.Fatalf("key %d: seq %d out of order after seq %d", key, it.seq, lastSeq)
			}
			lastSeq = it.seq
		}
	}
}

func TestSortStableSmallAndEmpty(t *testing.T) {
	p := New(8)

	empty := []int{}
	SortStable(p, empty, func(a, b int) bool { return a < b })

	single := []int{42}
	SortStable(p, single, func(a, b int) bool { return a < b })
	if single[0] != 42 {
		t.Fatalf("single-element sort mutated value: got %d", single[0])
	}
}

func TestSortStableSingleWorkerFallsBackToSequential(t *testing.T) {
	p := New(1)
	items := []int{5, 3, 4, 1, 2}
	SortStable(p, items, func(a, b int) bool { return a < b })
	want := []int{1, 2, 3, 4, 5}
	for i := range items {
		if items[i] != want[i] {
			t.Fatalf("index %d: got %d, want %d", i, items[i], want[i])
		}
	}
}
