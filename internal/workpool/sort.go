package workpool

import (
	"sort"
	"sync"
)

// SortStable sorts items in place with a parallel block sort: each of
// the pool's chunks is sorted independently, then sorted chunks are
// merged pairwise in parallel rounds until one run remains. Equal
// elements keep their relative order, like sort.SliceStable.
func SortStable[T any](p *Pool, items []T, less func(a, b T) bool) {
	blocks := p.Chunks(len(items))
	if len(blocks) <= 1 {
		sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(blocks))
	for _, b := range blocks {
		go func(lo, hi int) {
			defer wg.Done()
			seg := items[lo:hi]
			sort.SliceStable(seg, func(i, j int) bool { return less(seg[i], seg[j]) })
		}(b[0], b[1])
	}
	wg.Wait()

	segs := make([][]T, len(blocks))
	for i, b := range blocks {
		segs[i] = items[b[0]:b[1]]
	}
	for len(segs) > 1 {
		next := make([][]T, (len(segs)+1)/2)
		var mwg sync.WaitGroup
		for i := 0; i < len(segs); i += 2 {
			if i+1 == len(segs) {
				next[i/2] = segs[i]
				continue
			}
			mwg.Add(1)
			go func(i int) {
				defer mwg.Done()
				next[i/2] = mergeStable(segs[i], segs[i+1], less)
			}(i)
		}
		mwg.Wait()
		segs = next
	}
	copy(items, segs[0])
}

// mergeStable merges two already-sorted runs into a freshly allocated
// slice, preferring a from a on ties so equal elements keep a's
// relative order.
func mergeStable[T any](a, b []T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
