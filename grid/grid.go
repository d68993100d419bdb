// Package grid implements the grouped uniform grid: a Morton-ordered
// spatial index over every neighbor-eligible particle across all
// groups of a model, answering fixed-radius neighbor queries in
// amortized O(1) per neighbor found.
package grid

import (
	"math"
	"sort"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/internal/workpool"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

const cannotBeNeighborTag = "cannot_be_neighbor"

const invalidCell int32 = -1

type rawGroupedIndex struct {
	group model.GroupIndex
	index int32
}

// mortonKeyed pairs a raw index with its precomputed grid cell so the
// parallel Morton sort's comparator needs no shared lookup state.
type mortonKeyed struct {
	ri  rawGroupedIndex
	key []int32
}

// Grid is a grouped uniform grid keyed by Morton-ordered integer cell
// coordinates. Call Update once per tick before issuing queries.
type Grid struct {
	Radius float64
	dims   int

	posField string

	rawToSorted [][]int32 // [group][raw index] -> sorted index, sized to model.Group slot count
	sortedToRaw []rawGroupedIndex

	sortedToCell []int32

	cellToSortedRange [][2]int32
	cellToGrid        [][]int32
	cellToAdjacentCells [][]int32

	offsets [][]int32

	pool *workpool.Pool
}

// New constructs a grid with the given cell radius, dimensionality
// (1, 2 or 3) and the name of the varying vector field holding particle
// positions. The Morton sort that orders particles into cells runs on
// a pool sized to runtime.GOMAXPROCS(0), the same worker-count
// convention internal/workpool uses everywhere else in the engine.
func New(radius float64, dims int, posField string) *Grid {
	return &Grid{
		Radius:   radius,
		dims:     dims,
		posField: posField,
		offsets:  sparseAdjacentCellOffsets(dims),
		pool:     workpool.New(0),
	}
}

func (g *Grid) positions(group *model.Group) (field.TypedSpan[float64], bool) {
	return field.TryGetVarying[float64](group.Varying, g.posField,
		tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{g.dims}})
}

func (g *Grid) canBeNeighbor(grp *model.Group) bool {
	return !grp.HasTag(cannotBeNeighborTag)
}

func (g *Grid) xToGI(pos tensor.Tensor[float64]) []int32 {
	gi := make([]int32, g.dims)
	for i := 0; i < g.dims; i++ {
		gi[i] = int32(math.Floor(pos.At(i) / g.Radius))
	}
	return gi
}

// Update rebuilds the grid from the current particle positions of m.
// It is a five-phase rebuild: regenerate the raw<->sorted permutation
// if group sizes changed, Morton-sort it, assign cells by scanning the
// sorted order, compact the cell arrays, and compute cell adjacency.
func (g *Grid) Update(m *model.Model) {
	g.updateSortedToRaw(m)
	g.updateSortedToCell(m)
	g.updateCellToGridAndSortedRange(m)
	g.updateCellToAdjacentCells()
}

func (g *Grid) updateSortedToRaw(m *model.Model) {
	slotCount := 0
	for _, grp := range m.Groups() {
		if int(grp.Index)+1 > slotCount {
			slotCount = int(grp.Index) + 1
		}
	}

	if len(g.rawToSorted) < slotCount {
		grown := make([][]int32, slotCount)
		copy(grown, g.rawToSorted)
		g.rawToSorted = grown
	}

	reset := false
	newSortedCount := 0
	for _, grp := range m.Groups() {
		idx := grp.Index
		oldCount := len(g.rawToSorted[idx])

		if !g.canBeNeighbor(grp) {
			if oldCount > 0 {
				reset = true
			}
			g.rawToSorted[idx] = nil
			continue
		}

		newCount := grp.Len()
		if oldCount != newCount {
			reset = true
			g.rawToSorted[idx] = make([]int32, newCount)
		}
		newSortedCount += newCount
	}

	if reset {
		g.sortedToRaw = make([]rawGroupedIndex, 0, newSortedCount)
		for _, grp := range m.Groups() {
			if !g.canBeNeighbor(grp) {
				continue
			}
			for r := 0; r < grp.Len(); r++ {
				g.sortedToRaw = append(g.sortedToRaw, rawGroupedIndex{group: grp.Index, index: int32(r)})
			}
		}
	}

	positionsCache := make(map[model.GroupIndex]field.TypedSpan[float64])
	posOf := func(idx model.GroupIndex) field.TypedSpan[float64] {
		if s, ok := positionsCache[idx]; ok {
			return s
		}
		grp := m.Group(idx)
		s, _ := g.positions(grp)
		positionsCache[idx] = s
		return s
	}

	// Precompute each entry's grid cell sequentially: the comparator
	// the parallel sort runs concurrently must not share the lazily
	// populated positionsCache/positions-span lookups across goroutines.
	keyed := make([]mortonKeyed, len(g.sortedToRaw))
	for i, ri := range g.sortedToRaw {
		span := posOf(ri.group)
		keyed[i] = mortonKeyed{ri: ri, key: g.xToGI(span.Get(int(ri.index)))}
	}

	workpool.SortStable(g.pool, keyed, func(a, b mortonKeyed) bool {
		return mortonLess(a.key, b.key)
	})

	for s, k := range keyed {
		g.sortedToRaw[s] = k.ri
		g.rawToSorted[k.ri.group][k.ri.index] = int32(s)
	}
}

func (g *Grid) updateSortedToCell(m *model.Model) {
	g.sortedToCell = make([]int32, len(g.sortedToRaw))
	if len(g.sortedToCell) == 0 {
		g.cellToSortedRange = nil
		g.cellToGrid = nil
		g.cellToAdjacentCells = nil
		return
	}

	gridIndexAt := func(s int) []int32 {
		ri := g.sortedToRaw[s]
		grp := m.Group(ri.group)
		span, _ := g.positions(grp)
		return g.xToGI(span.Get(int(ri.index)))
	}

	usedCells := 1
	g.sortedToCell[0] = 0
	for s := 1; s < len(g.sortedToCell); s++ {
		if gridIndexEqual(gridIndexAt(s), gridIndexAt(s-1)) {
			g.sortedToCell[s] = 0
		} else {
			g.sortedToCell[s] = 1
			usedCells++
		}
	}

	g.cellToSortedRange = make([][2]int32, usedCells)
	g.cellToGrid = make([][]int32, usedCells)
	g.cellToAdjacentCells = make([][]int32, usedCells)
}

func (g *Grid) updateCellToGridAndSortedRange(m *model.Model) {
	if len(g.cellToSortedRange) == 0 {
		return
	}

	gridIndexAt := func(s int) []int32 {
		ri := g.sortedToRaw[s]
		grp := m.Group(ri.group)
		span, _ := g.positions(grp)
		return g.xToGI(span.Get(int(ri.index)))
	}

	for c := range g.cellToAdjacentCells {
		adj := make([]int32, 2*len(g.offsets))
		for i := range adj {
			adj[i] = invalidCell
		}
		g.cellToAdjacentCells[c] = adj
	}

	g.cellToSortedRange[0][0] = 0
	g.cellToGrid[0] = gridIndexAt(0)

	for s := 1; s < len(g.sortedToRaw); s++ {
		value := g.sortedToCell[s]
		c := int(g.sortedToCell[s-1]) + int(value)
		g.sortedToCell[s] = int32(c)

		if value == 1 {
			g.cellToSortedRange[c-1][1] = int32(s)
			g.cellToSortedRange[c][0] = int32(s)
			g.cellToGrid[c] = gridIndexAt(s)
		}
	}

	g.cellToSortedRange[len(g.cellToSortedRange)-1][1] = int32(len(g.sortedToRaw))
}

func (g *Grid) updateCellToAdjacentCells() {
	for c := range g.cellToGrid {
		for oi, offset := range g.offsets {
			adjGI := make([]int32, g.dims)
			for i := range adjGI {
				adjGI[i] = g.cellToGrid[c][i] + offset[i]
			}
			if jc, ok := g.findCell(adjGI); ok {
				g.cellToAdjacentCells[c][oi] = int32(jc)
				g.cellToAdjacentCells[jc][2*len(g.offsets)-1-oi] = int32(c)
			}
		}
	}
}

// findCell locates the cell index matching the given integer grid
// coordinates via binary search over the Morton-sorted cellToGrid
// array, returning (index, true) on a hit.
func (g *Grid) findCell(gi []int32) (int, bool) {
	n := len(g.cellToGrid)
	i := sort.Search(n, func(i int) bool {
		return !mortonLess(g.cellToGrid[i], gi)
	})
	if i < n && gridIndexEqual(g.cellToGrid[i], gi) {
		return i, true
	}
	return 0, false
}

// ComputeGroupPermutation returns, for the given group, the sequence of
// local particle indices in Morton-sorted order — a locality-improving
// permutation suitable for group.Varying.PermuteItems.
func (g *Grid) ComputeGroupPermutation(group model.GroupIndex) []int {
	perm := make([]int, 0, len(g.sortedToRaw))
	for _, ri := range g.sortedToRaw {
		if ri.group == group {
			perm = append(perm, int(ri.index))
		}
	}
	return perm
}

// NeighborFunc is called once per neighbor found, with the neighbor's
// group and local particle index.
type NeighborFunc func(group model.GroupIndex, index int)

func (g *Grid) potentialNeighborsInCell(c int32, fn NeighborFunc) {
	if c == invalidCell {
		return
	}
	r := g.cellToSortedRange[c]
	for s := r[0]; s < r[1]; s++ {
		ri := g.sortedToRaw[s]
		fn(ri.group, int(ri.index))
	}
}

func (g *Grid) potentialNeighborsOfCell(c int32, fn NeighborFunc) {
	g.potentialNeighborsInCell(c, fn)
	for _, adj := range g.cellToAdjacentCells[c] {
		g.potentialNeighborsInCell(adj, fn)
	}
}

// Neighbors invokes fn once for every particle within the grid's
// radius of group/index. Particles of groups tagged cannot_be_neighbor
// are never reported, though group/index may itself belong to such a
// group.
func (g *Grid) Neighbors(m *model.Model, group model.GroupIndex, index int, fn NeighborFunc) {
	grp := m.Group(group)
	pos, ok := g.positions(grp)
	if !ok {
		return
	}
	origin := pos.Get(index)
	r2 := g.Radius * g.Radius

	wrapped := func(og model.GroupIndex, oi int) {
		ogrp := m.Group(og)
		ospan, ok := g.positions(ogrp)
		if !ok {
			return
		}
		if tensor.NormSquared(tensor.Sub(origin, ospan.Get(oi))) < r2 {
			fn(og, oi)
		}
	}

	if g.canBeNeighbor(grp) {
		ri := rawGroupedIndex{group: group, index: int32(index)}
		s := g.rawToSorted[ri.group][ri.index]
		c := g.sortedToCell[s]
		g.potentialNeighborsOfCell(c, wrapped)
	} else {
		g.neighborsAtPosition(m, origin, wrapped)
	}
}

// CellCenters returns the world-space center of every occupied cell,
// for callers (the sphere tracer) that need a coarse occupancy map
// rather than a radius query.
func (g *Grid) CellCenters() []tensor.Tensor[float64] {
	out := make([]tensor.Tensor[float64], len(g.cellToGrid))
	for c, gi := range g.cellToGrid {
		center := tensor.New[float64](tensor.Shape{g.dims})
		for d := 0; d < g.dims; d++ {
			center.Set(d, (float64(gi[d])+0.5)*g.Radius)
		}
		out[c] = center
	}
	return out
}

// NeighborsAt invokes fn once for every particle within the grid's
// radius of an arbitrary world position not tied to any particle —
// used for sphere-tracer sampling and source placement checks.
func (g *Grid) NeighborsAt(m *model.Model, pos tensor.Tensor[float64], fn NeighborFunc) {
	r2 := g.Radius * g.Radius
	wrapped := func(og model.GroupIndex, oi int) {
		ogrp := m.Group(og)
		ospan, ok := g.positions(ogrp)
		if !ok {
			return
		}
		if tensor.NormSquared(tensor.Sub(pos, ospan.Get(oi))) < r2 {
			fn(og, oi)
		}
	}
	g.neighborsAtPosition(m, pos, wrapped)
}

func (g *Grid) neighborsAtPosition(m *model.Model, pos tensor.Tensor[float64], fn NeighborFunc) {
	xgi := g.xToGI(pos)

	if c, ok := g.findCell(xgi); ok {
		g.potentialNeighborsOfCell(int32(c), fn)
		return
	}

	for _, offset := range g.offsets {
		plus := make([]int32, g.dims)
		minus := make([]int32, g.dims)
		for i := range plus {
			plus[i] = xgi[i] + offset[i]
			minus[i] = xgi[i] - offset[i]
		}
		if c, ok := g.findCell(plus); ok {
			g.potentialNeighborsInCell(int32(c), fn)
		}
		if c, ok := g.findCell(minus); ok {
			g.potentialNeighborsInCell(int32(c), fn)
		}
	}
}
