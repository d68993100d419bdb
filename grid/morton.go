package grid

// mortonLess compares two integer cell coordinates by their position on
// the Z-order curve without ever materializing the interleaved bits: for
// each dimension it XORs lhs and rhs, and the dimension whose XOR has the
// most significant set bit decides the order. Ported from the original's
// morton_order_fn, which credits the Z-order-curve article on Wikipedia.
func mortonLess(lhs, rhs []int32) bool {
	return mortonCompare(lhs, rhs) < 0
}

func mortonCompare(lhs, rhs []int32) int {
	msd := 0
	for dim := 1; dim < len(lhs); dim++ {
		if lessMSB(unsign(lhs[msd])^unsign(rhs[msd]), unsign(lhs[dim])^unsign(rhs[dim])) {
			msd = dim
		}
	}
	l, r := unsign(lhs[msd]), unsign(rhs[msd])
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func lessMSB(lhs, rhs uint32) bool {
	return lhs < rhs && lhs < (lhs^rhs)
}

// unsign maps a signed cell coordinate to an unsigned value that
// preserves ordering, shifting by the signed max so negative values
// sort below zero and zero sorts below positive values.
func unsign(index int32) uint32 {
	const signedMax = int64(1<<31 - 1)
	return uint32(int64(index) + signedMax)
}

func gridIndexEqual(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sparseAdjacentCellOffsets enumerates half of the 3^d - 1 neighboring
// cell offsets of a d-dimensional cell; the rest follow by symmetry
// (adjacency is recorded both ways when found).
func sparseAdjacentCellOffsets(dims int) [][]int32 {
	switch dims {
	case 1:
		return [][]int32{{1}}
	case 2:
		return [][]int32{
			{1, 0},
			{0, 1},
			{1, 1},
			{1, -1},
		}
	case 3:
		return [][]int32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
			{1, 1, 0},
			{1, 0, 1},
			{0, 1, 1},
			{1, 1, 1},
			{0, -1, 1},
			{1, 0, -1},
			{1, 1, -1},
			{1, -1, -1},
			{1, -1, 0},
			{1, -1, 1},
		}
	default:
		panic("grid: dims must be 1, 2 or 3")
	}
}
