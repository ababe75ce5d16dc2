package tilemap

import "fmt"

// Grid dimensions. The world map is a fixed square grid of tiles;
// each tile covers exactly one world unit per axis.
const (
	// GridSize is the number of tiles along one axis of the world grid.
	GridSize = 64

	// GridTiles is the total number of tiles in the world grid.
	GridTiles = GridSize * GridSize
)

// Coord identifies one tile of the world grid.
//
// Coord is an immutable value type. Valid coordinates satisfy
// 0 <= X, Y < GridSize. The total ordering is row-major: Y first, then X.
type Coord struct {
	X int
	Y int
}

// CoordFromIndex converts a linear row-major index back to a Coord.
// It is the inverse of [Coord.Index].
func CoordFromIndex(i int) Coord {
	return Coord{X: i % GridSize, Y: i / GridSize}
}

// Index returns the linear row-major index Y*GridSize + X,
// suitable for dense array-backed storage.
func (c Coord) Index() int {
	return c.Y*GridSize + c.X
}

// InBounds reports whether the coordinate lies inside the world grid.
func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < GridSize && c.Y >= 0 && c.Y < GridSize
}

// Less reports whether c precedes other in row-major order.
func (c Coord) Less(other Coord) bool {
	if c.Y != other.Y {
		return c.Y < other.Y
	}
	return c.X < other.X
}

// WorldPos returns the world-space position of the tile's top-left corner.
// Each tile occupies the unit square [X, X+1) x [Y, Y+1).
func (c Coord) WorldPos() (x, y float64) {
	return float64(c.X), float64(c.Y)
}

// CoordAtWorld returns the coordinate of the tile containing the
// world-space point (wx, wy), and whether that tile is inside the grid.
func CoordAtWorld(wx, wy float64) (Coord, bool) {
	c := Coord{X: int(wx), Y: int(wy)}
	if wx < 0 || wy < 0 || !c.InBounds() {
		return Coord{}, false
	}
	return c, true
}

// String returns a string representation of the coordinate.
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// SpiralOrder returns the loading traversal order over the world grid:
// the center cell first, then concentric rings spiraling outward
// (right, down, left, up, with the run length growing every two turns).
//
// Only cells for which valid returns true are included; a nil valid
// includes every in-bounds cell. The result is deterministic for a fixed
// valid predicate, and every valid cell appears exactly once.
func SpiralOrder(valid func(Coord) bool) []Coord {
	return spiralOrder(GridSize, valid)
}

// spiralOrder is the size-parametric form of SpiralOrder, split out so
// tests can exercise small toy grids.
func spiralOrder(size int, valid func(Coord) bool) []Coord {
	if size <= 0 {
		return nil
	}

	order := make([]Coord, 0, size*size)
	seen := 0 // in-bounds cells considered so far

	consider := func(x, y int) {
		c := Coord{X: x, Y: y}
		if x < 0 || x >= size || y < 0 || y >= size {
			return
		}
		seen++
		if valid == nil || valid(c) {
			order = append(order, c)
		}
	}

	// Walk: right, down, left, up. The run length grows after every
	// second leg, tracing concentric rings around the start cell.
	dirs := [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	x, y := size/2, size/2
	consider(x, y)

	step := 1
	dir := 0
	for seen < size*size {
		for leg := 0; leg < 2 && seen < size*size; leg++ {
			dx, dy := dirs[dir][0], dirs[dir][1]
			for i := 0; i < step; i++ {
				x += dx
				y += dy
				consider(x, y)
			}
			dir = (dir + 1) % 4
		}
		step++
	}

	return order
}
