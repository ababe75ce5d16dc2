package tilemap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCoord_IndexRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		coord Coord
		index int
	}{
		{"origin", Coord{0, 0}, 0},
		{"first row", Coord{5, 0}, 5},
		{"second row", Coord{0, 1}, GridSize},
		{"middle", Coord{32, 32}, 32*GridSize + 32},
		{"last", Coord{GridSize - 1, GridSize - 1}, GridTiles - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coord.Index(); got != tt.index {
				t.Errorf("Index() = %d, want %d", got, tt.index)
			}
			if got := CoordFromIndex(tt.index); got != tt.coord {
				t.Errorf("CoordFromIndex(%d) = %v, want %v", tt.index, got, tt.coord)
			}
		})
	}
}

func TestCoord_Less(t *testing.T) {
	tests := []struct {
		name string
		a, b Coord
		want bool
	}{
		{"same", Coord{3, 3}, Coord{3, 3}, false},
		{"row wins", Coord{63, 0}, Coord{0, 1}, true},
		{"column breaks tie", Coord{2, 5}, Coord{3, 5}, true},
		{"after", Coord{3, 5}, Coord{2, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCoordAtWorld(t *testing.T) {
	tests := []struct {
		name   string
		wx, wy float64
		want   Coord
		wantOK bool
	}{
		{"tile interior", 10.5, 20.25, Coord{10, 20}, true},
		{"tile corner", 3, 4, Coord{3, 4}, true},
		{"last tile", 63.999, 63.999, Coord{63, 63}, true},
		{"negative", -0.5, 5, Coord{}, false},
		{"past edge", 64.0, 5, Coord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoordAtWorld(tt.wx, tt.wy)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CoordAtWorld(%v, %v) = %v, %v; want %v, %v",
					tt.wx, tt.wy, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func chebyshev(a, b Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

func TestSpiralOrder_FullGrid(t *testing.T) {
	order := SpiralOrder(nil)

	if len(order) != GridTiles {
		t.Fatalf("len(order) = %d, want %d", len(order), GridTiles)
	}

	center := Coord{GridSize / 2, GridSize / 2}
	if order[0] != center {
		t.Errorf("order[0] = %v, want center %v", order[0], center)
	}

	// Chebyshev distance from the center never decreases: each ring is
	// finished before the next one starts.
	prev := 0
	for i, c := range order {
		d := chebyshev(c, center)
		if d < prev {
			t.Fatalf("order[%d] = %v at ring %d after ring %d", i, c, d, prev)
		}
		prev = d
	}

	// Every cell exactly once.
	seen := make(map[Coord]bool, GridTiles)
	for _, c := range order {
		if !c.InBounds() {
			t.Fatalf("out-of-bounds coord %v in order", c)
		}
		if seen[c] {
			t.Fatalf("coord %v visited twice", c)
		}
		seen[c] = true
	}
}

func TestSpiralOrder_Deterministic(t *testing.T) {
	valid := func(c Coord) bool { return (c.X+c.Y)%3 != 0 }

	a := SpiralOrder(valid)
	b := SpiralOrder(valid)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("spiral order not deterministic (-first +second):\n%s", diff)
	}

	for _, c := range a {
		if !valid(c) {
			t.Errorf("invalid coord %v included", c)
		}
	}
}

func TestSpiralOrder_ToyGridCorners(t *testing.T) {
	corners := map[Coord]bool{
		{0, 0}: true, {3, 0}: true, {0, 3}: true, {3, 3}: true,
	}
	order := spiralOrder(4, func(c Coord) bool { return corners[c] })

	if len(order) != len(corners) {
		t.Fatalf("len(order) = %d, want %d", len(order), len(corners))
	}
	for _, c := range order {
		if !corners[c] {
			t.Errorf("non-corner coord %v visited", c)
		}
		delete(corners, c)
	}
	if len(corners) != 0 {
		t.Errorf("corners never visited: %v", corners)
	}
}

func TestSpiralOrder_SingleCell(t *testing.T) {
	order := spiralOrder(1, nil)
	want := []Coord{{0, 0}}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("spiralOrder(1, nil) mismatch (-want +got):\n%s", diff)
	}
}
