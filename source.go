package tilemap

import "errors"

// Source-related errors.
var (
	// ErrAbsent is returned by TileSet accessors when a tile has no data
	// for the requested layer. Absence is not a failure: the loader skips
	// the layer and continues.
	ErrAbsent = errors.New("tilemap: tile data absent")

	// ErrTileSetNotFound is returned by Source.Resolve when the requested
	// tile-set identifier does not exist. It is a run-level terminal error.
	ErrTileSetNotFound = errors.New("tilemap: tile set not found")
)

// Source resolves tile-set identifiers to tile sets.
//
// Implementations wrap the terrain-file decoders for an external on-disk
// format; tilemap consumes decoded raw data and never parses files itself.
type Source interface {
	// Resolve opens the tile set identified by id.
	// It returns ErrTileSetNotFound (possibly wrapped) if no such set exists.
	Resolve(id string) (TileSet, error)
}

// TileSet supplies raw per-tile data for one world grid.
//
// Accessor methods return ErrAbsent when the tile has no backing asset for
// that layer; any other error marks a decode failure, which the loader
// likewise skips. Implementations must be safe for use from a single
// background goroutine; the loader never calls them concurrently except
// during the elevation range scan, which only calls Elevation.
type TileSet interface {
	// HasTerrain reports whether the cell has a terrain-file reference.
	HasTerrain(c Coord) bool

	// HasBase reports whether the cell has a minimap (base imagery) reference.
	HasBase(c Coord) bool

	// Base returns the raw base-layer imagery at its native resolution.
	Base(c Coord) (*Pixmap, error)

	// Elevation returns LayerResolution*LayerResolution raw height samples
	// in row-major order.
	Elevation(c Coord) ([]float32, error)

	// Regions returns LayerResolution*LayerResolution region identifiers
	// in row-major order.
	Regions(c Coord) ([]uint32, error)
}

// validCell reports whether the cell participates in the loading traversal:
// it must carry either a terrain-file reference or a base imagery reference.
func validCell(ts TileSet, c Coord) bool {
	return ts.HasTerrain(c) || ts.HasBase(c)
}
