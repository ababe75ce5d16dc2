package tilemap

// Layer identifies one of the three data channels carried by a tile.
// The set is closed; render order is LayerBase < LayerElevation < LayerRegion.
type Layer uint8

const (
	// LayerBase is the minimap imagery channel. Its resolution is detected
	// from the first base asset seen in a loading run and fixed thereafter.
	LayerBase Layer = iota

	// LayerElevation is the height channel, LayerResolution x LayerResolution
	// samples normalized against the global elevation range of a run.
	LayerElevation

	// LayerRegion is the region-identifier channel, LayerResolution x
	// LayerResolution samples colored deterministically per region id.
	LayerRegion

	layerCount = 3
)

// LayerResolution is the fixed sample grid of the Elevation and Region
// layers. The Base layer resolution is detected per session instead.
const LayerResolution = 128

// DefaultTileResolution is the Base layer resolution assumed when no base
// asset exists anywhere to detect it from.
const DefaultTileResolution = 256

// AllLayers lists every layer in render order.
var AllLayers = [layerCount]Layer{LayerBase, LayerElevation, LayerRegion}

// String returns a human-readable name for the layer.
func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerElevation:
		return "elevation"
	case LayerRegion:
		return "region"
	default:
		return "unknown"
	}
}

// valid reports whether l is a member of the closed layer set.
func (l Layer) valid() bool {
	return l < layerCount
}
